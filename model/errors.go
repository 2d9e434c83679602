package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderClosed       = errors.New("order is not pending")
	ErrOrderCancelled    = errors.New("order is cancelled")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrOverpayment       = errors.New("payment exceeds remaining balance")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInUse             = errors.New("record is referenced")
	ErrValidation        = errors.New("validation failed")
)

// StockError reports a request for more units than a product has on hand.
type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (id %d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError carries per-field problems. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

var validate = validator.New()

// Check runs the struct's validate tags and converts failures into a *ValidationError.
func Check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	ve := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		ve.Fields[fe.Namespace()] = fieldMessage(fe)
	}
	return ve
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "email":
		return "no es un correo válido"
	case "max":
		return "supera el largo máximo de " + fe.Param()
	case "min":
		return "requiere al menos " + fe.Param()
	case "gt":
		return "debe ser mayor que " + fe.Param()
	case "gte":
		return "debe ser mayor o igual a " + fe.Param()
	case "ne":
		return "no puede ser " + fe.Param()
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	}
	return "no es válido (" + fe.Tag() + ")"
}
