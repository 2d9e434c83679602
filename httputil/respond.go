// Package httputil holds the JSON request and response helpers shared by the handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"termomaz/metrics"
	"termomaz/model"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode JSON response", zap.Error(err))
	}
}

// WriteMessage writes the {"message": ...} payload the front end shows to the user.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}

// WriteError maps domain errors onto HTTP statuses and user-facing messages.
// Anything unrecognised is logged and reported as a 500 without internal detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *model.StockError
	var validationErr *model.ValidationError

	switch {
	case errors.As(err, &stockErr):
		metrics.RecordStockRejection()
		WriteJSON(w, http.StatusConflict, map[string]interface{}{
			"message":   fmt.Sprintf("Error: No hay suficiente stock de %s. Stock actual: %d", stockErr.ProductName, stockErr.Available),
			"productId": stockErr.ProductID,
			"available": stockErr.Available,
		})
	case errors.As(err, &validationErr):
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "Los datos enviados no son válidos.",
			"fields":  validationErr.Fields,
		})
	case errors.Is(err, model.ErrNotFound):
		WriteMessage(w, http.StatusNotFound, "No se encontró el registro solicitado.")
	case errors.Is(err, model.ErrOrderClosed):
		WriteMessage(w, http.StatusConflict, "El pedido ya no está pendiente y no admite cambios en sus artículos.")
	case errors.Is(err, model.ErrOrderCancelled):
		WriteMessage(w, http.StatusConflict, "El pedido está cancelado.")
	case errors.Is(err, model.ErrOverpayment):
		WriteMessage(w, http.StatusConflict, "El pago supera el saldo pendiente del pedido.")
	case errors.Is(err, model.ErrInUse):
		WriteMessage(w, http.StatusConflict, "El registro tiene pedidos asociados y no puede eliminarse.")
	case errors.Is(err, model.ErrInvalidStatus):
		WriteMessage(w, http.StatusBadRequest, "Estado de pedido no válido.")
	case errors.Is(err, model.ErrInvalidAmount):
		WriteMessage(w, http.StatusBadRequest, "El monto debe ser mayor a cero.")
	case errors.Is(err, model.ErrInvalidQuantity):
		WriteMessage(w, http.StatusBadRequest, "La cantidad debe ser mayor a cero.")
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		WriteMessage(w, http.StatusInternalServerError, "Error interno del servidor.")
	}
}

// DecodeJSON reads the request body into v, answering 400 itself on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteMessage(w, http.StatusBadRequest, "La solicitud no es válida: "+err.Error())
		return false
	}
	return true
}

// PathID parses a positive integer route variable, answering 400 itself on failure.
func PathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		WriteMessage(w, http.StatusBadRequest, fmt.Sprintf("Identificador no válido: %q", raw))
		return 0, false
	}
	return id, true
}

// QueryInt returns the integer query parameter or def when it is missing or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// QueryDate parses a YYYY-MM-DD query parameter as midnight UTC. Missing yields the zero time.
func QueryDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, model.NewValidationError(name, "debe tener el formato AAAA-MM-DD")
	}
	return t, nil
}
