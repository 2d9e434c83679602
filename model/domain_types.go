package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Client struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Phone   string `db:"phone" json:"phone"`
	Email   string `db:"email" json:"email"`
	Address string `db:"address" json:"address"`
}

// ClientInput is the writable part of a client, as received from the API or a CSV row.
type ClientInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"max=40"`
	Email   string `json:"email" validate:"omitempty,email,max=120"`
	Address string `json:"address" validate:"max=255"`
}

func (in *ClientInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
}

type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Category    string          `db:"category" json:"category"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Description string          `db:"description" json:"description"`
}

type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Category    string          `json:"category" validate:"max=60"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Description string          `json:"description" validate:"max=1000"`
}

func (in *ProductInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Price = in.Price.Round(2)
}

// ClientFilters narrows client listings. Query matches name, phone or email.
type ClientFilters struct {
	Query string
}

type ProductFilters struct {
	Name     string
	Category string
}

// Validate runs the tag checks plus the price rule the validator cannot express on decimals.
func (in ProductInput) Validate() error {
	if err := Check(in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return NewValidationError("ProductInput.Price", "debe ser mayor o igual a 0")
	}
	return nil
}
