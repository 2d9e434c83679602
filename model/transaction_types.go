package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID      int64           `db:"id" json:"id"`
	OrderID int64           `db:"order_id" json:"orderId"`
	Amount  decimal.Decimal `db:"amount" json:"amount"`
	Method  string          `db:"method" json:"method"`
	PaidAt  time.Time       `db:"paid_at" json:"paidAt"`
}

// Stock movement reasons.
const (
	MovementOrder     = "order"
	MovementRestore   = "restore"
	MovementCancel    = "cancel"
	MovementReinstate = "reinstate"
	MovementAdjust    = "adjust"
	MovementImport    = "import"
	MovementCreate    = "create"
)

// StockMovement is one entry of a product's stock ledger.
type StockMovement struct {
	ID         int64     `db:"id" json:"id"`
	ProductID  int64     `db:"product_id" json:"productId"`
	OrderID    *int64    `db:"order_id" json:"orderId,omitempty"`
	Delta      int       `db:"delta" json:"delta"`
	StockAfter int       `db:"stock_after" json:"stockAfter"`
	Reason     string    `db:"reason" json:"reason"`
	Note       string    `db:"note" json:"note"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type StockAdjustment struct {
	Delta int    `json:"delta" validate:"required,ne=0"`
	Note  string `json:"note" validate:"max=255"`
}

type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"omitempty,oneof=cash card transfer other"`
}

// SaleRequest is a point-of-sale checkout: lines, money handed over and an optional client.
type SaleRequest struct {
	ClientID *int64          `json:"clientId"`
	Items    []LineRequest   `json:"items" validate:"required,min=1,dive"`
	Tendered decimal.Decimal `json:"tendered"`
	Method   string          `json:"method" validate:"omitempty,oneof=cash card transfer other"`
}

type SaleReceipt struct {
	Order      Order           `json:"order"`
	ClientName string          `json:"clientName,omitempty"`
	Items      []OrderItemView `json:"items"`
	Tendered   decimal.Decimal `json:"tendered"`
	Change     decimal.Decimal `json:"change"`
	Payment    *Payment        `json:"payment,omitempty"`
}
