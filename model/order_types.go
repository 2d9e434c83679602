package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// Payment statuses, derived from paid_amount against total.
const (
	PaymentPending = "Pending"
	PaymentPartial = "Partial"
	PaymentPaid    = "Paid"
)

type Order struct {
	ID              int64           `db:"id" json:"id"`
	ClientID        *int64          `db:"client_id" json:"clientId"`
	Status          string          `db:"status" json:"status"`
	Date            time.Time       `db:"date" json:"date"`
	ShippingAddress string          `db:"shipping_address" json:"shippingAddress"`
	Total           decimal.Decimal `db:"total" json:"total"`
	PaidAmount      decimal.Decimal `db:"paid_amount" json:"paidAmount"`
	PaymentStatus   string          `db:"payment_status" json:"paymentStatus"`
	ReceiptNumber   string          `db:"receipt_number" json:"receiptNumber,omitempty"`
}

// Balance is what is still owed on the order.
func (o Order) Balance() decimal.Decimal {
	return o.Total.Sub(o.PaidAmount)
}

// OrderSummary is an order row joined with its client's name. Walk-in sales have an empty name.
type OrderSummary struct {
	Order
	ClientName string `db:"client_name" json:"clientName"`
}

type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"orderId"`
	ProductID   int64           `db:"product_id" json:"productId"`
	Quantity    int             `db:"quantity" json:"quantity"`
	PriceAtTime decimal.Decimal `db:"price_at_time" json:"priceAtTime"`
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.PriceAtTime.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// OrderItemView is an order line with the product name resolved.
type OrderItemView struct {
	OrderItem
	ProductName string `db:"product_name" json:"productName"`
}

// LineRequest asks for quantity units of a product on an order.
type LineRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// ValidStatus reports whether s is one of the order statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// DerivePaymentStatus labels paid against total. Anything within epsilon of the total counts as paid.
func DerivePaymentStatus(total, paid, epsilon decimal.Decimal) string {
	if !paid.IsPositive() {
		return PaymentPending
	}
	if total.Sub(paid).LessThanOrEqual(epsilon) {
		return PaymentPaid
	}
	return PaymentPartial
}

// OrderFilters narrows order listings. Zero values are ignored.
type OrderFilters struct {
	Status   string
	ClientID int64
	Limit    int
}

// OrderInput opens a new order for a client. An empty address falls back to the client's.
type OrderInput struct {
	ClientID        int64  `json:"clientId" validate:"required,gt=0"`
	ShippingAddress string `json:"shippingAddress" validate:"max=255"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

type AddressInput struct {
	ShippingAddress string `json:"shippingAddress" validate:"max=255"`
}
