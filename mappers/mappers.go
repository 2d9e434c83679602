package mappers

import (
	"fmt"
	"strings"

	"termomaz/model"
)

// MapProductToItem builds a new order line for p, pricing it at the product's current price.
// The caller sets the quantity it has already reserved from stock.
func MapProductToItem(orderID int64, p *model.Product, quantity int) model.OrderItem {
	return model.OrderItem{
		OrderID:     orderID,
		ProductID:   p.ID,
		Quantity:    quantity,
		PriceAtTime: p.Price.Round(2),
	}
}

// ClientLabel is the name printed on receipts and reports. Walk-in sales have no client.
func ClientLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Consumidor final"
	}
	return name
}

// OrderLabel is the short reference shown to customers: the receipt number for POS sales, #id otherwise.
func OrderLabel(o model.Order) string {
	if o.ReceiptNumber != "" {
		return o.ReceiptNumber
	}
	return fmt.Sprintf("#%d", o.ID)
}
