package mappers

import (
	"termomaz/model"

	"github.com/shopspring/decimal"
)

// OrderDetailsView is everything the order page and the invoice show for one order.
type OrderDetailsView struct {
	model.OrderSummary
	Client   *model.Client         `json:"client"`
	Items    []model.OrderItemView `json:"items"`
	Payments []model.Payment       `json:"payments"`
	Balance  decimal.Decimal       `json:"balance"`
	Units    int                   `json:"units"`
}

// ToOrderDetailsView assembles the view. Nil slices become empty so the JSON carries [] rather than null.
func ToOrderDetailsView(order model.OrderSummary, client *model.Client, items []model.OrderItemView, payments []model.Payment) OrderDetailsView {
	if items == nil {
		items = []model.OrderItemView{}
	}
	if payments == nil {
		payments = []model.Payment{}
	}
	units := 0
	for _, it := range items {
		units += it.Quantity
	}
	return OrderDetailsView{
		OrderSummary: order,
		Client:       client,
		Items:        items,
		Payments:     payments,
		Balance:      order.Balance(),
		Units:        units,
	}
}
