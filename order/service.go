package order

import (
	"fmt"

	"termomaz/config"
	"termomaz/database"
	"termomaz/mappers"
	"termomaz/model"
	"termomaz/stock"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// DefaultEpsilon is the tolerance under which a remaining balance counts as settled.
var DefaultEpsilon = decimal.RequireFromString("0.01")

// Service keeps an order's total, payment status and the stock of its products consistent.
// Every method works inside the caller's transaction; the caller commits or rolls back.
type Service struct {
	Epsilon   decimal.Decimal
	tolerance func() decimal.Decimal
}

func NewService(epsilon decimal.Decimal) *Service {
	if !epsilon.IsPositive() {
		epsilon = DefaultEpsilon
	}
	return &Service{Epsilon: epsilon}
}

// NewConfiguredService reads the payment tolerance from config.Get() on every operation,
// so a tolerance saved through /api/config applies to the next payment.
func NewConfiguredService() *Service {
	return &Service{
		Epsilon:   DefaultEpsilon,
		tolerance: func() decimal.Decimal { return config.Get().Shop.Epsilon() },
	}
}

func (s *Service) epsilon() decimal.Decimal {
	if s.tolerance != nil {
		if eps := s.tolerance(); eps.IsPositive() {
			return eps
		}
	}
	return s.Epsilon
}

// Create opens an empty Pending order. A nil clientID is a walk-in sale with no client.
// When address is empty the client's address is used.
func (s *Service) Create(tx *sqlx.Tx, clientID *int64, address string) (*model.Order, error) {
	if clientID != nil {
		c, err := database.GetClientByID(tx, *clientID)
		if err != nil {
			return nil, err
		}
		if address == "" {
			address = c.Address
		}
	}

	o := &model.Order{
		ClientID:        clientID,
		Status:          model.StatusPending,
		Date:            model.Now(),
		ShippingAddress: address,
		Total:           decimal.Zero,
		PaidAmount:      decimal.Zero,
		PaymentStatus:   model.PaymentPending,
	}
	id, err := database.InsertOrderInTx(tx, o)
	if err != nil {
		return nil, err
	}
	o.ID = id
	return o, nil
}

// AddItem reserves quantity units of a product for a Pending order.
// A product already on the order has its line merged, keeping the line's original price.
func (s *Service) AddItem(tx *sqlx.Tx, orderID, productID int64, quantity int) (*model.OrderItem, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}
	o, err := database.GetOrderForUpdateInTx(tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != model.StatusPending {
		return nil, fmt.Errorf("AddItem (OrderID: %d, Status: %s): %w", orderID, o.Status, model.ErrOrderClosed)
	}
	p, err := database.GetProductForUpdateInTx(tx, productID)
	if err != nil {
		return nil, err
	}

	_, err = stock.ApplyInTx(tx, stock.Change{
		ProductID: p.ID,
		Delta:     -quantity,
		Reason:    model.MovementOrder,
		OrderID:   &o.ID,
	})
	if err != nil {
		return nil, err
	}

	existing, err := database.FindOrderItem(tx, o.ID, p.ID)
	if err != nil {
		return nil, err
	}
	var item model.OrderItem
	if existing != nil {
		item = *existing
		item.Quantity += quantity
		if err := database.UpdateOrderItemQuantityInTx(tx, item.ID, item.Quantity); err != nil {
			return nil, err
		}
	} else {
		item = mappers.MapProductToItem(o.ID, p, quantity)
		if item.ID, err = database.InsertOrderItemInTx(tx, item); err != nil {
			return nil, err
		}
	}

	if err := s.refreshTotals(tx, o); err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes a line from a Pending order and gives its units back to stock.
func (s *Service) RemoveItem(tx *sqlx.Tx, orderID, itemID int64) error {
	o, err := database.GetOrderForUpdateInTx(tx, orderID)
	if err != nil {
		return err
	}
	item, err := database.GetOrderItemByID(tx, itemID)
	if err != nil {
		return err
	}
	if item.OrderID != o.ID {
		return fmt.Errorf("RemoveItem (OrderID: %d, ItemID: %d) belongs to order %d: %w", orderID, itemID, item.OrderID, model.ErrNotFound)
	}
	if o.Status != model.StatusPending {
		return fmt.Errorf("RemoveItem (OrderID: %d, Status: %s): %w", orderID, o.Status, model.ErrOrderClosed)
	}

	err = stock.RestoreInTx(tx, stock.Change{
		ProductID: item.ProductID,
		Delta:     item.Quantity,
		Reason:    model.MovementRestore,
		OrderID:   &o.ID,
	})
	if err != nil {
		return err
	}
	if err := database.DeleteOrderItemInTx(tx, item.ID); err != nil {
		return err
	}
	return s.refreshTotals(tx, o)
}

// Delete removes an order with its items and payments. Stock is restored first,
// except for Cancelled orders whose units went back when they were cancelled.
func (s *Service) Delete(tx *sqlx.Tx, orderID int64) error {
	o, err := database.GetOrderForUpdateInTx(tx, orderID)
	if err != nil {
		return err
	}
	if o.Status != model.StatusCancelled {
		note := fmt.Sprintf("pedido %d eliminado", o.ID)
		if err := s.moveItemsStock(tx, o, +1, model.MovementRestore, note); err != nil {
			return err
		}
	}
	return database.DeleteOrderInTx(tx, o.ID)
}

// UpdateStatus changes the order status. Cancelling returns the order's units to stock;
// leaving Cancelled reserves them again and fails with *model.StockError if they are gone.
func (s *Service) UpdateStatus(tx *sqlx.Tx, orderID int64, status string) (*model.Order, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("UpdateStatus (OrderID: %d, Status: %q): %w", orderID, status, model.ErrInvalidStatus)
	}
	o, err := database.GetOrderForUpdateInTx(tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == status {
		return o, nil
	}

	switch {
	case status == model.StatusCancelled:
		err = s.moveItemsStock(tx, o, +1, model.MovementCancel, "")
	case o.Status == model.StatusCancelled:
		err = s.moveItemsStock(tx, o, -1, model.MovementReinstate, "")
	}
	if err != nil {
		return nil, err
	}

	if err := database.UpdateOrderStatusInTx(tx, o.ID, status); err != nil {
		return nil, err
	}
	o.Status = status
	return o, nil
}

func (s *Service) UpdateAddress(tx *sqlx.Tx, orderID int64, address string) error {
	if _, err := database.GetOrderForUpdateInTx(tx, orderID); err != nil {
		return err
	}
	return database.UpdateOrderAddressInTx(tx, orderID, address)
}

// RecordPayment adds amount to what has been paid on the order. Settling the balance
// to within Epsilon completes the order; anything less leaves it Partial.
func (s *Service) RecordPayment(tx *sqlx.Tx, orderID int64, amount decimal.Decimal, method string) (*model.Payment, *model.Order, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, nil, model.ErrInvalidAmount
	}
	o, err := database.GetOrderForUpdateInTx(tx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.Status == model.StatusCancelled {
		return nil, nil, fmt.Errorf("RecordPayment (OrderID: %d): %w", orderID, model.ErrOrderCancelled)
	}
	eps := s.epsilon()
	if amount.GreaterThan(o.Balance().Add(eps)) {
		return nil, nil, fmt.Errorf("RecordPayment (OrderID: %d, Amount: %s, Balance: %s): %w",
			orderID, amount, o.Balance(), model.ErrOverpayment)
	}
	if method == "" {
		method = "cash"
	}

	p := model.Payment{OrderID: o.ID, Amount: amount, Method: method, PaidAt: model.Now()}
	if p.ID, err = database.InsertPaymentInTx(tx, p); err != nil {
		return nil, nil, err
	}

	o.PaidAmount = o.PaidAmount.Add(amount)
	o.PaymentStatus = model.DerivePaymentStatus(o.Total, o.PaidAmount, eps)
	if o.PaymentStatus == model.PaymentPaid {
		o.Status = model.StatusCompleted
	}
	if err := database.UpdateOrderTotalsInTx(tx, o.ID, o.Total, o.PaidAmount, o.PaymentStatus, o.Status); err != nil {
		return nil, nil, err
	}
	return &p, o, nil
}

// Details loads an order with its client, lines and payments.
func (s *Service) Details(db database.DBTX, orderID int64) (*mappers.OrderDetailsView, error) {
	summary, err := database.GetOrderSummaryByID(db, orderID)
	if err != nil {
		return nil, err
	}
	var client *model.Client
	if summary.ClientID != nil {
		if client, err = database.GetClientByID(db, *summary.ClientID); err != nil {
			return nil, err
		}
	}
	items, err := database.GetOrderItems(db, orderID)
	if err != nil {
		return nil, err
	}
	payments, err := database.GetPaymentsByOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	view := mappers.ToOrderDetailsView(*summary, client, items, payments)
	return &view, nil
}

// refreshTotals recomputes the total from the order's lines and re-derives the payment status.
// The order status itself is left alone; only payments complete an order.
func (s *Service) refreshTotals(tx *sqlx.Tx, o *model.Order) error {
	total, err := database.SumOrderItems(tx, o.ID)
	if err != nil {
		return err
	}
	o.Total = total
	o.PaymentStatus = model.DerivePaymentStatus(o.Total, o.PaidAmount, s.epsilon())
	return database.UpdateOrderTotalsInTx(tx, o.ID, o.Total, o.PaidAmount, o.PaymentStatus, o.Status)
}

// moveItemsStock moves every line's quantity in or out of stock (sign +1 returns units, -1 takes them).
func (s *Service) moveItemsStock(tx *sqlx.Tx, o *model.Order, sign int, reason, note string) error {
	items, err := database.GetOrderItems(tx, o.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		c := stock.Change{
			ProductID: it.ProductID,
			Delta:     sign * it.Quantity,
			Reason:    reason,
			OrderID:   &o.ID,
			Note:      note,
		}
		if sign > 0 {
			err = stock.RestoreInTx(tx, c)
		} else {
			_, err = stock.ApplyInTx(tx, c)
		}
		if err != nil {
			return fmt.Errorf("failed to move stock for order %d: %w", o.ID, err)
		}
	}
	return nil
}
