package database

import (
	"fmt"
	"time"

	"termomaz/model"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const orderColumns = `o.id, o.client_id, o.status, o.date, o.shipping_address, o.total, o.paid_amount, o.payment_status, o.receipt_number`

const orderSummarySelect = `SELECT ` + orderColumns + `, COALESCE(c.name, '') AS client_name
	FROM orders o LEFT JOIN clients c ON c.id = o.client_id`

// GetOrders lists orders newest first with their client names.
func GetOrders(db DBTX, f model.OrderFilters) ([]model.OrderSummary, error) {
	q := orderSummarySelect + ` WHERE 1=1`
	var args []interface{}
	if f.Status != "" {
		q += ` AND o.status = ?`
		args = append(args, f.Status)
	}
	if f.ClientID > 0 {
		q += ` AND o.client_id = ?`
		args = append(args, f.ClientID)
	}
	q += ` ORDER BY o.date DESC, o.id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	orders := []model.OrderSummary{}
	if err := db.Select(&orders, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, nil
}

func GetOrderByID(db DBTX, id int64) (*model.Order, error) {
	var o model.Order
	err := db.Get(&o, db.Rebind(`SELECT `+orderColumns+` FROM orders o WHERE o.id = ?`), id)
	if err != nil {
		return nil, notFound(fmt.Sprintf("GetOrderByID (ID: %d)", id), err)
	}
	return &o, nil
}

// GetOrderForUpdateInTx reads an order inside tx, taking a row lock where the driver supports it.
func GetOrderForUpdateInTx(tx *sqlx.Tx, id int64) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = ?`
	if isPostgres(tx) {
		q += ` FOR UPDATE`
	}
	var o model.Order
	if err := tx.Get(&o, tx.Rebind(q), id); err != nil {
		return nil, notFound(fmt.Sprintf("GetOrderForUpdateInTx (ID: %d)", id), err)
	}
	return &o, nil
}

func GetOrderSummaryByID(db DBTX, id int64) (*model.OrderSummary, error) {
	var o model.OrderSummary
	if err := db.Get(&o, db.Rebind(orderSummarySelect+` WHERE o.id = ?`), id); err != nil {
		return nil, notFound(fmt.Sprintf("GetOrderSummaryByID (ID: %d)", id), err)
	}
	return &o, nil
}

func InsertOrderInTx(tx *sqlx.Tx, o *model.Order) (int64, error) {
	const q = `
		INSERT INTO orders (client_id, status, date, shipping_address, total, paid_amount, payment_status, receipt_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	var id int64
	err := tx.Get(&id, tx.Rebind(q),
		o.ClientID, o.Status, o.Date, o.ShippingAddress, o.Total, o.PaidAmount, o.PaymentStatus, o.ReceiptNumber)
	if err != nil {
		return 0, fmt.Errorf("InsertOrderInTx failed: %w", err)
	}
	return id, nil
}

// UpdateOrderTotalsInTx stores the bookkeeping columns of an order in one statement.
func UpdateOrderTotalsInTx(tx *sqlx.Tx, id int64, total, paid decimal.Decimal, paymentStatus, status string) error {
	const q = `UPDATE orders SET total = ?, paid_amount = ?, payment_status = ?, status = ? WHERE id = ?`
	res, err := tx.Exec(tx.Rebind(q), total, paid, paymentStatus, status, id)
	if err != nil {
		return fmt.Errorf("UpdateOrderTotalsInTx (ID: %d) failed: %w", id, err)
	}
	return expectOne(fmt.Sprintf("UpdateOrderTotalsInTx (ID: %d)", id), res)
}

func UpdateOrderStatusInTx(tx *sqlx.Tx, id int64, status string) error {
	res, err := tx.Exec(tx.Rebind(`UPDATE orders SET status = ? WHERE id = ?`), status, id)
	if err != nil {
		return fmt.Errorf("UpdateOrderStatusInTx (ID: %d, Status: %s) failed: %w", id, status, err)
	}
	return expectOne(fmt.Sprintf("UpdateOrderStatusInTx (ID: %d)", id), res)
}

func UpdateOrderAddressInTx(tx *sqlx.Tx, id int64, address string) error {
	res, err := tx.Exec(tx.Rebind(`UPDATE orders SET shipping_address = ? WHERE id = ?`), address, id)
	if err != nil {
		return fmt.Errorf("UpdateOrderAddressInTx (ID: %d) failed: %w", id, err)
	}
	return expectOne(fmt.Sprintf("UpdateOrderAddressInTx (ID: %d)", id), res)
}

// SetOrderDateInTx backdates an order. Used when loading historical or demo data.
func SetOrderDateInTx(tx *sqlx.Tx, id int64, date time.Time) error {
	res, err := tx.Exec(tx.Rebind(`UPDATE orders SET date = ? WHERE id = ?`), date.UTC(), id)
	if err != nil {
		return fmt.Errorf("SetOrderDateInTx (ID: %d) failed: %w", id, err)
	}
	return expectOne(fmt.Sprintf("SetOrderDateInTx (ID: %d)", id), res)
}

func SetReceiptNumberInTx(tx *sqlx.Tx, id int64, receipt string) error {
	res, err := tx.Exec(tx.Rebind(`UPDATE orders SET receipt_number = ? WHERE id = ?`), receipt, id)
	if err != nil {
		return fmt.Errorf("SetReceiptNumberInTx (ID: %d) failed: %w", id, err)
	}
	return expectOne(fmt.Sprintf("SetReceiptNumberInTx (ID: %d)", id), res)
}

// DeleteOrderInTx removes an order with its payments and lines. Stock is the caller's concern.
func DeleteOrderInTx(tx *sqlx.Tx, id int64) error {
	if _, err := tx.Exec(tx.Rebind(`DELETE FROM payments WHERE order_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete payments of order %d: %w", id, err)
	}
	if _, err := tx.Exec(tx.Rebind(`DELETE FROM order_items WHERE order_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete items of order %d: %w", id, err)
	}
	if _, err := tx.Exec(tx.Rebind(`UPDATE stock_movements SET order_id = NULL WHERE order_id = ?`), id); err != nil {
		return fmt.Errorf("failed to detach stock movements of order %d: %w", id, err)
	}
	res, err := tx.Exec(tx.Rebind(`DELETE FROM orders WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete order with id %d: %w", id, err)
	}
	return expectOne(fmt.Sprintf("DeleteOrderInTx (ID: %d)", id), res)
}

func CountOrdersByStatus(db DBTX, status string) (int, error) {
	var n int
	if err := db.Get(&n, db.Rebind(`SELECT COUNT(*) FROM orders WHERE status = ?`), status); err != nil {
		return 0, fmt.Errorf("CountOrdersByStatus (Status: %s) failed: %w", status, err)
	}
	return n, nil
}
