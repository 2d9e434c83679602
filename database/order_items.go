package database

import (
	"database/sql"
	"errors"
	"fmt"

	"termomaz/model"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const orderItemColumns = `id, order_id, product_id, quantity, price_at_time`

// GetOrderItems lists the lines of an order in insertion order, with product names.
func GetOrderItems(db DBTX, orderID int64) ([]model.OrderItemView, error) {
	const q = `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.price_at_time, COALESCE(p.name, '') AS product_name
		FROM order_items i LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ?
		ORDER BY i.id`
	items := []model.OrderItemView{}
	if err := db.Select(&items, db.Rebind(q), orderID); err != nil {
		return nil, fmt.Errorf("GetOrderItems (OrderID: %d) failed: %w", orderID, err)
	}
	return items, nil
}

func GetOrderItemByID(db DBTX, id int64) (*model.OrderItem, error) {
	var it model.OrderItem
	err := db.Get(&it, db.Rebind(`SELECT `+orderItemColumns+` FROM order_items WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(fmt.Sprintf("GetOrderItemByID (ID: %d)", id), err)
	}
	return &it, nil
}

// FindOrderItem returns the line for productID on orderID, or nil when there is none.
func FindOrderItem(db DBTX, orderID, productID int64) (*model.OrderItem, error) {
	const q = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = ? AND product_id = ? ORDER BY id LIMIT 1`
	var it model.OrderItem
	err := db.Get(&it, db.Rebind(q), orderID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("FindOrderItem (OrderID: %d, ProductID: %d) failed: %w", orderID, productID, err)
	}
	return &it, nil
}

func InsertOrderItemInTx(tx *sqlx.Tx, it model.OrderItem) (int64, error) {
	const q = `INSERT INTO order_items (order_id, product_id, quantity, price_at_time) VALUES (?, ?, ?, ?) RETURNING id`
	var id int64
	if err := tx.Get(&id, tx.Rebind(q), it.OrderID, it.ProductID, it.Quantity, it.PriceAtTime); err != nil {
		return 0, fmt.Errorf("InsertOrderItemInTx (OrderID: %d, ProductID: %d) failed: %w", it.OrderID, it.ProductID, err)
	}
	return id, nil
}

func UpdateOrderItemQuantityInTx(tx *sqlx.Tx, id int64, quantity int) error {
	res, err := tx.Exec(tx.Rebind(`UPDATE order_items SET quantity = ? WHERE id = ?`), quantity, id)
	if err != nil {
		return fmt.Errorf("UpdateOrderItemQuantityInTx (ID: %d) failed: %w", id, err)
	}
	return expectOne(fmt.Sprintf("UpdateOrderItemQuantityInTx (ID: %d)", id), res)
}

func DeleteOrderItemInTx(tx *sqlx.Tx, id int64) error {
	res, err := tx.Exec(tx.Rebind(`DELETE FROM order_items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete order item with id %d: %w", id, err)
	}
	return expectOne(fmt.Sprintf("DeleteOrderItemInTx (ID: %d)", id), res)
}

// SumOrderItems returns Σ quantity × price_at_time over an order's lines.
// The sum is taken in decimal on the Go side so SQLite's float arithmetic never touches money.
func SumOrderItems(db DBTX, orderID int64) (decimal.Decimal, error) {
	var items []model.OrderItem
	q := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = ?`
	if err := db.Select(&items, db.Rebind(q), orderID); err != nil {
		return decimal.Zero, fmt.Errorf("SumOrderItems (OrderID: %d) failed: %w", orderID, err)
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total.Round(2), nil
}
