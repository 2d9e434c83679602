package database

import (
	"fmt"

	"termomaz/model"

	"github.com/jmoiron/sqlx"
)

func InsertStockMovementInTx(tx *sqlx.Tx, m model.StockMovement) error {
	const q = `
		INSERT INTO stock_movements (product_id, order_id, delta, stock_after, reason, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.Exec(tx.Rebind(q), m.ProductID, m.OrderID, m.Delta, m.StockAfter, m.Reason, m.Note, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("InsertStockMovementInTx (ProductID: %d, Reason: %s) failed: %w", m.ProductID, m.Reason, err)
	}
	return nil
}

// GetStockMovements returns a product's ledger newest first. limit <= 0 returns everything.
func GetStockMovements(db DBTX, productID int64, limit int) ([]model.StockMovement, error) {
	q := `SELECT id, product_id, order_id, delta, stock_after, reason, note, created_at
		FROM stock_movements WHERE product_id = ? ORDER BY id DESC`
	args := []interface{}{productID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	movements := []model.StockMovement{}
	if err := db.Select(&movements, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("GetStockMovements (ProductID: %d) failed: %w", productID, err)
	}
	return movements, nil
}
