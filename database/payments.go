package database

import (
	"fmt"

	"termomaz/model"

	"github.com/jmoiron/sqlx"
)

func InsertPaymentInTx(tx *sqlx.Tx, p model.Payment) (int64, error) {
	const q = `INSERT INTO payments (order_id, amount, method, paid_at) VALUES (?, ?, ?, ?) RETURNING id`
	var id int64
	if err := tx.Get(&id, tx.Rebind(q), p.OrderID, p.Amount, p.Method, p.PaidAt); err != nil {
		return 0, fmt.Errorf("InsertPaymentInTx (OrderID: %d) failed: %w", p.OrderID, err)
	}
	return id, nil
}

func GetPaymentsByOrder(db DBTX, orderID int64) ([]model.Payment, error) {
	const q = `SELECT id, order_id, amount, method, paid_at FROM payments WHERE order_id = ? ORDER BY paid_at, id`
	payments := []model.Payment{}
	if err := db.Select(&payments, db.Rebind(q), orderID); err != nil {
		return nil, fmt.Errorf("GetPaymentsByOrder (OrderID: %d) failed: %w", orderID, err)
	}
	return payments, nil
}
