package database

import (
	"fmt"

	"termomaz/model"
)

// dateRange appends the optional [From, To) bounds of f on column col.
func dateRange(q string, args []interface{}, col string, f model.ReportFilters) (string, []interface{}) {
	if !f.From.IsZero() {
		q += ` AND ` + col + ` >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		q += ` AND ` + col + ` < ?`
		args = append(args, f.To.UTC())
	}
	return q, args
}

// GetCompletedSales lists completed orders within the filter's date range, oldest first.
func GetCompletedSales(db DBTX, f model.ReportFilters) ([]model.SaleRow, error) {
	q := `SELECT id, date, total, paid_amount FROM orders WHERE status = ?`
	args := []interface{}{model.StatusCompleted}
	q, args = dateRange(q, args, "date", f)
	q += ` ORDER BY date, id`

	rows := []model.SaleRow{}
	if err := db.Select(&rows, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("GetCompletedSales failed: %w", err)
	}
	return rows, nil
}

// GetTopProducts ranks products by units sold on completed orders.
func GetTopProducts(db DBTX, f model.ReportFilters) ([]model.TopProduct, error) {
	q := `
		SELECT i.product_id, COALESCE(p.name, '') AS product_name,
			SUM(i.quantity) AS quantity, SUM(i.quantity * i.price_at_time) AS revenue
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		LEFT JOIN products p ON p.id = i.product_id
		WHERE o.status = ?`
	args := []interface{}{model.StatusCompleted}
	q, args = dateRange(q, args, "o.date", f)
	q += ` GROUP BY i.product_id, p.name ORDER BY quantity DESC, revenue DESC, i.product_id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	top := []model.TopProduct{}
	if err := db.Select(&top, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("GetTopProducts failed: %w", err)
	}
	for i := range top {
		top[i].Revenue = top[i].Revenue.Round(2)
	}
	return top, nil
}

// GetReceivableOrders lists live orders that still have money owed, oldest first.
func GetReceivableOrders(db DBTX) ([]model.OrderSummary, error) {
	q := orderSummarySelect + ` WHERE o.status <> ? AND o.payment_status <> ? AND o.total > 0 ORDER BY o.date, o.id`
	orders := []model.OrderSummary{}
	if err := db.Select(&orders, db.Rebind(q), model.StatusCancelled, model.PaymentPaid); err != nil {
		return nil, fmt.Errorf("GetReceivableOrders failed: %w", err)
	}
	return orders, nil
}
