package stock

import (
	"errors"
	"fmt"

	"termomaz/database"
	"termomaz/model"

	"github.com/jmoiron/sqlx"
)

// Change is one movement of a product's stock.
type Change struct {
	ProductID int64
	Delta     int
	Reason    string
	OrderID   *int64
	Note      string
}

// ApplyInTx moves the product's stock by c.Delta and records the movement in the ledger.
// Taking more units than are on hand fails with *model.StockError and leaves stock untouched.
func ApplyInTx(tx *sqlx.Tx, c Change) (stockAfter int, err error) {
	if c.Delta == 0 {
		p, err := database.GetProductByID(tx, c.ProductID)
		if err != nil {
			return 0, err
		}
		return p.Stock, nil
	}

	after, ok, err := database.AddStockInTx(tx, c.ProductID, c.Delta)
	if err != nil {
		return 0, err
	}
	if !ok {
		p, err := database.GetProductByID(tx, c.ProductID)
		if err != nil {
			return 0, err
		}
		return 0, &model.StockError{ProductID: p.ID, ProductName: p.Name, Requested: -c.Delta, Available: p.Stock}
	}

	err = database.InsertStockMovementInTx(tx, model.StockMovement{
		ProductID:  c.ProductID,
		OrderID:    c.OrderID,
		Delta:      c.Delta,
		StockAfter: after,
		Reason:     c.Reason,
		Note:       c.Note,
		CreatedAt:  model.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record stock movement: %w", err)
	}
	return after, nil
}

// RestoreInTx gives units back to a product. A product that no longer exists is skipped.
func RestoreInTx(tx *sqlx.Tx, c Change) error {
	_, err := ApplyInTx(tx, c)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

// SetInTx moves stock to an absolute value through the ledger.
func SetInTx(tx *sqlx.Tx, productID int64, target int, reason, note string) (int, error) {
	if target < 0 {
		return 0, model.NewValidationError("stock", "no puede ser negativo")
	}
	p, err := database.GetProductForUpdateInTx(tx, productID)
	if err != nil {
		return 0, err
	}
	return ApplyInTx(tx, Change{ProductID: productID, Delta: target - p.Stock, Reason: reason, Note: note})
}
