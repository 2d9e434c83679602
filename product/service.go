package product

import (
	"termomaz/database"
	"termomaz/model"
	"termomaz/parsers"
	"termomaz/stock"

	"github.com/jmoiron/sqlx"
)

// CreateInTx inserts a product with no stock and books its opening stock through the ledger.
func CreateInTx(tx *sqlx.Tx, in model.ProductInput) (int64, error) {
	return createInTx(tx, in, model.MovementCreate)
}

func createInTx(tx *sqlx.Tx, in model.ProductInput, reason string) (int64, error) {
	opening := in.Stock
	if opening < 0 {
		return 0, model.NewValidationError("stock", "no puede ser negativo")
	}
	in.Stock = 0
	id, err := database.CreateProductInTx(tx, in)
	if err != nil {
		return 0, err
	}
	if opening > 0 {
		if _, err := stock.ApplyInTx(tx, stock.Change{ProductID: id, Delta: opening, Reason: reason}); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// UpdateInTx rewrites a product's details and moves its stock to in.Stock through the ledger.
func UpdateInTx(tx *sqlx.Tx, id int64, in model.ProductInput) error {
	if err := database.UpdateProductDetailsInTx(tx, id, in); err != nil {
		return err
	}
	_, err := stock.SetInTx(tx, id, in.Stock, model.MovementAdjust, "edición de producto")
	return err
}

// ImportRowInTx updates the product with the same name or creates it. A row without
// a stock column keeps the existing stock.
func ImportRowInTx(tx *sqlx.Tx, row parsers.ProductRow) (created bool, err error) {
	existing, err := database.GetProductByName(tx, row.Name)
	if err != nil {
		return false, err
	}
	if existing == nil {
		in := row.ProductInput
		if !row.HasStock {
			in.Stock = 0
		}
		_, err := createInTx(tx, in, model.MovementImport)
		return err == nil, err
	}

	if err := database.UpdateProductDetailsInTx(tx, existing.ID, row.ProductInput); err != nil {
		return false, err
	}
	if row.HasStock {
		if _, err := stock.SetInTx(tx, existing.ID, row.Stock, model.MovementImport, "importación CSV"); err != nil {
			return false, err
		}
	}
	return false, nil
}
