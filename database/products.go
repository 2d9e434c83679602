package database

import (
	"database/sql"
	"errors"
	"fmt"

	"termomaz/model"

	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, category, price, stock, description`

func GetAllProducts(db DBTX, f model.ProductFilters) ([]model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []interface{}
	if f.Name != "" {
		q += ` AND name LIKE ?`
		args = append(args, "%"+f.Name+"%")
	}
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	q += ` ORDER BY category, name, id`

	products := []model.Product{}
	if err := db.Select(&products, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

func GetProductByID(db DBTX, id int64) (*model.Product, error) {
	var p model.Product
	err := db.Get(&p, db.Rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(fmt.Sprintf("GetProductByID (ID: %d)", id), err)
	}
	return &p, nil
}

// GetProductForUpdateInTx reads a product inside tx, taking a row lock where the driver supports it.
func GetProductForUpdateInTx(tx *sqlx.Tx, id int64) (*model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	if isPostgres(tx) {
		q += ` FOR UPDATE`
	}
	var p model.Product
	if err := tx.Get(&p, tx.Rebind(q), id); err != nil {
		return nil, notFound(fmt.Sprintf("GetProductForUpdateInTx (ID: %d)", id), err)
	}
	return &p, nil
}

// GetProductByName returns nil without error when no product has that exact name.
func GetProductByName(db DBTX, name string) (*model.Product, error) {
	var p model.Product
	err := db.Get(&p, db.Rebind(`SELECT `+productColumns+` FROM products WHERE name = ? ORDER BY id LIMIT 1`), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetProductByName (Name: %s) failed: %w", name, err)
	}
	return &p, nil
}

func CreateProductInTx(tx *sqlx.Tx, in model.ProductInput) (int64, error) {
	const q = `INSERT INTO products (name, category, price, stock, description) VALUES (?, ?, ?, ?, ?) RETURNING id`
	var id int64
	if err := tx.Get(&id, tx.Rebind(q), in.Name, in.Category, in.Price, in.Stock, in.Description); err != nil {
		return 0, fmt.Errorf("CreateProductInTx (Name: %s) failed: %w", in.Name, err)
	}
	return id, nil
}

// UpdateProductDetailsInTx rewrites everything except stock, which only moves through the stock ledger.
func UpdateProductDetailsInTx(tx *sqlx.Tx, id int64, in model.ProductInput) error {
	const q = `UPDATE products SET name = ?, category = ?, price = ?, description = ? WHERE id = ?`
	res, err := tx.Exec(tx.Rebind(q), in.Name, in.Category, in.Price, in.Description, id)
	if err != nil {
		return fmt.Errorf("UpdateProductDetailsInTx (ID: %d) failed: %w", id, err)
	}
	return expectOne(fmt.Sprintf("UpdateProductDetailsInTx (ID: %d)", id), res)
}

// AddStockInTx applies delta to a product's stock unless that would make it negative.
// The boolean is false when the product exists but does not have enough stock.
func AddStockInTx(tx *sqlx.Tx, id int64, delta int) (stockAfter int, ok bool, err error) {
	const q = `UPDATE products SET stock = stock + ? WHERE id = ? AND stock + ? >= 0 RETURNING stock`
	err = tx.Get(&stockAfter, tx.Rebind(q), delta, id, delta)
	if err == nil {
		return stockAfter, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("AddStockInTx (ID: %d, Delta: %d) failed: %w", id, delta, err)
	}
	if _, err := GetProductByID(tx, id); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// DeleteProductInTx refuses to delete a product that appears on any order line.
func DeleteProductInTx(tx *sqlx.Tx, id int64) error {
	inUse, err := ProductIsReferenced(tx, id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("DeleteProductInTx (ID: %d): %w", id, model.ErrInUse)
	}
	if _, err := tx.Exec(tx.Rebind(`DELETE FROM stock_movements WHERE product_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete stock movements of product %d: %w", id, err)
	}
	res, err := tx.Exec(tx.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product with id %d: %w", id, err)
	}
	return expectOne(fmt.Sprintf("DeleteProductInTx (ID: %d)", id), res)
}

func ProductIsReferenced(db DBTX, id int64) (bool, error) {
	var n int
	if err := db.Get(&n, db.Rebind(`SELECT COUNT(*) FROM order_items WHERE product_id = ?`), id); err != nil {
		return false, fmt.Errorf("ProductIsReferenced (ID: %d) failed: %w", id, err)
	}
	return n > 0, nil
}

func CountProducts(db DBTX) (int, error) {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, fmt.Errorf("CountProducts failed: %w", err)
	}
	return n, nil
}

// GetLowStockProducts lists products at or below threshold units, emptiest first.
func GetLowStockProducts(db DBTX, threshold int) ([]model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE stock <= ? ORDER BY stock, name`
	products := []model.Product{}
	if err := db.Select(&products, db.Rebind(q), threshold); err != nil {
		return nil, fmt.Errorf("GetLowStockProducts (Threshold: %d) failed: %w", threshold, err)
	}
	return products, nil
}

func GetProductCategories(db DBTX) ([]string, error) {
	categories := []string{}
	err := db.Select(&categories, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("GetProductCategories failed: %w", err)
	}
	return categories, nil
}
