// Package testutil opens migrated in-memory databases for package tests.
package testutil

import (
	"testing"

	"termomaz/database"
	"termomaz/loader"
	"termomaz/model"
	"termomaz/product"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// OpenDB returns a fresh, fully migrated SQLite database that lives for the test.
// A single connection keeps the in-memory database alive across calls.
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, loader.Migrate(db))
	return db
}

func CreateClient(t testing.TB, db *sqlx.DB, name, address string) int64 {
	t.Helper()
	var id int64
	err := database.WithTx(db, func(tx *sqlx.Tx) error {
		var err error
		id, err = database.CreateClientInTx(tx, model.ClientInput{Name: name, Address: address})
		return err
	})
	require.NoError(t, err)
	return id
}

// CreateProduct adds a product with opening stock through the ledger.
func CreateProduct(t testing.TB, db *sqlx.DB, name, price string, stock int) int64 {
	t.Helper()
	var id int64
	err := database.WithTx(db, func(tx *sqlx.Tx) error {
		var err error
		id, err = product.CreateInTx(tx, model.ProductInput{
			Name:     name,
			Category: "thermos",
			Price:    decimal.RequireFromString(price),
			Stock:    stock,
		})
		return err
	})
	require.NoError(t, err)
	return id
}

func Stock(t testing.TB, db *sqlx.DB, productID int64) int {
	t.Helper()
	p, err := database.GetProductByID(db, productID)
	require.NoError(t, err)
	return p.Stock
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
