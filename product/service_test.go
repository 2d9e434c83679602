package product_test

import (
	"testing"

	"termomaz/database"
	"termomaz/model"
	"termomaz/parsers"
	"termomaz/product"
	"termomaz/testutil"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movements(t *testing.T, db *sqlx.DB, id int64) []model.StockMovement {
	t.Helper()
	m, err := database.GetStockMovements(db, id, 0)
	require.NoError(t, err)
	return m
}

// requireLedgerMatchesStock checks that the ledger sums to the stored stock.
func requireLedgerMatchesStock(t *testing.T, db *sqlx.DB, id int64) {
	t.Helper()
	sum := 0
	for _, m := range movements(t, db, id) {
		sum += m.Delta
	}
	require.Equal(t, testutil.Stock(t, db, id), sum)
}

func importRow(t *testing.T, db *sqlx.DB, row parsers.ProductRow) (bool, error) {
	t.Helper()
	var created bool
	err := database.WithTx(db, func(tx *sqlx.Tx) error {
		var err error
		created, err = product.ImportRowInTx(tx, row)
		return err
	})
	return created, err
}

func row(name, price string, stock int, hasStock bool) parsers.ProductRow {
	return parsers.ProductRow{
		ProductInput: model.ProductInput{Name: name, Category: "thermos", Price: testutil.Dec(price), Stock: stock},
		HasStock:     hasStock,
	}
}

func TestUpdateInTxMovesStockThroughLedger(t *testing.T) {
	db := testutil.OpenDB(t)
	id := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 10)

	in := model.ProductInput{Name: "Termo Acero 500ml", Category: "thermos", Price: testutil.Dec("275"), Stock: 4, Description: "Nueva tapa"}
	require.NoError(t, database.WithTx(db, func(tx *sqlx.Tx) error {
		return product.UpdateInTx(tx, id, in)
	}))

	p, err := database.GetProductByID(db, id)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)
	assert.True(t, p.Price.Equal(testutil.Dec("275")))
	assert.Equal(t, "Nueva tapa", p.Description)

	m := movements(t, db, id)
	require.Len(t, m, 2)
	assert.Equal(t, model.MovementAdjust, m[0].Reason)
	assert.Equal(t, -6, m[0].Delta)
	assert.Equal(t, 4, m[0].StockAfter)
	requireLedgerMatchesStock(t, db, id)
}

func TestUpdateInTxSameStockAddsNoMovement(t *testing.T) {
	db := testutil.OpenDB(t)
	id := testutil.CreateProduct(t, db, "Caja Regalo Chica", "50", 20)

	in := model.ProductInput{Name: "Caja Regalo Chica", Category: "box", Price: testutil.Dec("55"), Stock: 20}
	require.NoError(t, database.WithTx(db, func(tx *sqlx.Tx) error {
		return product.UpdateInTx(tx, id, in)
	}))
	assert.Len(t, movements(t, db, id), 1)
	requireLedgerMatchesStock(t, db, id)
}

func TestUpdateInTxRejectsNegativeStock(t *testing.T) {
	db := testutil.OpenDB(t)
	id := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 10)

	in := model.ProductInput{Name: "Otro nombre", Price: testutil.Dec("1"), Stock: -1}
	err := database.WithTx(db, func(tx *sqlx.Tx) error {
		return product.UpdateInTx(tx, id, in)
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	p, err := database.GetProductByID(db, id)
	require.NoError(t, err)
	assert.Equal(t, "Termo Acero 500ml", p.Name, "details roll back with the stock change")
	assert.Equal(t, 10, p.Stock)
}

func TestUpdateInTxUnknownProduct(t *testing.T) {
	db := testutil.OpenDB(t)
	err := database.WithTx(db, func(tx *sqlx.Tx) error {
		return product.UpdateInTx(tx, 999, model.ProductInput{Name: "Nada", Price: testutil.Dec("1")})
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestImportRowCreates(t *testing.T) {
	db := testutil.OpenDB(t)

	created, err := importRow(t, db, row("Termo Deportivo 1L", "350", 12, true))
	require.NoError(t, err)
	assert.True(t, created)

	p, err := database.GetProductByName(db, "Termo Deportivo 1L")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 12, p.Stock)
	m := movements(t, db, p.ID)
	require.Len(t, m, 1)
	assert.Equal(t, model.MovementImport, m[0].Reason)

	created, err = importRow(t, db, row("Caja Regalo Grande", "80", 30, false))
	require.NoError(t, err)
	assert.True(t, created)
	p, err = database.GetProductByName(db, "Caja Regalo Grande")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock, "a new product without a stock column starts empty")
	assert.Empty(t, movements(t, db, p.ID))
}

func TestImportRowUpdatesExisting(t *testing.T) {
	db := testutil.OpenDB(t)
	id := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 10)

	created, err := importRow(t, db, row("Termo Acero 500ml", "260", 15, true))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 15, testutil.Stock(t, db, id))
	m := movements(t, db, id)
	require.Len(t, m, 2)
	assert.Equal(t, model.MovementImport, m[0].Reason)
	assert.Equal(t, 5, m[0].Delta)
	requireLedgerMatchesStock(t, db, id)

	created, err = importRow(t, db, row("Termo Acero 500ml", "270", 0, false))
	require.NoError(t, err)
	assert.False(t, created)
	p, err := database.GetProductByID(db, id)
	require.NoError(t, err)
	assert.Equal(t, 15, p.Stock, "no stock column keeps the current stock")
	assert.True(t, p.Price.Equal(testutil.Dec("270")))
	assert.Len(t, movements(t, db, id), 2)
	requireLedgerMatchesStock(t, db, id)
}

func TestImportRowRejectsNegativeStock(t *testing.T) {
	db := testutil.OpenDB(t)
	id := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 10)

	_, err := importRow(t, db, row("Termo Acero 500ml", "999", -3, true))
	assert.ErrorIs(t, err, model.ErrValidation)
	p, err := database.GetProductByID(db, id)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
	assert.True(t, p.Price.Equal(testutil.Dec("250")))

	_, err = importRow(t, db, row("Termo Nuevo", "100", -1, true))
	assert.ErrorIs(t, err, model.ErrValidation)
	p, err = database.GetProductByName(db, "Termo Nuevo")
	require.NoError(t, err)
	assert.Nil(t, p)
}
