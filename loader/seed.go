package loader

import (
	"fmt"
	"time"

	"termomaz/database"
	"termomaz/model"
	"termomaz/order"
	"termomaz/product"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var demoClients = []model.ClientInput{
	{Name: "Juan Perez", Phone: "555-0101", Email: "juan@example.com", Address: "Av. Reforma 123, CDMX"},
	{Name: "Maria Garcia", Phone: "555-0102", Email: "maria@example.com", Address: "Calle 10 #45, Monterrey"},
	{Name: "Empresa XYZ", Phone: "555-0103", Email: "contacto@xyz.com", Address: "Polanco 456, CDMX"},
}

var demoProducts = []model.ProductInput{
	{Name: "Termo Acero 500ml", Category: "thermos", Price: decimal.NewFromInt(250), Stock: 100, Description: "Termo de acero inoxidable doble pared"},
	{Name: "Termo Deportivo 1L", Category: "thermos", Price: decimal.NewFromInt(350), Stock: 50, Description: "Termo deportivo con boquilla"},
	{Name: "Caja Regalo Chica", Category: "box", Price: decimal.NewFromInt(50), Stock: 200, Description: "Caja de cartón decorada 20x20x20"},
	{Name: "Caja Regalo Grande", Category: "box", Price: decimal.NewFromInt(80), Stock: 150, Description: "Caja de cartón decorada 40x40x40"},
}

// Seed loads demo clients, products and two orders into an empty database.
// Orders go through the order service so totals, stock and the ledger agree from the start.
// It reports whether anything was inserted.
func Seed(db *sqlx.DB, svc *order.Service) (bool, error) {
	n, err := database.CountClients(db)
	if err != nil {
		return false, err
	}
	if n > 0 {
		zap.L().Info("database already contains data, skipping seed")
		return false, nil
	}

	err = database.WithTx(db, func(tx *sqlx.Tx) error {
		clientIDs := make([]int64, 0, len(demoClients))
		for _, c := range demoClients {
			id, err := database.CreateClientInTx(tx, c)
			if err != nil {
				return err
			}
			clientIDs = append(clientIDs, id)
		}

		productIDs := make([]int64, 0, len(demoProducts))
		for _, p := range demoProducts {
			id, err := product.CreateInTx(tx, p)
			if err != nil {
				return err
			}
			productIDs = append(productIDs, id)
		}

		now := model.Now()

		// Completed and paid in full five days ago.
		first, err := svc.Create(tx, &clientIDs[0], "")
		if err != nil {
			return err
		}
		if _, err := svc.AddItem(tx, first.ID, productIDs[0], 2); err != nil {
			return err
		}
		if err := database.SetOrderDateInTx(tx, first.ID, now.Add(-5*24*time.Hour)); err != nil {
			return err
		}
		if _, _, err := svc.RecordPayment(tx, first.ID, decimal.NewFromInt(500), "cash"); err != nil {
			return fmt.Errorf("failed to settle demo order: %w", err)
		}

		// Still pending from yesterday.
		second, err := svc.Create(tx, &clientIDs[1], "")
		if err != nil {
			return err
		}
		if _, err := svc.AddItem(tx, second.ID, productIDs[1], 1); err != nil {
			return err
		}
		if _, err := svc.AddItem(tx, second.ID, productIDs[2], 5); err != nil {
			return err
		}
		return database.SetOrderDateInTx(tx, second.ID, now.Add(-24*time.Hour))
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed database: %w", err)
	}

	zap.L().Info("database seeded", zap.Int("clients", len(demoClients)), zap.Int("products", len(demoProducts)), zap.Int("orders", 2))
	return true, nil
}
