package stock

import (
	"net/http"

	"termomaz/database"
	"termomaz/httputil"
	"termomaz/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AdjustStockHandler applies a manual correction (breakage, recount, delivery) to a product's stock.
func AdjustStockHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		var input model.StockAdjustment
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		if err := model.Check(input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		var after int
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			var err error
			after, err = ApplyInTx(tx, Change{ProductID: id, Delta: input.Delta, Reason: model.MovementAdjust, Note: input.Note})
			return err
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		zap.L().Info("stock adjusted", zap.Int64("product_id", id), zap.Int("delta", input.Delta), zap.Int("stock", after))
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Stock actualizado.",
			"stock":   after,
		})
	}
}

// GetMovementsHandler returns a product's stock ledger, newest first.
func GetMovementsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		if _, err := database.GetProductByID(conn, id); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		limit := httputil.QueryInt(r, "limit", 100)
		movements, err := database.GetStockMovements(conn, id, limit)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, movements)
	}
}
