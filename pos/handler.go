package pos

import (
	"net/http"

	"termomaz/database"
	"termomaz/httputil"
	"termomaz/metrics"
	"termomaz/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SaleHandler checks out a counter sale in a single transaction.
func SaleHandler(conn *sqlx.DB, reg *Register) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.SaleRequest
		if !httputil.DecodeJSON(w, r, &req) {
			return
		}
		if err := model.Check(req); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		var receipt *model.SaleReceipt
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			var err error
			receipt, err = reg.Sale(tx, req)
			return err
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		metrics.RecordSale()
		metrics.RecordOrderEvent("created")
		if receipt.Payment != nil {
			metrics.RecordPayment(receipt.Payment.Method, receipt.Payment.Amount)
		}
		zap.L().Info("pos sale completed",
			zap.Int64("order_id", receipt.Order.ID),
			zap.String("receipt", receipt.Order.ReceiptNumber),
			zap.String("total", receipt.Order.Total.StringFixed(2)),
			zap.String("payment_status", receipt.Order.PaymentStatus))
		httputil.WriteJSON(w, http.StatusCreated, receipt)
	}
}
