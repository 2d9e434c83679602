package order

import (
	"net/http"

	"termomaz/database"
	"termomaz/httputil"
	"termomaz/metrics"
	"termomaz/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// GetOrdersHandler lists orders, newest first. Supports ?status=, ?client_id= and ?limit=.
func GetOrdersHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := model.OrderFilters{
			Status:   r.URL.Query().Get("status"),
			ClientID: int64(httputil.QueryInt(r, "client_id", 0)),
			Limit:    httputil.QueryInt(r, "limit", 0),
		}
		if f.Status != "" && !model.ValidStatus(f.Status) {
			httputil.WriteError(w, r, model.ErrInvalidStatus)
			return
		}
		orders, err := database.GetOrders(conn, f)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, orders)
	}
}

func CreateOrderHandler(conn *sqlx.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input model.OrderInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		if err := model.Check(input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		var created *model.Order
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			var err error
			created, err = svc.Create(tx, &input.ClientID, input.ShippingAddress)
			return err
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		metrics.RecordOrderEvent("created")
		zap.L().Info("order created", zap.Int64("order_id", created.ID), zap.Int64("client_id", input.ClientID))
		httputil.WriteJSON(w, http.StatusCreated, created)
	}
}

func GetOrderHandler(conn *sqlx.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		details, err := svc.Details(conn, id)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, details)
	}
}

// AddItemHandler reserves stock for a new or merged order line and answers with the refreshed order.
func AddItemHandler(conn *sqlx.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		var line model.LineRequest
		if !httputil.DecodeJSON(w, r, &line) {
			return
		}
		if err := model.Check(line); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			_, err := svc.AddItem(tx, id, line.ProductID, line.Quantity)
			return err
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		metrics.RecordOrderEvent("item_added")
		zap.L().Info("order item added",
			zap.Int64("order_id", id), zap.Int64("product_id", line.ProductID), zap.Int("quantity", line.Quantity))
		writeDetails(w, r, conn, svc, id, http.StatusOK)
	}
}

func RemoveItemHandler(conn *sqlx.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		itemID, ok := httputil.PathID(w, r, "item_id")
		if !ok {
			return
		}

		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			return svc.RemoveItem(tx, id, itemID)
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		metrics.RecordOrderEvent("item_removed")
		zap.L().Info("order item removed", zap.Int64("order_id", id), zap.Int64("item_id", itemID))
		writeDetails(w, r, conn, svc, id, http.StatusOK)
	}
}

func DeleteOrderHandler(conn *sqlx.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			return svc.Delete(tx, id)
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		metrics.RecordOrderEvent("deleted")
		zap.L().Info("order deleted", zap.Int64("order_id", id))
		httputil.WriteMessage(w, http.StatusOK, "Pedido eliminado.")
	}
}

func UpdateStatusHandler(conn *sqlx.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		var input model.StatusInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		if err := model.Check(input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			_, err := svc.UpdateStatus(tx, id, input.Status)
			return err
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		metrics.RecordOrderEvent("status")
		zap.L().Info("order status updated", zap.Int64("order_id", id), zap.String("status", input.Status))
		writeDetails(w, r, conn, svc, id, http.StatusOK)
	}
}

func UpdateAddressHandler(conn *sqlx.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		var input model.AddressInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		if err := model.Check(input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			return svc.UpdateAddress(tx, id, input.ShippingAddress)
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		writeDetails(w, r, conn, svc, id, http.StatusOK)
	}
}

// RecordPaymentHandler registers money received against an order.
func RecordPaymentHandler(conn *sqlx.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		var input model.PaymentInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		if err := model.Check(input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		var payment *model.Payment
		var updated *model.Order
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			var err error
			payment, updated, err = svc.RecordPayment(tx, id, input.Amount, input.Method)
			return err
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		metrics.RecordPayment(payment.Method, payment.Amount)
		zap.L().Info("payment recorded",
			zap.Int64("order_id", id),
			zap.String("amount", payment.Amount.StringFixed(2)),
			zap.String("payment_status", updated.PaymentStatus))
		httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "Pago registrado.",
			"payment": payment,
			"order":   updated,
		})
	}
}

func GetPaymentsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		if _, err := database.GetOrderByID(conn, id); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		payments, err := database.GetPaymentsByOrder(conn, id)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, payments)
	}
}

func writeDetails(w http.ResponseWriter, r *http.Request, conn *sqlx.DB, svc *Service, id int64, status int) {
	details, err := svc.Details(conn, id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, status, details)
}
