package main

import (
	"context"
	"net/http"
	"time"

	"termomaz/backup"
	"termomaz/client"
	"termomaz/httputil"
	"termomaz/invoice"
	"termomaz/metrics"
	"termomaz/order"
	"termomaz/pos"
	"termomaz/product"
	"termomaz/report"
	"termomaz/stock"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
)

// deps bundles what the handlers need beyond the connection.
type deps struct {
	db       *sqlx.DB
	orders   *order.Service
	register *pos.Register
	printer  invoice.Printer
	backups  *backup.Manager
}

const idPath = "{id:[0-9]+}"

func SetupRoutes(r *mux.Router, d deps) {
	dbConn := d.db

	r.HandleFunc("/healthz", healthHandler(dbConn)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/dashboard", report.GetDashboardHandler(dbConn)).Methods(http.MethodGet)

	api.HandleFunc("/config", GetConfigHandler()).Methods(http.MethodGet)
	api.HandleFunc("/config", SaveConfigHandler()).Methods(http.MethodPost)

	api.HandleFunc("/clients", client.GetClientsHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/clients", client.CreateClientHandler(dbConn)).Methods(http.MethodPost)
	api.HandleFunc("/clients/import", client.ImportClientsHandler(dbConn)).Methods(http.MethodPost)
	api.HandleFunc("/clients/export", client.ExportClientsHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/clients/"+idPath, client.GetClientHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/clients/"+idPath, client.UpdateClientHandler(dbConn)).Methods(http.MethodPut)
	api.HandleFunc("/clients/"+idPath, client.DeleteClientHandler(dbConn)).Methods(http.MethodDelete)

	api.HandleFunc("/products", product.GetProductsHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/products", product.CreateProductHandler(dbConn)).Methods(http.MethodPost)
	api.HandleFunc("/products/categories", product.GetCategoriesHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/products/low_stock", product.GetLowStockHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/products/import", product.ImportProductsHandler(dbConn)).Methods(http.MethodPost)
	api.HandleFunc("/products/export", product.ExportProductsHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/products/"+idPath, product.GetProductHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/products/"+idPath, product.UpdateProductHandler(dbConn)).Methods(http.MethodPut)
	api.HandleFunc("/products/"+idPath, product.DeleteProductHandler(dbConn)).Methods(http.MethodDelete)
	api.HandleFunc("/products/"+idPath+"/adjust", stock.AdjustStockHandler(dbConn)).Methods(http.MethodPost)
	api.HandleFunc("/products/"+idPath+"/movements", stock.GetMovementsHandler(dbConn)).Methods(http.MethodGet)

	api.HandleFunc("/orders", order.GetOrdersHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/orders", order.CreateOrderHandler(dbConn, d.orders)).Methods(http.MethodPost)
	api.HandleFunc("/orders/"+idPath, order.GetOrderHandler(dbConn, d.orders)).Methods(http.MethodGet)
	api.HandleFunc("/orders/"+idPath, order.DeleteOrderHandler(dbConn, d.orders)).Methods(http.MethodDelete)
	api.HandleFunc("/orders/"+idPath+"/items", order.AddItemHandler(dbConn, d.orders)).Methods(http.MethodPost)
	api.HandleFunc("/orders/"+idPath+"/items/{item_id:[0-9]+}", order.RemoveItemHandler(dbConn, d.orders)).Methods(http.MethodDelete)
	api.HandleFunc("/orders/"+idPath+"/status", order.UpdateStatusHandler(dbConn, d.orders)).Methods(http.MethodPost)
	api.HandleFunc("/orders/"+idPath+"/address", order.UpdateAddressHandler(dbConn, d.orders)).Methods(http.MethodPost)
	api.HandleFunc("/orders/"+idPath+"/payments", order.RecordPaymentHandler(dbConn, d.orders)).Methods(http.MethodPost)
	api.HandleFunc("/orders/"+idPath+"/payments", order.GetPaymentsHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/orders/"+idPath+"/invoice", invoice.GetInvoiceHTMLHandler(dbConn, d.orders)).Methods(http.MethodGet)
	api.HandleFunc("/orders/"+idPath+"/invoice.pdf", invoice.GetInvoicePDFHandler(dbConn, d.orders, d.printer)).Methods(http.MethodGet)

	api.HandleFunc("/pos/sale", pos.SaleHandler(dbConn, d.register)).Methods(http.MethodPost)

	api.HandleFunc("/reports/sales", report.GetSalesReportHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/reports/sales/export", report.ExportSalesCSVHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/reports/top_products", report.GetTopProductsHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/reports/valuation", report.GetValuationHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/reports/valuation/export", report.ExportValuationCSVHandler(dbConn)).Methods(http.MethodGet)
	api.HandleFunc("/reports/receivables", report.GetReceivablesHandler(dbConn)).Methods(http.MethodGet)

	api.HandleFunc("/backup", backup.ListBackupsHandler(d.backups)).Methods(http.MethodGet)
	api.HandleFunc("/backup", backup.BackupHandler(d.backups)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMessage(w, http.StatusNotFound, "Ruta no encontrada.")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMessage(w, http.StatusMethodNotAllowed, "Método no permitido.")
	})
}

func healthHandler(dbConn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dbConn.PingContext(ctx); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
