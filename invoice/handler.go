package invoice

import (
	"errors"
	"fmt"
	"net/http"

	"termomaz/config"
	"termomaz/httputil"
	"termomaz/mappers"
	"termomaz/order"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func GetInvoiceHTMLHandler(conn *sqlx.DB, svc *order.Service) http.HandlerFunc {
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
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(RenderHTML(*details, config.Get().Invoice)))
	}
}

// GetInvoicePDFHandler answers 503 when no browser is installed on the host.
func GetInvoicePDFHandler(conn *sqlx.DB, svc *order.Service, printer Printer) http.HandlerFunc {
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

		pdf, err := printer.PDF(r.Context(), RenderHTML(*details, config.Get().Invoice))
		if errors.Is(err, ErrBrowserUnavailable) {
			zap.L().Warn("invoice PDF requested but no browser is available", zap.Error(err))
			httputil.WriteMessage(w, http.StatusServiceUnavailable, "La generación de PDF no está disponible: no se encontró un navegador.")
			return
		}
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		filename := fmt.Sprintf("comprobante_%s.pdf", mappers.OrderLabel(details.Order))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		w.Write(pdf)
	}
}
