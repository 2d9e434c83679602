package report

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"termomaz/config"
	"termomaz/httputil"
	"termomaz/model"
	"termomaz/parsers"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func GetDashboardHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := config.Get().Shop
		stats, err := Dashboard(conn, shop.LowStockThreshold, shop.RecentOrders)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, stats)
	}
}

// rangeFromQuery reads ?from= and ?to= (inclusive days). Without from, the current month is used.
func rangeFromQuery(r *http.Request) (model.ReportFilters, error) {
	from, err := httputil.QueryDate(r, "from")
	if err != nil {
		return model.ReportFilters{}, err
	}
	to, err := httputil.QueryDate(r, "to")
	if err != nil {
		return model.ReportFilters{}, err
	}
	today := model.Now().Truncate(24 * time.Hour)
	if from.IsZero() {
		from = StartOfMonth(today)
	}
	if to.IsZero() {
		to = today
	}
	if to.Before(from) {
		return model.ReportFilters{}, model.NewValidationError("to", "no puede ser anterior a from")
	}
	return model.ReportFilters{
		From:  from,
		To:    to.AddDate(0, 0, 1),
		Limit: httputil.QueryInt(r, "limit", 0),
	}, nil
}

func GetSalesReportHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := rangeFromQuery(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		rep, err := Sales(conn, f)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, rep)
	}
}

func ExportSalesCSVHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := rangeFromQuery(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		rep, err := Sales(conn, f)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		rows := [][]string{{"dia", "pedidos", "ventas", "cobrado"}}
		for _, d := range rep.Days {
			rows = append(rows, []string{d.Day, strconv.Itoa(d.Orders), d.Revenue.StringFixed(2), d.Collected.StringFixed(2)})
		}
		rows = append(rows, []string{"TOTAL", strconv.Itoa(rep.Orders), rep.Revenue.StringFixed(2), rep.Collected.StringFixed(2)})
		writeCSV(w, r, fmt.Sprintf("ventas_%s_%s.csv", rep.From, rep.To), rows)
	}
}

func GetTopProductsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := rangeFromQuery(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		top, err := TopProducts(conn, f)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, top)
	}
}

func GetValuationHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := Valuation(conn, r.URL.Query().Get("category"))
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, rep)
	}
}

func ExportValuationCSVHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := Valuation(conn, r.URL.Query().Get("category"))
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		rows := [][]string{{"categoria", "producto", "precio", "stock", "valor"}}
		for _, g := range rep.Groups {
			for _, p := range g.Products {
				value := p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
				rows = append(rows, []string{g.Category, p.Name, p.Price.StringFixed(2), strconv.Itoa(p.Stock), value.StringFixed(2)})
			}
			rows = append(rows, []string{g.Category, "SUBTOTAL", "", strconv.Itoa(g.Units), g.TotalValue.StringFixed(2)})
		}
		rows = append(rows, []string{"", "TOTAL", "", strconv.Itoa(rep.Units), rep.TotalValue.StringFixed(2)})
		writeCSV(w, r, "valorizacion_inventario.csv", rows)
	}
}

func GetReceivablesHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := Receivables(conn)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, rec)
	}
}

func writeCSV(w http.ResponseWriter, r *http.Request, filename string, rows [][]string) {
	charset := config.Get().Shop.CSVEncoding
	out, err := parsers.NewEncodingWriter(w, charset)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.StartCSVDownload(w, filename, charset)

	cw := csv.NewWriter(out)
	if err := cw.WriteAll(rows); err != nil {
		zap.L().Error("failed to write CSV report", zap.String("file", filename), zap.Error(err))
		return
	}
	if err := out.Close(); err != nil {
		zap.L().Error("failed to flush CSV report", zap.String("file", filename), zap.Error(err))
	}
}
