package report

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"termomaz/config"
	"termomaz/database"
	"termomaz/model"
	"termomaz/order"
	"termomaz/testutil"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sale struct {
	client  *int64
	product int64
	qty     int
	pay     string
	day     time.Time
	cancel  bool
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(t *testing.T, db *sqlx.DB, sales ...sale) {
	t.Helper()
	svc := order.NewService(order.DefaultEpsilon)
	err := database.WithTx(db, func(tx *sqlx.Tx) error {
		for _, s := range sales {
			o, err := svc.Create(tx, s.client, "")
			if err != nil {
				return err
			}
			if _, err := svc.AddItem(tx, o.ID, s.product, s.qty); err != nil {
				return err
			}
			if s.pay != "" {
				if _, _, err := svc.RecordPayment(tx, o.ID, testutil.Dec(s.pay), "cash"); err != nil {
					return err
				}
			}
			if s.cancel {
				if _, err := svc.UpdateStatus(tx, o.ID, model.StatusCancelled); err != nil {
					return err
				}
			}
			if !s.day.IsZero() {
				if err := database.SetOrderDateInTx(tx, o.ID, s.day); err != nil {
					return err
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestSalesAggregatesCompletedOrdersPerDay(t *testing.T) {
	db := testutil.OpenDB(t)
	juan := testutil.CreateClient(t, db, "Juan Perez", "")
	thermos := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 100)
	box := testutil.CreateProduct(t, db, "Caja Regalo Chica", "50", 100)

	record(t, db,
		sale{client: &juan, product: thermos, qty: 2, pay: "500", day: day("2026-03-10 09:30")},
		sale{product: box, qty: 1, pay: "50", day: day("2026-03-10 18:00")},
		sale{product: thermos, qty: 1, pay: "250", day: day("2026-03-11 12:00")},
		sale{client: &juan, product: box, qty: 3, pay: "20", day: day("2026-03-11 12:00")},
		sale{product: thermos, qty: 1, pay: "250", day: day("2026-04-02 12:00")},
	)

	rep, err := Sales(db, model.ReportFilters{From: day("2026-03-01 00:00"), To: day("2026-04-01 00:00")})
	require.NoError(t, err)

	assert.Equal(t, "2026-03-01", rep.From)
	assert.Equal(t, "2026-03-31", rep.To)
	require.Len(t, rep.Days, 2)
	assert.Equal(t, "2026-03-10", rep.Days[0].Day)
	assert.Equal(t, 2, rep.Days[0].Orders)
	assert.True(t, rep.Days[0].Revenue.Equal(testutil.Dec("550")))
	assert.Equal(t, "2026-03-11", rep.Days[1].Day)
	assert.Equal(t, 1, rep.Days[1].Orders, "pending orders are not sales")
	assert.Equal(t, 3, rep.Orders)
	assert.True(t, rep.Revenue.Equal(testutil.Dec("800")))
	assert.True(t, rep.Outstanding.IsZero())
}

func TestTopProducts(t *testing.T) {
	db := testutil.OpenDB(t)
	thermos := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 100)
	box := testutil.CreateProduct(t, db, "Caja Regalo Chica", "50", 100)

	record(t, db,
		sale{product: box, qty: 5, pay: "250"},
		sale{product: thermos, qty: 2, pay: "500"},
		sale{product: thermos, qty: 9},
	)

	top, err := TopProducts(db, model.ReportFilters{})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Caja Regalo Chica", top[0].ProductName)
	assert.Equal(t, 5, top[0].Quantity)
	assert.Equal(t, 2, top[1].Quantity)
	assert.True(t, top[1].Revenue.Equal(testutil.Dec("500")))

	top, err = TopProducts(db, model.ReportFilters{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestValuationByCategory(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 4)
	testutil.CreateProduct(t, db, "Termo Deportivo 1L", "350", 2)

	rep, err := Valuation(db, "")
	require.NoError(t, err)
	require.Len(t, rep.Groups, 1)
	assert.Equal(t, "thermos", rep.Groups[0].Category)
	assert.Equal(t, 6, rep.Units)
	assert.True(t, rep.TotalValue.Equal(testutil.Dec("1700")))

	rep, err = Valuation(db, "box")
	require.NoError(t, err)
	assert.Empty(t, rep.Groups)
	assert.True(t, rep.TotalValue.IsZero())
}

func TestReceivablesGroupsByClient(t *testing.T) {
	db := testutil.OpenDB(t)
	juan := testutil.CreateClient(t, db, "Juan Perez", "")
	maria := testutil.CreateClient(t, db, "Maria Garcia", "")
	thermos := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 100)

	record(t, db,
		sale{client: &juan, product: thermos, qty: 1, pay: "100"},
		sale{client: &juan, product: thermos, qty: 1},
		sale{client: &maria, product: thermos, qty: 4, pay: "200"},
		sale{client: &maria, product: thermos, qty: 1, pay: "250"},
		sale{product: thermos, qty: 1},
		sale{client: &maria, product: thermos, qty: 2, cancel: true},
	)

	rec, err := Receivables(db)
	require.NoError(t, err)
	require.Len(t, rec, 3)

	assert.Equal(t, "Maria Garcia", rec[0].ClientName)
	assert.True(t, rec[0].Balance.Equal(testutil.Dec("800")))
	assert.Len(t, rec[0].Orders, 1)

	assert.Equal(t, "Juan Perez", rec[1].ClientName)
	assert.True(t, rec[1].Balance.Equal(testutil.Dec("400")))
	assert.Len(t, rec[1].Orders, 2)

	assert.Nil(t, rec[2].ClientID)
	assert.Equal(t, "Consumidor final", rec[2].ClientName)
	assert.True(t, rec[2].Balance.Equal(testutil.Dec("250")))
}

func TestDashboard(t *testing.T) {
	db := testutil.OpenDB(t)
	juan := testutil.CreateClient(t, db, "Juan Perez", "")
	thermos := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 10)
	testutil.CreateProduct(t, db, "Caja Regalo Chica", "50", 3)

	record(t, db,
		sale{client: &juan, product: thermos, qty: 2, pay: "500"},
		sale{client: &juan, product: thermos, qty: 1},
		sale{product: thermos, qty: 1, pay: "250", day: model.Now().AddDate(-1, 0, 0)},
	)

	stats, err := Dashboard(db, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalClients)
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.True(t, stats.SalesTotal.Equal(testutil.Dec("750")))
	assert.True(t, stats.MonthlySales.Equal(testutil.Dec("500")))
	assert.Equal(t, 1, stats.LowStockCount)
	assert.Len(t, stats.RecentOrders, 2)
}

func TestStartOfMonth(t *testing.T) {
	assert.Equal(t, day("2026-10-01 00:00"), StartOfMonth(day("2026-10-19 15:04")))
}

func TestSalesHandlers(t *testing.T) {
	config.Set(config.Default())
	db := testutil.OpenDB(t)
	thermos := testutil.CreateProduct(t, db, "Termo Acero 500ml", "250", 10)
	record(t, db, sale{product: thermos, qty: 1, pay: "250", day: day("2026-03-10 10:00")})

	rec := httptest.NewRecorder()
	GetSalesReportHandler(db)(rec, httptest.NewRequest(http.MethodGet, "/api/reports/sales?from=2026-03-01&to=2026-03-31", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"day":"2026-03-10"`)

	rec = httptest.NewRecorder()
	GetSalesReportHandler(db)(rec, httptest.NewRequest(http.MethodGet, "/api/reports/sales?from=2026-03-31&to=2026-03-01", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	ExportSalesCSVHandler(db)(rec, httptest.NewRequest(http.MethodGet, "/api/reports/sales/export?from=2026-03-01&to=2026-03-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2026-03-10,1,250.00,250.00", lines[1])
	assert.Equal(t, "TOTAL,1,250.00,250.00", lines[2])
}
