package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"termomaz/backup"
	"termomaz/config"
	"termomaz/metrics"
	"termomaz/middleware"
	"termomaz/order"
	"termomaz/pos"
	"termomaz/testutil"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrinter struct{}

func (stubPrinter) PDF(ctx context.Context, html string) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

type apiClient struct {
	t      *testing.T
	router *mux.Router
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	dir := t.TempDir()
	_, err := config.Load(filepath.Join(dir, "termomaz.yaml"))
	require.NoError(t, err)

	db := testutil.OpenDB(t)
	orders := order.NewService(order.DefaultEpsilon)
	r := mux.NewRouter()
	SetupRoutes(r, deps{
		db:       db,
		orders:   orders,
		register: pos.NewRegister(orders),
		printer:  stubPrinter{},
		backups:  backup.NewManager(db, config.BackupConfig{Dir: filepath.Join(dir, "backups"), Keep: 3}),
	})
	r.Use(middleware.RequestID, middleware.Logging, middleware.Recover, metrics.InstrumentHandler, middleware.BasicAuth)
	return &apiClient{t: t, router: r}
}

func (c *apiClient) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.doAs("", "", method, path, body)
}

func (c *apiClient) doAs(user, password, method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) json(method, path string, body interface{}, wantStatus int) map[string]interface{} {
	c.t.Helper()
	rec := c.do(method, path, body)
	require.Equal(c.t, wantStatus, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	var out map[string]interface{}
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func id(m map[string]interface{}) int64 {
	return int64(m["id"].(float64))
}

func assertAmount(t *testing.T, want string, got interface{}) {
	t.Helper()
	s, ok := got.(string)
	require.True(t, ok, "amount %v is not a JSON string", got)
	assert.True(t, testutil.Dec(want).Equal(testutil.Dec(s)), "want %s, got %s", want, s)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	api := newAPI(t)

	client := api.json(http.MethodPost, "/api/clients", map[string]string{"name": "Juan Perez", "address": "Av. Reforma 123"}, http.StatusCreated)
	product := api.json(http.MethodPost, "/api/products", map[string]interface{}{
		"name": "Termo Acero 500ml", "category": "thermos", "price": "250", "stock": 10,
	}, http.StatusCreated)

	created := api.json(http.MethodPost, "/api/orders", map[string]interface{}{"clientId": id(client)}, http.StatusCreated)
	orderPath := fmt.Sprintf("/api/orders/%d", id(created))
	assert.Equal(t, "Av. Reforma 123", created["shippingAddress"])

	details := api.json(http.MethodPost, orderPath+"/items", map[string]interface{}{"productId": id(product), "quantity": 3}, http.StatusOK)
	assertAmount(t, "750", details["total"])
	items := details["items"].([]interface{})
	require.Len(t, items, 1)
	itemID := int64(items[0].(map[string]interface{})["id"].(float64))

	rec := api.do(http.MethodPost, orderPath+"/items", map[string]interface{}{"productId": id(product), "quantity": 8})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Stock actual: 7")

	paid := api.json(http.MethodPost, orderPath+"/payments", map[string]interface{}{"amount": "800"}, http.StatusConflict)
	assert.NotEmpty(t, paid["message"])

	paid = api.json(http.MethodPost, orderPath+"/payments", map[string]interface{}{"amount": "750", "method": "card"}, http.StatusCreated)
	assert.Equal(t, "Completed", paid["order"].(map[string]interface{})["status"])

	rec = api.do(http.MethodDelete, fmt.Sprintf("%s/items/%d", orderPath, itemID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodGet, orderPath+"/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var payments []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "card", payments[0]["method"])

	rec = api.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", id(product)), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = api.do(http.MethodDelete, fmt.Sprintf("/api/clients/%d", id(client)), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	api.json(http.MethodPost, orderPath+"/status", map[string]string{"status": "Cancelled"}, http.StatusOK)
	p := api.json(http.MethodGet, fmt.Sprintf("/api/products/%d", id(product)), nil, http.StatusOK)
	assert.EqualValues(t, 10, p["stock"])

	api.json(http.MethodPost, orderPath+"/status", map[string]string{"status": "Shipped"}, http.StatusBadRequest)

	rec = api.do(http.MethodGet, orderPath+"/invoice.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	api.json(http.MethodDelete, orderPath, nil, http.StatusOK)
	api.json(http.MethodGet, orderPath, nil, http.StatusNotFound)
}

func TestStockAdjustmentAndMovements(t *testing.T) {
	api := newAPI(t)
	product := api.json(http.MethodPost, "/api/products", map[string]interface{}{
		"name": "Caja Regalo Chica", "category": "box", "price": "50", "stock": 4,
	}, http.StatusCreated)
	path := fmt.Sprintf("/api/products/%d", id(product))

	adjusted := api.json(http.MethodPost, path+"/adjust", map[string]interface{}{"delta": -3, "note": "rotura"}, http.StatusOK)
	assert.EqualValues(t, 1, adjusted["stock"])

	api.json(http.MethodPost, path+"/adjust", map[string]interface{}{"delta": -2}, http.StatusConflict)

	rec := api.do(http.MethodGet, path+"/movements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var movements []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movements))
	require.Len(t, movements, 2)
	assert.EqualValues(t, -3, movements[0]["delta"])

	rec = api.do(http.MethodGet, "/api/products/low_stock?threshold=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Caja Regalo Chica")

	rec = api.do(http.MethodGet, "/api/products/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["box"]`, rec.Body.String())
}

func TestPOSSaleAndDashboard(t *testing.T) {
	api := newAPI(t)
	product := api.json(http.MethodPost, "/api/products", map[string]interface{}{
		"name": "Termo Deportivo 1L", "price": "350", "stock": 5,
	}, http.StatusCreated)

	receipt := api.json(http.MethodPost, "/api/pos/sale", map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": id(product), "quantity": 2}},
		"tendered": "1000",
	}, http.StatusCreated)
	assertAmount(t, "300", receipt["change"])
	assert.Equal(t, "Consumidor final", receipt["clientName"])

	dash := api.json(http.MethodGet, "/api/dashboard", nil, http.StatusOK)
	assertAmount(t, "700", dash["salesTotal"])
	assert.EqualValues(t, 0, dash["pendingOrders"])

	rec := api.do(http.MethodGet, "/api/reports/top_products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Termo Deportivo 1L")

	rec = api.do(http.MethodGet, "/api/reports/receivables", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func (c *apiClient) upload(path, filename, content string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) movements(productID int64) []map[string]interface{} {
	c.t.Helper()
	rec := c.do(http.MethodGet, fmt.Sprintf("/api/products/%d/movements", productID), nil)
	require.Equal(c.t, http.StatusOK, rec.Code)
	var out []map[string]interface{}
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestProductEditAndImport(t *testing.T) {
	api := newAPI(t)
	product := api.json(http.MethodPost, "/api/products", map[string]interface{}{
		"name": "Termo Acero 500ml", "category": "thermos", "price": "250", "stock": 10,
	}, http.StatusCreated)
	path := fmt.Sprintf("/api/products/%d", id(product))

	edited := api.json(http.MethodPut, path, map[string]interface{}{
		"name": "Termo Acero 500ml", "category": "thermos", "price": "265.50", "stock": 7,
	}, http.StatusOK)
	assert.EqualValues(t, 7, edited["stock"])
	assertAmount(t, "265.50", edited["price"])
	moves := api.movements(id(product))
	require.Len(t, moves, 2)
	assert.Equal(t, "adjust", moves[0]["reason"])
	assert.EqualValues(t, -3, moves[0]["delta"])

	api.json(http.MethodPut, path, map[string]interface{}{"name": "Termo", "price": "1", "stock": -2}, http.StatusUnprocessableEntity)
	api.json(http.MethodPut, "/api/products/999", map[string]interface{}{"name": "Nada", "price": "1"}, http.StatusNotFound)

	rec := api.upload("/api/products/import", "productos.csv",
		"name,category,price,stock\n"+
			"Termo Acero 500ml,thermos,\"1.234,50\",12\n"+
			"Caja Regalo Chica,box,\"12,50\",30\n"+
			"Ambiguo,box,\"1,234\",1\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.EqualValues(t, 1, out["created"])
	assert.EqualValues(t, 1, out["updated"])
	assert.Len(t, out["skipped"], 1)

	p := api.json(http.MethodGet, path, nil, http.StatusOK)
	assert.EqualValues(t, 12, p["stock"])
	assertAmount(t, "1234.50", p["price"])
	moves = api.movements(id(product))
	require.Len(t, moves, 3)
	assert.Equal(t, "import", moves[0]["reason"])
	assert.EqualValues(t, 5, moves[0]["delta"])

	sum := 0.0
	for _, m := range moves {
		sum += m["delta"].(float64)
	}
	assert.EqualValues(t, 12, sum, "ledger sums to stock")

	// No stock column keeps the stock; price still updates.
	rec = api.upload("/api/products/import", "precios.csv", "name,price\nTermo Acero 500ml,300\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p = api.json(http.MethodGet, path, nil, http.StatusOK)
	assert.EqualValues(t, 12, p["stock"])
	assertAmount(t, "300", p["price"])
	assert.Len(t, api.movements(id(product)), 3)

	rec = api.upload("/api/products/import", "malo.csv", "name,price,stock\nTermo Acero 500ml,300,-4\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no valid rows")
	p = api.json(http.MethodGet, path, nil, http.StatusOK)
	assert.EqualValues(t, 12, p["stock"])
}

func TestClientImportExport(t *testing.T) {
	api := newAPI(t)

	rec := api.upload("/api/clients/import", "clientes.csv",
		"name,phone,email,address\nJuan Perez,555-0101,juan@example.com,CDMX\n,sin nombre,,\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.EqualValues(t, 1, out["created"])
	assert.Len(t, out["skipped"], 1)

	rec = api.do(http.MethodGet, "/api/clients/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name,phone,email,address\nJuan Perez,555-0101,juan@example.com,CDMX\n", rec.Body.String())

	rec = api.do(http.MethodGet, "/api/clients?q=Juan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Juan Perez")
}

func TestConfigEndpoints(t *testing.T) {
	api := newAPI(t)

	cfg := api.json(http.MethodGet, "/api/config", nil, http.StatusOK)
	assert.Nil(t, cfg["auth"].(map[string]interface{})["adminPasswordHash"])

	next := config.Get()
	next.Invoice.ShopName = "Termos del Norte"
	next.Auth.AdminUser = "admin"
	payload := map[string]interface{}{}
	raw, err := json.Marshal(next)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["adminPassword"] = "s3creto"

	saved := api.json(http.MethodPost, "/api/config", payload, http.StatusOK)
	assert.Contains(t, saved["requiresRestart"], "server.addr")
	assert.NotContains(t, saved["requiresRestart"], "auth")
	assert.Equal(t, "Termos del Norte", config.Get().Invoice.ShopName)
	assert.True(t, strings.HasPrefix(config.Get().Auth.AdminPasswordHash, "$2a$"))

	// The new credentials guard writes right away.
	payload["backup"].(map[string]interface{})["schedule"] = "nunca"
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/config", payload).Code)
	assert.Equal(t, http.StatusBadRequest, api.doAs("admin", "s3creto", http.MethodPost, "/api/config", payload).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/clients", nil).Code, "reads stay open")

	payload["backup"].(map[string]interface{})["schedule"] = "0 3 * * *"
	payload["adminPassword"] = "otra-clave"
	require.Equal(t, http.StatusOK, api.doAs("admin", "s3creto", http.MethodPost, "/api/config", payload).Code)

	client := map[string]string{"name": "Juan Perez"}
	assert.Equal(t, http.StatusUnauthorized, api.doAs("admin", "s3creto", http.MethodPost, "/api/clients", client).Code)
	assert.Equal(t, http.StatusCreated, api.doAs("admin", "otra-clave", http.MethodPost, "/api/clients", client).Code)
}

func TestOperationalRoutes(t *testing.T) {
	api := newAPI(t)

	health := api.json(http.MethodGet, "/healthz", nil, http.StatusOK)
	assert.Equal(t, "ok", health["status"])

	api.json(http.MethodPost, "/api/backup", nil, http.StatusCreated)
	rec := api.do(http.MethodGet, "/api/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var files []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 1)

	api.json(http.MethodGet, "/api/nada", nil, http.StatusNotFound)
	api.json(http.MethodPatch, "/api/clients", nil, http.StatusMethodNotAllowed)
	api.json(http.MethodGet, "/api/orders/abc", nil, http.StatusNotFound)

	rec = api.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "termomaz_http_requests_total")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:./termomaz.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", sqliteDSN("./termomaz.db"))
	assert.Equal(t, "file:/data/shop.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", sqliteDSN("file:/data/shop.db"))
	assert.Equal(t, "shop.db?cache=shared", sqliteDSN("shop.db?cache=shared"))
}
