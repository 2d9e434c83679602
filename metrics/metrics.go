package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	// Registry holds the shop's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "termomaz",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termomaz",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "termomaz",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termomaz",
			Subsystem: "orders",
			Name:      "events_total",
			Help:      "Order lifecycle events (created, item_added, item_removed, deleted, status).",
		},
		[]string{"event"},
	)

	stockRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "termomaz",
			Subsystem: "stock",
			Name:      "rejections_total",
			Help:      "Requests refused because a product did not have enough stock.",
		},
	)

	paymentsAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termomaz",
			Subsystem: "payments",
			Name:      "amount_total",
			Help:      "Money collected, by payment method.",
		},
		[]string{"method"},
	)

	posSales = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "termomaz",
			Subsystem: "pos",
			Name:      "sales_total",
			Help:      "Completed point-of-sale checkouts.",
		},
	)

	backupRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termomaz",
			Subsystem: "backup",
			Name:      "runs_total",
			Help:      "Database snapshot attempts.",
		},
		[]string{"trigger", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersTotal,
		stockRejections,
		paymentsAmount,
		posSales,
		backupRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with HTTP metrics collection.
// Routes are labelled by their mux template so ids do not explode the label set.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordOrderEvent(event string) {
	ordersTotal.WithLabelValues(event).Inc()
}

func RecordStockRejection() {
	stockRejections.Inc()
}

func RecordPayment(method string, amount decimal.Decimal) {
	if method == "" {
		method = "cash"
	}
	paymentsAmount.WithLabelValues(method).Add(amount.InexactFloat64())
}

func RecordSale() {
	posSales.Inc()
}

func RecordBackup(trigger string, success bool) {
	backupRuns.WithLabelValues(trigger, strconv.FormatBool(success)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
