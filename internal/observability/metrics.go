package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	ordersCreated    *prometheus.CounterVec
	stockMovements   *prometheus.CounterVec
	stockShortages   prometheus.Counter
	transitionDenied *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumenfab_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lumenfab_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumenfab_orders_created_total",
		Help: "Orders created by kind (sales, production, purchase).",
	}, []string{"kind"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumenfab_stock_movements_total",
		Help: "Committed stock ledger movements by direction.",
	}, []string{"direction"})
	shortages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumenfab_stock_shortages_total",
		Help: "Material dispatches rejected for insufficient stock.",
	})
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumenfab_transitions_denied_total",
		Help: "State transitions rejected by order kind.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, orders, movements, shortages, denied)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		ordersCreated:    orders,
		stockMovements:   movements,
		stockShortages:   shortages,
		transitionDenied: denied,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// OrderCreated increments the created-orders counter for kind.
func (m *Metrics) OrderCreated(kind string) {
	if m != nil {
		m.ordersCreated.WithLabelValues(kind).Inc()
	}
}

// StockMovement increments the ledger-movement counter for direction
// ("in", "out" or "transfer").
func (m *Metrics) StockMovement(direction string) {
	if m != nil {
		m.stockMovements.WithLabelValues(direction).Inc()
	}
}

// StockShortage increments the rejected-dispatch counter.
func (m *Metrics) StockShortage() {
	if m != nil {
		m.stockShortages.Inc()
	}
}

// TransitionDenied increments the rejected-transition counter for kind.
func (m *Metrics) TransitionDenied(kind string) {
	if m != nil {
		m.transitionDenied.WithLabelValues(kind).Inc()
	}
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
