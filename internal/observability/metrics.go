// Package observability exposes Prometheus metrics for the HTTP surface and
// the ledger and bulletin stores.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application. It implements
// billing.Observer and analysis.Observer.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	invoices        *prometheus.CounterVec
	payments        *prometheus.CounterVec
	paymentAmount   *prometheus.CounterVec
	analyses        *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cabinet_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_invoices_total",
		Help: "Invoice mutations by operation.",
	}, []string{"op"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_payments_total",
		Help: "Payment mutations by operation and mode.",
	}, []string{"op", "mode"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_payments_amount_total",
		Help: "Recorded payment amounts by mode.",
	}, []string{"mode"})
	analyses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_analyses_total",
		Help: "Analysis bulletin mutations by operation.",
	}, []string{"op"})
	registry.MustRegister(requests, duration, invoices, payments, amount, analyses)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		invoices:        invoices,
		payments:        payments,
		paymentAmount:   amount,
		analyses:        analyses,
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

// Middleware records metrics for every HTTP request.
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

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// InvoiceCreated counts a new invoice.
func (m *Metrics) InvoiceCreated() { m.invoices.WithLabelValues("create").Inc() }

// InvoiceDeleted counts a removed invoice.
func (m *Metrics) InvoiceDeleted() { m.invoices.WithLabelValues("delete").Inc() }

// PaymentRecorded counts a payment and adds its amount.
func (m *Metrics) PaymentRecorded(mode string, amount float64) {
	m.payments.WithLabelValues("create", mode).Inc()
	if amount > 0 {
		m.paymentAmount.WithLabelValues(mode).Add(amount)
	}
}

// PaymentDeleted counts a removed payment.
func (m *Metrics) PaymentDeleted() { m.payments.WithLabelValues("delete", "").Inc() }

// AnalysisCreated counts a new bulletin.
func (m *Metrics) AnalysisCreated() { m.analyses.WithLabelValues("create").Inc() }

// AnalysisDeleted counts a removed bulletin.
func (m *Metrics) AnalysisDeleted() { m.analyses.WithLabelValues("delete").Inc() }

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
