package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics métricas Prometheus del motor de facturación. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	registry       *prometheus.Registry
	handler        http.Handler
	invoicesIssued prometheus.Counter
	batchFailures  prometheus.Counter
	batchDuration  prometheus.Histogram
	payments       *prometheus.CounterVec
}

// NewMetrics crea un registry propio con las métricas de facturación.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	issued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_invoices_issued_total",
		Help: "Facturas emitidas por el proceso de emisión masiva.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_batch_failures_total",
		Help: "Clientes que fallaron dentro de una emisión masiva.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "billing_batch_duration_seconds",
		Help:    "Duración de cada emisión masiva.",
		Buckets: prometheus.DefBuckets,
	})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_payments_total",
		Help: "Operaciones sobre pagos por tipo (create, update, delete) y resultado.",
	}, []string{"op", "result"})
	registry.MustRegister(issued, failures, duration, payments,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:       registry,
		handler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		invoicesIssued: issued,
		batchFailures:  failures,
		batchDuration:  duration,
		payments:       payments,
	}
}

// Handler http.Handler para /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveBatch registra el resultado de una emisión masiva.
func (m *Metrics) ObserveBatch(issued, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.invoicesIssued.Add(float64(issued))
	m.batchFailures.Add(float64(failed))
	m.batchDuration.Observe(elapsed.Seconds())
}

// ObservePayment registra una operación de pago.
func (m *Metrics) ObservePayment(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.payments.WithLabelValues(op, result).Inc()
}
