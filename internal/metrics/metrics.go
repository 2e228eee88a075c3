package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookstore"

type Metrics struct {
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	Fulfillment     *prometheus.CounterVec
	ReceiptFailures prometheus.Counter
	OutboxPublished *prometheus.CounterVec
}

// New registers the bookstore collectors on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Fulfillment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "events_total",
			Help:      "Payment events by final fulfillment status.",
		}, []string{"status"}),
		ReceiptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "receipt_failures_total",
			Help:      "Receipts that could not be delivered after the sale was recorded.",
		}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_published_total",
			Help:      "Outbox events published to the broker.",
		}, []string{"event_type"}),
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.Fulfillment, m.ReceiptFailures, m.OutboxPublished)
	return m
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
