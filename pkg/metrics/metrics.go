package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks transaction outcomes for the /metrics endpoint.
type Collector struct {
	registry             *prometheus.Registry
	transactionsTotal    *prometheus.CounterVec
	transactionAmount    *prometheus.HistogramVec
	transactionDuration  prometheus.Histogram
	compensationsApplied prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		transactionsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "minibank_transactions_total",
			Help: "Transactions by kind and outcome",
		}, []string{"kind", "outcome"}),
		transactionAmount: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minibank_transaction_amount",
			Help:    "Committed transaction amounts in the smallest currency unit",
			Buckets: prometheus.ExponentialBuckets(20000, 4, 8),
		}, []string{"kind"}),
		transactionDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "minibank_transaction_duration_seconds",
			Help:    "Time taken to process a transaction",
			Buckets: prometheus.DefBuckets,
		}),
		compensationsApplied: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "minibank_compensations_applied_total",
			Help: "Ledger compensations applied after a failed store write",
		}),
	}
}

// RecordTransaction records one finished operation. Outcome is one of
// "committed", "rejected" or "failed".
func (c *Collector) RecordTransaction(kind, outcome string, amount int64, duration time.Duration) {
	c.transactionsTotal.WithLabelValues(kind, outcome).Inc()
	c.transactionDuration.Observe(duration.Seconds())
	if outcome == "committed" {
		c.transactionAmount.WithLabelValues(kind).Observe(float64(amount))
	}
}

func (c *Collector) RecordCompensation() {
	c.compensationsApplied.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
