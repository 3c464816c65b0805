// Package observability registers service-level Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	transactionsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cuadres_service",
		Subsystem: "transactions",
		Name:      "recorded_total",
		Help:      "Number of cashier transactions recorded, by kind and currency.",
	}, []string{"kind", "currency"})

	reviewsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cuadres_service",
		Subsystem: "review",
		Name:      "decisions_total",
		Help:      "Number of cuadre review decisions persisted, by resulting status.",
	}, []string{"status"})

	syncRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cuadres_service",
		Subsystem: "sync",
		Name:      "requests_total",
		Help:      "Number of external sync runs requested, by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(transactionsRecorded, reviewsApplied, syncRequests, httpRequests, httpDuration, httpInFlight)
}

// RecordTransaction counts a persisted transaction.
func RecordTransaction(kind, currency string) {
	transactionsRecorded.WithLabelValues(kind, currency).Inc()
}

// RecordReview counts a persisted review decision.
func RecordReview(status string) {
	reviewsApplied.WithLabelValues(status).Inc()
}

// RecordSyncRequested counts an enqueued sync run.
func RecordSyncRequested(reason string) {
	syncRequests.WithLabelValues(reason).Inc()
}
