package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderTransitionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "order_transitions_total",
			Help:      "Total order status transitions.",
		},
		[]string{"kind", "to"},
	)

	ledgerEntriesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "ledger_entries_total",
			Help:      "Total wallet transactions written.",
		},
		[]string{"reason"},
	)

	ledgerRejectedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "ledger_rejected_total",
			Help:      "Debits rejected or refunds ignored.",
		},
		[]string{"cause"}, // insufficient_funds, duplicate_refund
	)

	codePoolCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "code_pool_operations_total",
			Help:      "Code pool operations by outcome.",
		},
		[]string{"pool_key", "operation"},
	)

	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wallet",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of requests to the upstream provider.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action", "outcome"},
	)
)

func OrderTransition(kind, to string) {
	orderTransitionsCounter.WithLabelValues(kind, to).Inc()
}

func LedgerEntry(reason string) {
	ledgerEntriesCounter.WithLabelValues(reason).Inc()
}

func LedgerRejected(cause string) {
	ledgerRejectedCounter.WithLabelValues(cause).Inc()
}

func CodePool(poolKey, operation string) {
	codePoolCounter.WithLabelValues(poolKey, operation).Inc()
}

// ProviderRequest observes one upstream call started at start.
func ProviderRequest(action string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequestDurationHist.WithLabelValues(action, outcome).Observe(time.Since(start).Seconds())
}

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status_code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wallet",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// HTTPRequest records one served request. path is the route pattern, not the raw URL.
func HTTPRequest(method, path, statusCode string, elapsed time.Duration) {
	httpRequestDurationSeconds.WithLabelValues(method, path).Observe(elapsed.Seconds())
	httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
}
