package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		cardVerifyTotal,
		cardVerifyLatencyMs,
		cardStoreConflictsTotal,
		apiKeyRequestsTotal,
	)
}

var (
	cardVerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_verify_total",
			Help: "Card verifications by outcome.",
		},
		[]string{"outcome"},
	)

	cardVerifyLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "card_verify_latency_ms",
			Help:    "Card verification latency in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 3000},
		},
	)

	// op: activate_time|activate_count|reverify_count|rebind
	cardStoreConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_store_conflicts_total",
			Help: "Compare-and-set writes that lost a race, by operation.",
		},
		[]string{"op"},
	)

	// result: ok|api_disabled|missing_key|bad_key|disabled_key|rate_limited|error
	apiKeyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_key_requests_total",
			Help: "Gateway decisions for the public verification endpoint.",
		},
		[]string{"result"},
	)
)

func ObserveVerify(outcome string, latencyMs float64) {
	cardVerifyTotal.WithLabelValues(norm(outcome)).Inc()
	cardVerifyLatencyMs.Observe(latencyMs)
}

func IncStoreConflict(op string) {
	cardStoreConflictsTotal.WithLabelValues(norm(op)).Inc()
}

func IncAPIKeyRequest(result string) {
	apiKeyRequestsTotal.WithLabelValues(norm(result)).Inc()
}
