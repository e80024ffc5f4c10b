// Package metrics defines the Prometheus instruments for the engine and
// its HTTP surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Signal service Prometheus metrics.
var (
	SignalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalrank",
			Name:      "signal_requests_total",
			Help:      "Total number of signal service requests",
		},
		[]string{"op", "status"},
	)

	SignalRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signalrank",
			Name:      "signal_request_duration_seconds",
			Help:      "Signal service request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	RankedCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalrank",
			Name:      "ranked_candidates_total",
			Help:      "Total candidates returned after ranking",
		},
		[]string{"label"},
	)
)

var signalMetricsRegistered bool

// RegisterSignalMetrics registers the signal service metrics. Must be
// called once from main.
func RegisterSignalMetrics() {
	if signalMetricsRegistered {
		return
	}
	prometheus.MustRegister(SignalRequestsTotal)
	prometheus.MustRegister(SignalRequestDuration)
	prometheus.MustRegister(RankedCandidatesTotal)
	signalMetricsRegistered = true
}
