package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the gateway's prometheus instruments. Each Server owns
// its registry so tests can build servers independently.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	DecisionsTotal  *prometheus.CounterVec
	RateLimited     prometheus.Counter
	TokensIssued    prometheus.Counter
}

// NewMetrics registers the gateway instruments on reg. A nil reg wires
// them to a throwaway registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentgate_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"endpoint", "status"}),

		RequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agentgate_requests_total",
			Help: "Total number of processed requests.",
		}, []string{"endpoint"}),

		DecisionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agentgate_decisions_total",
			Help: "Total access decisions by outcome.",
		}, []string{"decision"}),

		RateLimited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "agentgate_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),

		TokensIssued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "agentgate_tokens_issued_total",
			Help: "Agent tokens issued.",
		}),
	}
}
