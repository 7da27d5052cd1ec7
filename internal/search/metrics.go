package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searchLatency tracks end-to-end search duration by mode (flat/aggregated).
	searchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "search_query_duration_seconds",
		Help:    "Time taken to execute a search query by mode",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1, 2},
	}, []string{"mode"})

	// searchFallbacks counts searches that degraded to the empty fallback
	// response (spec §4.5 / §8 graceful degradation).
	searchFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_fallback_total",
		Help: "Total number of searches that degraded to the empty fallback response",
	})
)
