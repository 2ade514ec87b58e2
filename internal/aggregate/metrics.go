package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewhub_aggregate_recompute_total",
			Help: "Item aggregate recomputations by outcome",
		},
		[]string{"outcome"},
	)

	recomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reviewhub_aggregate_recompute_duration_seconds",
			Help:    "Time spent reading review stats and writing an item aggregate",
			Buckets: prometheus.DefBuckets,
		},
	)
)
