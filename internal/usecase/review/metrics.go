package review

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var txRetries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reviewhub_review_tx_retries_total",
		Help: "Review mutation transactions retried after a transient storage failure",
	},
	[]string{"op"},
)
