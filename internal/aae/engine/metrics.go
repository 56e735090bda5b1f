package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are promauto-declared package vars: one counter per compute
// outcome, one histogram for latency.
var (
	metricComputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aae",
		Name:      "compute_total",
		Help:      "Total number of Engine.Compute calls by outcome.",
	}, []string{"outcome"})

	metricComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aae",
		Name:      "compute_duration_seconds",
		Help:      "Latency of Engine.Compute calls.",
		Buckets:   prometheus.DefBuckets,
	})
)
