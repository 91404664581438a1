package main

import "github.com/prometheus/client_golang/prometheus"

func init() {
	prometheus.MustRegister(metricsItemsIngested)
	prometheus.MustRegister(metricsBuildDuration)
	prometheus.MustRegister(metricsQueriesByResult)
	prometheus.MustRegister(metricsQueryLatency)
}

var metricsItemsIngested = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gcstool_items_ingested_total",
		Help: "Items passed to Builder.PutHash during a create run",
	},
	[]string{"outcome"}, // "accepted" or "rejected"
)

var metricsBuildDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "gcstool_build_duration_seconds",
		Help: "Wall-clock time spent in Builder.Seal for a GCS file",
	},
)

var metricsQueriesByResult = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gcstool_queries_total",
		Help: "Membership queries by outcome",
	},
	[]string{"found"}, // "true" or "false"
)

var metricsQueryLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "gcstool_query_latency_seconds",
		Help: "Per-probe Contains() latency",
	},
)
