package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	planRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_plan_requests_total",
			Help: "Total number of planning requests by outcome.",
		},
		[]string{"mode", "outcome"},
	)
	guardRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_guard_rejections_total",
			Help: "Total number of proposed queries rejected before execution.",
		},
		[]string{"reason"},
	)
	schemaCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydeck_schema_cache_lookups_total",
			Help: "Schema snapshot cache lookups by result.",
		},
		[]string{"result"},
	)
	completionLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querydeck_completion_latency_seconds",
			Help:    "Latency of completion-service calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 15, 20, 30},
		},
	)
	executedRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querydeck_executed_rows",
			Help:    "Row counts returned by guarded query execution.",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		planRequestsTotal,
		guardRejectionsTotal,
		schemaCacheLookupsTotal,
		completionLatencySeconds,
		executedRows,
	)
}

func IncrementPlanRequest(mode, outcome string) {
	planRequestsTotal.WithLabelValues(mode, outcome).Inc()
}

func IncrementGuardRejection(reason string) {
	guardRejectionsTotal.WithLabelValues(reason).Inc()
}

func IncrementSchemaCacheLookup(result string) {
	schemaCacheLookupsTotal.WithLabelValues(result).Inc()
}

func ObserveCompletionLatency(d time.Duration) {
	completionLatencySeconds.Observe(d.Seconds())
}

func ObserveExecutedRows(count int) {
	executedRows.Observe(float64(count))
}
