package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EntityNotes   = "notes"
	EntityCommits = "commits"
)

var (
	aggregationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "commit_push",
		Subsystem: "activity",
		Name:      "aggregation_duration_seconds",
		Help:      "Time spent fetching and bucketing a year of activity, labelled by outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"outcome"})

	rowsFetched = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "commit_push",
		Subsystem: "activity",
		Name:      "rows_fetched",
		Help:      "Rows returned by the per-entity activity queries.",
		Buckets:   []float64{0, 10, 50, 200, 500, 1000, 2000, 5000, 10000},
	}, []string{"entity"})

	fetchCapReached = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commit_push",
		Subsystem: "activity",
		Name:      "fetch_cap_reached_total",
		Help:      "Aggregations whose query returned exactly the row cap; rows older than the newest cap rows are missing.",
	}, []string{"entity"})
)

func init() {
	prometheus.MustRegister(aggregationDuration, rowsFetched, fetchCapReached)
}

// ObserveAggregation records how long an aggregation took and whether it succeeded.
func ObserveAggregation(started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	aggregationDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

// RecordRowsFetched tracks the size of a per-entity fetch.
func RecordRowsFetched(entity string, n int) {
	rowsFetched.WithLabelValues(entity).Observe(float64(n))
}

// RecordFetchCapReached counts a fetch that hit the configured row cap.
func RecordFetchCapReached(entity string) {
	fetchCapReached.WithLabelValues(entity).Inc()
}
