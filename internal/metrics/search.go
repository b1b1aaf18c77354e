package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded for mediator loads and upstream searches.
const (
	OutcomeSuccess      = "success"
	OutcomeEndOfData    = "end_of_data"
	OutcomeFetchError   = "fetch_error"
	OutcomeInvalidState = "invalid_state"
	OutcomeCancelled    = "cancelled"
	OutcomeError        = "error"
)

var (
	mediatorLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repopager",
			Subsystem: "mediator",
			Name:      "loads_total",
			Help:      "Remote mediator loads by load type and outcome.",
		},
		[]string{"load_type", "outcome"},
	)

	refreshFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "repopager",
			Subsystem: "mediator",
			Name:      "refresh_fallbacks_total",
			Help:      "Refreshes with an anchor whose remote keys were missing, restarted at the first page.",
		},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "repopager",
			Subsystem: "search",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream repository search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repopager",
			Subsystem: "search",
			Name:      "cache_lookups_total",
			Help:      "Search cache lookups by result.",
		},
		[]string{"result"},
	)
)

// ObserveMediatorLoad counts one mediator load.
func ObserveMediatorLoad(loadType, outcome string) {
	mediatorLoads.WithLabelValues(loadType, outcome).Inc()
}

// IncRefreshFallback counts a refresh that fell back to the first page.
func IncRefreshFallback() {
	refreshFallbacks.Inc()
}

// ObserveSearch records the duration of one upstream search.
func ObserveSearch(outcome string, d time.Duration) {
	searchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveCacheLookup counts a cache hit, miss or error.
func ObserveCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}
