// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlPassesStartedTotal  *prometheus.CounterVec
	crawlPassesFinishedTotal *prometheus.CounterVec
	pagesFetchedTotal        *prometheus.CounterVec
	itemsFailedTotal         *prometheus.CounterVec
	itemsSkippedTotal        *prometheus.CounterVec
	mergeOutcomesTotal       *prometheus.CounterVec
	circuitTripsTotal        *prometheus.CounterVec
	ledgerRetriesTotal       *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		crawlPassesStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_passes_started_total",
				Help: "Total crawl passes started, labeled by source.",
			},
			[]string{"source"},
		)
		crawlPassesFinishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_passes_finished_total",
				Help: "Total crawl passes finished, labeled by source and final state.",
			},
			[]string{"source", "state"},
		)
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_fetched_total",
				Help: "Total listing pages fetched, labeled by source.",
			},
			[]string{"source"},
		)
		itemsFailedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_items_failed_total",
				Help: "Total items that failed to fetch or save, labeled by source.",
			},
			[]string{"source"},
		)
		itemsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_items_skipped_total",
				Help: "Total items skipped as already fresh, labeled by source.",
			},
			[]string{"source"},
		)
		mergeOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_merge_outcomes_total",
				Help: "Merge engine outcomes, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)
		circuitTripsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_circuit_trips_total",
				Help: "Continuous-skip circuit breaker trips, labeled by source.",
			},
			[]string{"source"},
		)
		ledgerRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_ledger_retries_total",
				Help: "Failure ledger retry attempts, labeled by source.",
			},
			[]string{"source"},
		)
	})
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// CrawlPassesStarted counts one pass start for source.
func CrawlPassesStarted(source string) {
	Init()
	crawlPassesStartedTotal.WithLabelValues(source).Inc()
}

// CrawlPassesFinished counts one pass completion in the given final state.
func CrawlPassesFinished(source, state string) {
	Init()
	crawlPassesFinishedTotal.WithLabelValues(source, state).Inc()
}

// PagesFetched counts one listing page fetch for source.
func PagesFetched(source string) {
	Init()
	pagesFetchedTotal.WithLabelValues(source).Inc()
}

// ItemsFailed counts one failed item for source.
func ItemsFailed(source string) {
	Init()
	itemsFailedTotal.WithLabelValues(source).Inc()
}

// ItemsSkipped counts one skipped item for source.
func ItemsSkipped(source string) {
	Init()
	itemsSkippedTotal.WithLabelValues(source).Inc()
}

// MergeOutcome counts one merge outcome for source.
func MergeOutcome(source, outcome string) {
	Init()
	mergeOutcomesTotal.WithLabelValues(source, outcome).Inc()
}

// CircuitTrips counts one breaker trip for source.
func CircuitTrips(source string) {
	Init()
	circuitTripsTotal.WithLabelValues(source).Inc()
}

// LedgerRetries counts one ledger retry attempt for source.
func LedgerRetries(source string) {
	Init()
	ledgerRetriesTotal.WithLabelValues(source).Inc()
}
