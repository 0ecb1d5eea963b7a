// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	articlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypton_articles_total",
			Help: "Articles processed by the ingestion pipeline, labeled by outcome.",
		},
		[]string{"source", "outcome"},
	)

	extractionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypton_extraction_attempts_total",
			Help: "Individual strategy attempts, labeled by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	extractionDurationSecs = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crypton_extraction_duration_seconds",
			Help:    "Histogram of per-strategy extraction latencies.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	syncAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypton_sync_attempts_total",
			Help: "Vector store upsert attempts, labeled by store and outcome.",
		},
		[]string{"store", "outcome"},
	)

	batchDurationSecs = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crypton_batch_duration_seconds",
			Help:    "Histogram of batch durations, labeled by batch kind.",
			Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"kind"},
	)

	pipelineActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crypton_pipeline_active_workers",
			Help: "Number of workers currently processing an article.",
		},
	)

	ledgerUnresolvedReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crypton_ledger_unresolved_returned_total",
			Help: "Ledger records handed out for re-extraction passes.",
		},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveArticle increments the pipeline outcome counter.
func ObserveArticle(source, outcome string) {
	articlesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveExtraction records one strategy attempt.
func ObserveExtraction(method, outcome string, duration time.Duration) {
	extractionAttemptsTotal.WithLabelValues(method, outcome).Inc()
	extractionDurationSecs.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveSync increments the sync attempt counter for one store.
func ObserveSync(store, outcome string) {
	syncAttemptsTotal.WithLabelValues(store, outcome).Inc()
}

// ObserveBatch records the duration of a completed batch.
func ObserveBatch(kind string, duration time.Duration) {
	batchDurationSecs.WithLabelValues(kind).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	pipelineActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	pipelineActiveWorkers.Dec()
}

// ObserveUnresolvedReturned counts ledger records offered for retry.
func ObserveUnresolvedReturned(n int) {
	ledgerUnresolvedReturned.Add(float64(n))
}
