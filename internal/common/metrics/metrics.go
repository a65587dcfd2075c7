// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_intents_classified_total",
			Help: "Utterances classified, by intent",
		},
		[]string{"intent"},
	)

	Clarifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_clarifications_total",
			Help: "Conversation turns, by resulting clarification stage",
		},
		[]string{"stage"},
	)

	Executions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_executions_total",
			Help: "Draft executions, by intent kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	CatalogLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_catalog_lookups_total",
			Help: "Individual catalog search calls, by outcome",
		},
		[]string{"outcome"},
	)

	CatalogLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_catalog_lookup_duration_seconds",
			Help:    "Duration of individual catalog search calls",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 3, 5},
		},
		[]string{"outcome"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "assistant_turn_duration_seconds",
			Help: "Duration of one conversational turn",
		},
	)
)

// Assistant feeds the pipeline's recorder hooks into the collectors above.
type Assistant struct{}

func (Assistant) RecordIntent(kind string) {
	IntentsClassified.WithLabelValues(kind).Inc()
}

func (Assistant) RecordClarification(stage string) {
	Clarifications.WithLabelValues(stage).Inc()
}

func (Assistant) RecordExecution(kind, outcome string) {
	Executions.WithLabelValues(kind, outcome).Inc()
}

func (Assistant) RecordCatalogLookup(outcome string, duration time.Duration) {
	CatalogLookups.WithLabelValues(outcome).Inc()
	CatalogLookupDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func ObserveTurn(duration time.Duration) {
	TurnDuration.Observe(duration.Seconds())
}
