package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels
const (
	StageSync   = "sync"
	StageEnrich = "enrich"
	StageCurate = "curate"
)

// Run results
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	// Pipeline stages
	StageRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_stage_runs_total",
			Help: "Total number of pipeline stage runs",
		},
		[]string{"stage", "result"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_stage_duration_seconds",
			Help:    "Duration of pipeline stage runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"stage"},
	)

	// Sync
	ItemsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_items_synced_total",
			Help: "Total number of candidates processed by sync",
		},
		[]string{"outcome"}, // "inserted", "updated", "rejected"
	)

	// Enrichment
	ItemsEnriched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_items_enriched_total",
			Help: "Total number of items leaving the pending state",
		},
		[]string{"status"}, // "completed", "skipped", "error"
	)

	ModelRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_model_rate_limited_total",
			Help: "Total number of rate-limited model calls",
		},
	)

	ModelParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_model_parse_failures_total",
			Help: "Total number of model replies that could not be parsed",
		},
	)

	// Curation
	PicksSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_picks_total",
			Help: "Total number of items picked for a report",
		},
		[]string{"mode"}, // "rules", "assisted"
	)

	DegradedRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_degraded_runs_total",
			Help: "Total number of curation runs with an under-filled bucket",
		},
	)

	ArtifactsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_artifacts_published_total",
			Help: "Total number of report artifacts published",
		},
		[]string{"language"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordStage records the duration and result of one stage run
func RecordStage(stage string, duration time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	StageRuns.WithLabelValues(stage, result).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordSync records sync counters
func RecordSync(inserted, updated, rejected int) {
	ItemsSynced.WithLabelValues("inserted").Add(float64(inserted))
	ItemsSynced.WithLabelValues("updated").Add(float64(updated))
	ItemsSynced.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordEnrich records enrichment counters
func RecordEnrich(completed, skipped, errored, rateLimited, parseFailures int) {
	ItemsEnriched.WithLabelValues("completed").Add(float64(completed))
	ItemsEnriched.WithLabelValues("skipped").Add(float64(skipped))
	ItemsEnriched.WithLabelValues("error").Add(float64(errored))
	ModelRateLimited.Add(float64(rateLimited))
	ModelParseFailures.Add(float64(parseFailures))
}

// RecordCuration records the picks and publish counts of one curation run
func RecordCuration(mode string, picks int, degraded bool, languages []string) {
	PicksSelected.WithLabelValues(mode).Add(float64(picks))
	if degraded {
		DegradedRuns.Inc()
	}
	for _, lang := range languages {
		ArtifactsPublished.WithLabelValues(lang).Inc()
	}
}

// RecordAPIRequest records one API request
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
