package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_scores_computed_total",
			Help: "Total number of (job, candidate) pairs scored",
		},
		[]string{"mode"},
	)

	EmbeddingsRequested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_embeddings_requested_total",
			Help: "Total number of embedding provider invocations",
		},
	)

	BatchCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_batch_cache_total",
			Help: "Batch cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	PreferenceReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_preference_reloads_total",
			Help: "Preference store reloads by status",
		},
		[]string{"status"},
	)

	CandidatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_batch_candidates_dropped_total",
			Help: "Candidates dropped from batch results due to scoring failures",
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "engine_batch_duration_seconds",
			Help: "Duration of batch matching runs in seconds",
		},
	)
)
