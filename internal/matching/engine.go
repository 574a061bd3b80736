// Package matching implements the candidate-to-job matching and scoring
// engine: multi-signal weighted scoring, per-organization adaptive weights
// learned from historical outcomes, and concurrent batch processing with
// result caching.
package matching

import (
	"context"
	"database/sql"
	"time"

	"match-engine/internal/common/config"
	enginerr "match-engine/internal/common/errors"
	"match-engine/internal/common/logger"
	"match-engine/internal/common/validation"
	"match-engine/internal/embedding"

	"github.com/redis/go-redis/v9"
)

// Engine is the library-level facade consumed by the surrounding
// request-handling layer.
type Engine struct {
	scorer       *Scorer
	orchestrator *Orchestrator
	prefs        *PreferenceStore
	feedback     *FeedbackTracker
	cache        BatchCache
	logger       logger.Logger
}

// NewEngine wires the engine from its dependencies. redisClient may be nil;
// the engine then runs with the in-memory batch cache and no cultural-fit
// read-through cache. recorder may be nil to disable request telemetry.
func NewEngine(cfg config.MatchingConfig, embedder embedding.Embedder, db *sql.DB, redisClient *redis.Client, recorder MatchRecorder, log logger.Logger) *Engine {
	prefs := NewPreferenceStore(db, cfg.MinFeedback, log)
	cultural := NewCulturalFitStore(db, redisClient, time.Duration(cfg.CulturalTTL)*time.Second, log)
	scorer := NewScorer(embedder, prefs, cultural, log, cfg.AlgoVersion)

	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	var cache BatchCache
	if redisClient != nil {
		cache = NewRedisBatchCache(redisClient, cacheTTL, log)
	} else {
		cache = NewMemoryBatchCache(cfg.CacheMaxItems, cacheTTL)
	}

	orchestrator := NewOrchestrator(scorer, cache, recorder, log, cfg.ChunkSize, cfg.PoolWorkers, cfg.TopN, cfg.AlgoVersion)

	return &Engine{
		scorer:       scorer,
		orchestrator: orchestrator,
		prefs:        prefs,
		feedback:     NewFeedbackTracker(prefs, log),
		cache:        cache,
		logger:       log.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

// ScoreOne scores a single (job, candidate) pair, for "explain this match"
// style calls. Validation failures and scoring failures are both hard errors.
func (e *Engine) ScoreOne(ctx context.Context, job JobPosting, candidate CandidateProfile, organizationID string) (*MatchResult, error) {
	if err := validation.ValidateJob(job.doc()); err != nil {
		return nil, enginerr.NewInvalidJobError(err.Error())
	}
	if err := validation.ValidateCandidate(candidate.doc()); err != nil {
		return nil, enginerr.NewInvalidCandidateError(err.Error())
	}

	result, err := e.scorer.Score(ctx, job, candidate, organizationID)
	if err != nil {
		return nil, enginerr.NewScoringError(candidate.ID, err)
	}
	return result, nil
}

// MatchMany ranks the candidate pool against one job, sorted descending by
// score with ties keeping input order. A failure for any candidate aborts
// the call; the caller decides whether to retry or skip.
func (e *Engine) MatchMany(ctx context.Context, job JobPosting, candidates []CandidateProfile) ([]MatchResult, error) {
	if err := validation.ValidateJob(job.doc()); err != nil {
		return nil, enginerr.NewInvalidJobError(err.Error())
	}
	return e.orchestrator.MatchMany(ctx, job, candidates)
}

// Batch matches every job against the candidate pool, returning per-job
// top-N results. Individual candidate failures are dropped, not fatal.
func (e *Engine) Batch(ctx context.Context, jobs []JobPosting, candidates []CandidateProfile, useCache bool) (map[string]*BatchResult, error) {
	for _, job := range jobs {
		if err := validation.ValidateJob(job.doc()); err != nil {
			return nil, enginerr.NewInvalidJobError(err.Error())
		}
	}
	return e.orchestrator.Batch(ctx, jobs, candidates, useCache)
}

// RecordOutcome feeds one human-rated match outcome back into the engine.
func (e *Engine) RecordOutcome(ctx context.Context, jobID, candidateID string, score float64) error {
	return e.feedback.Record(ctx, jobID, candidateID, score)
}

// ReloadPreferences forces a full rebuild of the per-organization weights.
func (e *Engine) ReloadPreferences(ctx context.Context) error {
	return e.prefs.Reload(ctx)
}

// Weights exposes the profile that would be applied for an organization.
func (e *Engine) Weights(organizationID string) WeightProfile {
	return e.prefs.Get(organizationID)
}

// ClearCache drops all cached batch results.
func (e *Engine) ClearCache(ctx context.Context) {
	if e.cache != nil {
		e.cache.Clear(ctx)
	}
}
