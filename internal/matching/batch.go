package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"match-engine/internal/common/logger"
	"match-engine/internal/common/metrics"

	"github.com/google/uuid"
)

// MatchRecorder receives per-request telemetry. A nil recorder disables it.
type MatchRecorder interface {
	RecordMatchProcessed(ctx context.Context, mode, status string)
	RecordMatchDuration(ctx context.Context, duration time.Duration, mode string)
}

// Orchestrator fans job-against-pool match requests out across a bounded
// worker pool. Jobs are processed sequentially relative to each other; only
// candidate chunks within a single job run concurrently.
type Orchestrator struct {
	scorer      *Scorer
	cache       BatchCache
	recorder    MatchRecorder
	logger      logger.Logger
	chunkSize   int
	workers     int
	topN        int
	algoVersion string
}

func NewOrchestrator(scorer *Scorer, cache BatchCache, recorder MatchRecorder, log logger.Logger, chunkSize, workers, topN int, algoVersion string) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	if workers <= 0 {
		workers = 4
	}
	if topN <= 0 {
		topN = 10
	}
	return &Orchestrator{
		scorer:      scorer,
		cache:       cache,
		recorder:    recorder,
		logger:      log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		chunkSize:   chunkSize,
		workers:     workers,
		topN:        topN,
		algoVersion: algoVersion,
	}
}

// MatchMany scores every candidate against one job synchronously and returns
// them sorted descending by total score. The sort is stable: equal scores
// keep their input order.
func (o *Orchestrator) MatchMany(ctx context.Context, job JobPosting, candidates []CandidateProfile) ([]MatchResult, error) {
	started := time.Now()

	results := make([]MatchResult, 0, len(candidates))
	for _, candidate := range candidates {
		result, err := o.scorer.Score(ctx, job, candidate, job.OrganizationID)
		if err != nil {
			o.record(ctx, started, "interactive", "failed")
			return nil, err
		}
		metrics.ScoresComputed.WithLabelValues("interactive").Inc()
		results = append(results, *result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	o.record(ctx, started, "interactive", BatchStatusCompleted)
	return results, nil
}

func (o *Orchestrator) record(ctx context.Context, started time.Time, mode, status string) {
	if o.recorder == nil {
		return
	}
	o.recorder.RecordMatchProcessed(ctx, mode, status)
	o.recorder.RecordMatchDuration(ctx, time.Since(started), mode)
}

// Batch matches every job against the candidate pool and returns per-job
// result sets capped at top N. With useCache, a prior result under the same
// request fingerprint is returned without re-scoring.
func (o *Orchestrator) Batch(ctx context.Context, jobs []JobPosting, candidates []CandidateProfile, useCache bool) (map[string]*BatchResult, error) {
	started := time.Now()
	fingerprint := Fingerprint(jobs, candidates)

	if useCache && o.cache != nil {
		if cached, ok := o.cache.Get(ctx, fingerprint); ok {
			metrics.BatchCacheHits.WithLabelValues("hit").Inc()
			o.logger.Info("batch served from cache", map[string]interface{}{
				"fingerprint": fingerprint,
				"jobs":        len(jobs),
			})
			o.record(ctx, started, "batch", "cached")
			return markCacheHit(cached), nil
		}
		metrics.BatchCacheHits.WithLabelValues("miss").Inc()
	}

	runID := uuid.NewString()
	results := make(map[string]*BatchResult, len(jobs))

	status := BatchStatusCompleted
	for _, job := range jobs {
		result := o.matchJob(ctx, runID, job, candidates)
		if result.Status == BatchStatusPartial {
			status = BatchStatusPartial
		}
		results[job.ID] = result
	}

	if useCache && o.cache != nil {
		o.cache.Put(ctx, fingerprint, results)
	}

	metrics.BatchDuration.Observe(time.Since(started).Seconds())
	o.record(ctx, started, "batch", status)
	o.logger.Info("batch completed", map[string]interface{}{
		"runId":      runID,
		"jobs":       len(jobs),
		"candidates": len(candidates),
		"durationMs": time.Since(started).Milliseconds(),
	})
	return results, nil
}

// indexedResult pairs a score with the candidate's position in the input
// pool, so the merged order is deterministic no matter which chunk finishes
// first.
type indexedResult struct {
	index  int
	result MatchResult
}

func (o *Orchestrator) matchJob(ctx context.Context, runID string, job JobPosting, candidates []CandidateProfile) *BatchResult {
	type chunk struct {
		offset     int
		candidates []CandidateProfile
	}

	chunks := make(chan chunk)
	scored := make(chan indexedResult, len(candidates))
	dropped := make(chan int, len(candidates))

	workers := o.workers
	numChunks := (len(candidates) + o.chunkSize - 1) / o.chunkSize
	if numChunks < workers {
		workers = numChunks
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range chunks {
				for i, candidate := range c.candidates {
					result, err := o.scorer.Score(ctx, job, candidate, job.OrganizationID)
					if err != nil {
						metrics.CandidatesDropped.Inc()
						o.logger.Warn("candidate dropped from batch", map[string]interface{}{
							"jobId":       job.ID,
							"candidateId": candidate.ID,
							"error":       err.Error(),
						})
						dropped <- c.offset + i
						continue
					}
					metrics.ScoresComputed.WithLabelValues("batch").Inc()
					scored <- indexedResult{index: c.offset + i, result: *result}
				}
			}
		}()
	}

	for offset := 0; offset < len(candidates); offset += o.chunkSize {
		end := offset + o.chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		chunks <- chunk{offset: offset, candidates: candidates[offset:end]}
	}
	close(chunks)
	wg.Wait()
	close(scored)
	close(dropped)

	merged := make([]indexedResult, 0, len(candidates))
	for r := range scored {
		merged = append(merged, r)
	}
	droppedCount := len(dropped)

	// Deterministic final order: score descending, input order breaks ties.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].result.Score != merged[j].result.Score {
			return merged[i].result.Score > merged[j].result.Score
		}
		return merged[i].index < merged[j].index
	})

	top := merged
	if len(top) > o.topN {
		top = top[:o.topN]
	}
	matches := make([]MatchResult, len(top))
	for i, r := range top {
		matches[i] = r.result
	}

	status := BatchStatusCompleted
	if droppedCount > 0 {
		status = BatchStatusPartial
	}

	return &BatchResult{
		RunID:          runID,
		JobID:          job.ID,
		JobTitle:       job.Title,
		CandidateCount: len(candidates),
		TopMatches:     matches,
		Status:         status,
		AlgoVersion:    o.algoVersion,
	}
}

// markCacheHit returns per-call copies flagged as served from cache. The
// match slices are copied too; result ownership passes to the caller and a
// caller mutation must not reach the stored entries.
func markCacheHit(cached map[string]*BatchResult) map[string]*BatchResult {
	out := make(map[string]*BatchResult, len(cached))
	for k, v := range cached {
		copied := *v
		copied.CacheHit = true
		copied.TopMatches = make([]MatchResult, len(v.TopMatches))
		copy(copied.TopMatches, v.TopMatches)
		out[k] = &copied
	}
	return out
}
