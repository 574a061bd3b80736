package matching

import (
	"context"
	"testing"

	"match-engine/internal/common/config"
	enginerr "match-engine/internal/common/errors"
	"match-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestEngine(t *testing.T, embedder *fakeEmbedder) *Engine {
	db, _ := setupMockDB(t)
	cfg := config.MatchingConfig{
		ChunkSize:     3,
		PoolWorkers:   4,
		TopN:          10,
		MinFeedback:   3,
		CacheTTL:      60,
		CacheMaxItems: 16,
		CulturalTTL:   60,
		AlgoVersion:   "v2.1-ml",
	}
	return NewEngine(cfg, embedder, db, nil, nil, logger.NewTestLogger(t))
}

// ==========================
// Input Validation Tests
// ==========================

func TestEngine_ScoreOne_Validation(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, &fakeEmbedder{})

	t.Run("job without an id is rejected", func(t *testing.T) {
		job := createSeniorBackendJob()
		job.ID = ""

		_, err := engine.ScoreOne(ctx, job, createBackendCandidate(), "")
		assert.Error(t, err)
		assert.Equal(t, enginerr.ErrCodeInvalidJob, enginerr.CodeOf(err))
	})

	t.Run("job without a title is rejected", func(t *testing.T) {
		job := createSeniorBackendJob()
		job.Title = ""

		_, err := engine.ScoreOne(ctx, job, createBackendCandidate(), "")
		assert.Error(t, err)
		assert.Equal(t, enginerr.ErrCodeInvalidJob, enginerr.CodeOf(err))
	})

	t.Run("candidate without an id is rejected", func(t *testing.T) {
		candidate := createBackendCandidate()
		candidate.ID = ""

		_, err := engine.ScoreOne(ctx, createSeniorBackendJob(), candidate, "")
		assert.Error(t, err)
		assert.Equal(t, enginerr.ErrCodeInvalidCandidate, enginerr.CodeOf(err))
	})
}

func TestEngine_Batch_ValidatesEveryJob(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, &fakeEmbedder{})

	jobs := []JobPosting{createSeniorBackendJob(), {ID: "job-002"}} // missing title

	_, err := engine.Batch(ctx, jobs, createCandidatePool(2), false)
	assert.Error(t, err)
	assert.Equal(t, enginerr.ErrCodeInvalidJob, enginerr.CodeOf(err))
}

// ==========================
// End-to-End Scoring Tests
// ==========================

func TestEngine_ScoreOne(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, &fakeEmbedder{})

	result, err := engine.ScoreOne(ctx, createSeniorBackendJob(), createBackendCandidate(), "")
	assert.NoError(t, err)
	assert.Equal(t, "cand-001", result.CandidateID)
	assert.Equal(t, "v2.1-ml", result.AlgoVersion)

	// Senior with 6 years sits inside the senior range; the job is remote.
	assert.InDelta(t, 1.0, result.Breakdown.Experience, 1e-9)
	assert.InDelta(t, 1.0, result.Breakdown.Location, 1e-9)
	// No feedback history, so the cultural signal is neutral.
	assert.InDelta(t, 0.5, result.Breakdown.Cultural, 1e-9)
	assert.Greater(t, result.Score, 0.0)
}

func TestEngine_ScoreOne_EmbedderFailure(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, &fakeEmbedder{failOn: "Django"})

	_, err := engine.ScoreOne(ctx, createSeniorBackendJob(), createBackendCandidate(), "")
	assert.Error(t, err)
	assert.Equal(t, enginerr.ErrCodeScoringFailed, enginerr.CodeOf(err))
}

func TestEngine_MatchMany(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, &fakeEmbedder{})

	results, err := engine.MatchMany(ctx, createSeniorBackendJob(), createCandidatePool(3))
	assert.NoError(t, err)
	assert.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestEngine_Batch(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, &fakeEmbedder{})
	job := createSeniorBackendJob()
	pool := createCandidatePool(5)

	first, err := engine.Batch(ctx, []JobPosting{job}, pool, true)
	assert.NoError(t, err)
	assert.False(t, first[job.ID].CacheHit)

	second, err := engine.Batch(ctx, []JobPosting{job}, pool, true)
	assert.NoError(t, err)
	assert.True(t, second[job.ID].CacheHit)

	engine.ClearCache(ctx)

	third, err := engine.Batch(ctx, []JobPosting{job}, pool, true)
	assert.NoError(t, err)
	assert.False(t, third[job.ID].CacheHit)
}

// ==========================
// Feedback Path Tests
// ==========================

func TestEngine_RecordOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("low score leaves weights untouched", func(t *testing.T) {
		db, mock := setupMockDB(t)
		cfg := config.MatchingConfig{MinFeedback: 3, AlgoVersion: "v2.1-ml"}
		engine := NewEngine(cfg, &fakeEmbedder{}, db, nil, nil, logger.NewTestLogger(t))

		assert.NoError(t, engine.RecordOutcome(ctx, "job-1", "cand-1", 2.5))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, DefaultWeights(), engine.Weights("org-a"))
	})

	t.Run("strong score refreshes weights from history", func(t *testing.T) {
		db, mock := setupMockDB(t)
		cfg := config.MatchingConfig{MinFeedback: 3, AlgoVersion: "v2.1-ml"}
		engine := NewEngine(cfg, &fakeEmbedder{}, db, nil, nil, logger.NewTestLogger(t))

		mock.ExpectQuery("SELECT j.organization_id").
			WithArgs(3).
			WillReturnRows(preferenceRows().AddRow("org-a", 5, 4.2, 8.0))

		assert.NoError(t, engine.RecordOutcome(ctx, "job-1", "cand-1", 5.0))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.InDelta(t, 0.40, engine.Weights("org-a").Experience, 1e-9)
	})
}
