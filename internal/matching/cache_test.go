package matching

import (
	"context"
	"testing"
	"time"

	"match-engine/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// ==========================
// Fingerprint Tests
// ==========================

func TestFingerprint(t *testing.T) {
	jobs := []JobPosting{{ID: "job-b"}, {ID: "job-a"}}
	candidates := []CandidateProfile{{ID: "c1"}, {ID: "c2"}}

	fp := Fingerprint(jobs, candidates)
	assert.Len(t, fp, 64)

	// Job order does not matter; ids are sorted before hashing.
	reordered := Fingerprint([]JobPosting{{ID: "job-a"}, {ID: "job-b"}}, candidates)
	assert.Equal(t, fp, reordered)

	// Pool size does.
	smaller := Fingerprint(jobs, candidates[:1])
	assert.NotEqual(t, fp, smaller)

	// And so does the job set.
	other := Fingerprint([]JobPosting{{ID: "job-a"}, {ID: "job-c"}}, candidates)
	assert.NotEqual(t, fp, other)
}

// ==========================
// Memory Cache Tests
// ==========================

func TestMemoryBatchCache(t *testing.T) {
	ctx := context.Background()
	sample := map[string]*BatchResult{"job-1": {JobID: "job-1", Status: BatchStatusCompleted}}

	t.Run("round trip", func(t *testing.T) {
		cache := NewMemoryBatchCache(10, time.Minute)
		cache.Put(ctx, "key-1", sample)

		got, ok := cache.Get(ctx, "key-1")
		assert.True(t, ok)
		assert.Equal(t, "job-1", got["job-1"].JobID)

		_, ok = cache.Get(ctx, "key-missing")
		assert.False(t, ok)
	})

	t.Run("expired entries behave as misses", func(t *testing.T) {
		cache := NewMemoryBatchCache(10, time.Nanosecond)
		cache.Put(ctx, "key-1", sample)
		time.Sleep(time.Millisecond)

		_, ok := cache.Get(ctx, "key-1")
		assert.False(t, ok)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("oldest entry is evicted when full", func(t *testing.T) {
		cache := NewMemoryBatchCache(2, time.Minute)
		cache.Put(ctx, "key-1", sample)
		cache.Put(ctx, "key-2", sample)
		cache.Put(ctx, "key-3", sample)

		assert.Equal(t, 2, cache.Len())
		_, ok := cache.Get(ctx, "key-1")
		assert.False(t, ok)
		_, ok = cache.Get(ctx, "key-3")
		assert.True(t, ok)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		cache := NewMemoryBatchCache(10, time.Minute)
		cache.Put(ctx, "key-1", sample)
		cache.Put(ctx, "key-2", sample)
		cache.Clear(ctx)
		assert.Equal(t, 0, cache.Len())
	})
}

// ==========================
// Redis Cache Tests
// ==========================

func TestRedisBatchCache(t *testing.T) {
	ctx := context.Background()
	sample := map[string]*BatchResult{
		"job-1": {JobID: "job-1", JobTitle: "Backend Engineer", Status: BatchStatusCompleted},
	}

	t.Run("round trip against miniredis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cache := NewRedisBatchCache(client, time.Minute, logger.NewTestLogger(t))

		cache.Put(ctx, "fp-1", sample)

		got, ok := cache.Get(ctx, "fp-1")
		assert.True(t, ok)
		assert.Equal(t, "Backend Engineer", got["job-1"].JobTitle)

		_, ok = cache.Get(ctx, "fp-missing")
		assert.False(t, ok)
	})

	t.Run("entries expire with the redis TTL", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cache := NewRedisBatchCache(client, time.Second, logger.NewTestLogger(t))

		cache.Put(ctx, "fp-1", sample)
		mr.FastForward(2 * time.Second)

		_, ok := cache.Get(ctx, "fp-1")
		assert.False(t, ok)
	})

	t.Run("clear deletes only cache keys", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cache := NewRedisBatchCache(client, time.Minute, logger.NewTestLogger(t))

		cache.Put(ctx, "fp-1", sample)
		cache.Put(ctx, "fp-2", sample)
		assert.NoError(t, mr.Set("unrelated", "keep"))

		cache.Clear(ctx)

		_, ok := cache.Get(ctx, "fp-1")
		assert.False(t, ok)
		_, ok = cache.Get(ctx, "fp-2")
		assert.False(t, ok)
		assert.True(t, mr.Exists("unrelated"))
	})

	t.Run("redis errors behave as misses", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet(redisCachePrefix + "fp-1").SetErr(assert.AnError)

		cache := NewRedisBatchCache(client, time.Minute, logger.NewTestLogger(t))
		_, ok := cache.Get(ctx, "fp-1")
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("undecodable payloads behave as misses", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cache := NewRedisBatchCache(client, time.Minute, logger.NewTestLogger(t))

		assert.NoError(t, mr.Set(redisCachePrefix+"fp-1", "{not json"))
		_, ok := cache.Get(ctx, "fp-1")
		assert.False(t, ok)
	})
}
