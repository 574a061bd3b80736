package matching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"match-engine/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// BatchCache stores completed batch result sets keyed by request fingerprint.
// Lookups fail open: an unavailable cache behaves like a miss.
type BatchCache interface {
	Get(ctx context.Context, key string) (map[string]*BatchResult, bool)
	Put(ctx context.Context, key string, results map[string]*BatchResult)
	Clear(ctx context.Context)
}

// Fingerprint derives a deterministic cache key from the shape of a batch
// request: job count, candidate-pool size and the set of job ids.
func Fingerprint(jobs []JobPosting, candidates []CandidateProfile) string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	sort.Strings(ids)

	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%s", len(jobs), len(candidates), strings.Join(ids, ","))))
	return hex.EncodeToString(h[:])
}

// ==========================
// In-memory implementation
// ==========================

type memoryCacheEntry struct {
	results   map[string]*BatchResult
	expiresAt time.Time
	seq       uint64
}

// MemoryBatchCache is a bounded in-memory cache with TTL eviction. When full,
// the oldest entry is evicted first.
type MemoryBatchCache struct {
	mu       sync.Mutex
	entries  map[string]memoryCacheEntry
	maxItems int
	ttl      time.Duration
	seq      uint64
}

func NewMemoryBatchCache(maxItems int, ttl time.Duration) *MemoryBatchCache {
	if maxItems <= 0 {
		maxItems = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryBatchCache{
		entries:  make(map[string]memoryCacheEntry),
		maxItems: maxItems,
		ttl:      ttl,
	}
}

func (c *MemoryBatchCache) Get(_ context.Context, key string) (map[string]*BatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.results, true
}

func (c *MemoryBatchCache) Put(_ context.Context, key string, results map[string]*BatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxItems {
		c.evictOldestLocked()
	}

	c.seq++
	c.entries[key] = memoryCacheEntry{
		results:   results,
		expiresAt: time.Now().Add(c.ttl),
		seq:       c.seq,
	}
}

func (c *MemoryBatchCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryCacheEntry)
}

// Len reports the number of live entries, for tests and diagnostics.
func (c *MemoryBatchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryBatchCache) evictOldestLocked() {
	var oldestKey string
	var oldestSeq uint64
	first := true
	for k, e := range c.entries {
		if first || e.seq < oldestSeq {
			oldestKey = k
			oldestSeq = e.seq
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// ==========================
// Redis implementation
// ==========================

const redisCachePrefix = "batch:result:"

// RedisBatchCache stores serialized result sets in Redis with TTL eviction,
// for deployments where batch results should survive a process restart.
type RedisBatchCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisBatchCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisBatchCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisBatchCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "batchCache"}),
	}
}

func (c *RedisBatchCache) Get(ctx context.Context, key string) (map[string]*BatchResult, bool) {
	val, err := c.client.Get(ctx, redisCachePrefix+key).Result()
	if err != nil {
		return nil, false
	}

	var results map[string]*BatchResult
	if err := json.Unmarshal([]byte(val), &results); err != nil {
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	}
	return results, true
}

func (c *RedisBatchCache) Put(ctx context.Context, key string, results map[string]*BatchResult) {
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn("failed to serialize batch results for cache", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if err := c.client.Set(ctx, redisCachePrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("batch cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (c *RedisBatchCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisCachePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("batch cache delete failed", map[string]interface{}{
				"key":   iter.Val(),
				"error": err.Error(),
			})
		}
	}
}
