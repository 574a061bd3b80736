package matching

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"match-engine/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// culturalQuery averages the five cultural-value ratings for a specific
// (organization, candidate) pairing.
const culturalQuery = `
	SELECT AVG((f.collaboration + f.innovation + f.integrity + f.adaptability + f.excellence) / 5.0)
	FROM match_feedback f
	JOIN jobs j ON j.id = f.job_id
	WHERE j.organization_id = $1 AND f.candidate_id = $2`

// neutralFit is returned whenever no history exists or the lookup fails.
const neutralFit = 0.5

// CulturalFitStore resolves cultural fit from historical feedback, with a
// Redis read-through cache in front of Postgres. Every failure path falls
// open to the neutral value; this lookup must never abort a scoring call.
type CulturalFitStore struct {
	db     *sql.DB
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewCulturalFitStore builds the store. redisClient may be nil, in which case
// the cache layer is skipped.
func NewCulturalFitStore(db *sql.DB, redisClient *redis.Client, ttl time.Duration, log logger.Logger) *CulturalFitStore {
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &CulturalFitStore{
		db:     db,
		redis:  redisClient,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "culturalFit"}),
	}
}

// Fit returns the normalized cultural-fit value in [0, 1] for the pair, or
// the neutral value when no feedback exists or a lookup fails.
func (c *CulturalFitStore) Fit(ctx context.Context, organizationID, candidateID string) float64 {
	if organizationID == "" || candidateID == "" || c.db == nil {
		return neutralFit
	}

	cacheKey := "cultural:" + organizationID + ":" + candidateID
	if c.redis != nil {
		if val, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
			if fit, err := strconv.ParseFloat(val, 64); err == nil {
				return fit
			}
		}
	}

	var avg sql.NullFloat64
	err := c.db.QueryRowContext(ctx, culturalQuery, organizationID, candidateID).Scan(&avg)
	if err != nil {
		c.logger.Warn("cultural fit lookup failed, using neutral value", map[string]interface{}{
			"organizationId": organizationID,
			"candidateId":    candidateID,
			"error":          err.Error(),
		})
		return neutralFit
	}

	fit := neutralFit
	if avg.Valid {
		// Ratings run 0-5; normalize to [0, 1].
		fit = avg.Float64 / 5.0
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, cacheKey, strconv.FormatFloat(fit, 'f', -1, 64), c.ttl).Err(); err != nil {
			c.logger.Debug("cultural fit cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return fit
}
