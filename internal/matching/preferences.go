package matching

import (
	"context"
	"database/sql"
	"sync"

	enginerr "match-engine/internal/common/errors"
	"match-engine/internal/common/logger"
	"match-engine/internal/common/metrics"
)

// preferenceQuery aggregates strongly positive feedback per organization.
// Organizations with fewer than the minimum number of qualifying rows are
// excluded as statistically unreliable.
const preferenceQuery = `
	SELECT j.organization_id,
	       COUNT(*) AS feedback_count,
	       AVG(f.avg_score) AS avg_satisfaction,
	       AVG(c.experience_years) AS avg_experience
	FROM match_feedback f
	JOIN jobs j ON j.id = f.job_id
	JOIN candidates c ON c.id = f.candidate_id
	WHERE f.avg_score >= 4.0
	GROUP BY j.organization_id
	HAVING COUNT(*) >= $1`

// PreferenceStore holds the per-organization weight profiles. Profiles are
// published as an immutable snapshot swapped under a write lock, so readers
// see either the old or the new map, never a partially built one.
type PreferenceStore struct {
	db          *sql.DB
	logger      logger.Logger
	minFeedback int

	mu       sync.RWMutex
	profiles map[string]WeightProfile
}

func NewPreferenceStore(db *sql.DB, minFeedback int, log logger.Logger) *PreferenceStore {
	if minFeedback <= 0 {
		minFeedback = 3
	}
	return &PreferenceStore{
		db:          db,
		logger:      log.WithFields(map[string]interface{}{"component": "preferences"}),
		minFeedback: minFeedback,
		profiles:    make(map[string]WeightProfile),
	}
}

// Get returns the stored profile for an organization, or the default weights
// if the organization has no qualifying feedback history.
func (p *PreferenceStore) Get(organizationID string) WeightProfile {
	p.mu.RLock()
	profile, ok := p.profiles[organizationID]
	p.mu.RUnlock()
	if !ok {
		return DefaultWeights()
	}
	return profile
}

// Reload rebuilds all profiles from the feedback history and swaps them in
// wholesale. On failure the previous in-memory state is left untouched and
// the error is reported as non-fatal.
func (p *PreferenceStore) Reload(ctx context.Context) error {
	fresh, err := p.loadProfiles(ctx)
	if err != nil {
		metrics.PreferenceReloads.WithLabelValues("failed").Inc()
		p.logger.Warn("preference reload failed, keeping previous weights", map[string]interface{}{
			"error": err.Error(),
		})
		return enginerr.NewPreferenceLoadError(err)
	}

	p.mu.Lock()
	p.profiles = fresh
	p.mu.Unlock()

	metrics.PreferenceReloads.WithLabelValues("success").Inc()
	p.logger.Info("preference profiles reloaded", map[string]interface{}{
		"organizations": len(fresh),
	})
	return nil
}

func (p *PreferenceStore) loadProfiles(ctx context.Context) (map[string]WeightProfile, error) {
	rows, err := p.db.QueryContext(ctx, preferenceQuery, p.minFeedback)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make(map[string]WeightProfile)
	for rows.Next() {
		var orgID string
		var count int
		var avgSatisfaction, avgExperience float64
		if err := rows.Scan(&orgID, &count, &avgSatisfaction, &avgExperience); err != nil {
			return nil, err
		}
		profiles[orgID] = deriveWeights(count, avgSatisfaction, avgExperience)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// deriveWeights applies the deterministic adjustment rules to the base
// weights. The satisfaction rule can leave the four weights summing to more
// than 1; that is the accepted behavior of the rules, not corrected here.
func deriveWeights(count int, avgSatisfaction, avgExperience float64) WeightProfile {
	w := DefaultWeights()
	w.AvgSatisfaction = avgSatisfaction
	w.AvgExperience = avgExperience
	w.FeedbackCount = count

	if avgSatisfaction > 4.5 {
		w.Experience = 0.35
		w.Semantic = 0.35
	}

	if avgExperience > 7 {
		w.Experience = 0.40
		w.Semantic = 0.30
	} else if avgExperience < 3 {
		w.Skills = 0.30
		w.Experience = 0.20
	}

	return w
}

// Snapshot returns a copy of the current profile map, for diagnostics.
func (p *PreferenceStore) Snapshot() map[string]WeightProfile {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]WeightProfile, len(p.profiles))
	for k, v := range p.profiles {
		out[k] = v
	}
	return out
}
