package matching

import (
	"context"
	"fmt"
	"strings"

	"match-engine/internal/common/logger"
	"match-engine/internal/embedding"
)

// experienceRange maps a seniority keyword to the expected years range.
// First keyword match wins, so the order is fixed.
type experienceRange struct {
	keyword  string
	minYears int
	maxYears int
}

var experienceRanges = []experienceRange{
	{"entry", 0, 2},
	{"junior", 1, 3},
	{"mid", 2, 5},
	{"senior", 4, 8},
	{"lead", 6, 15},
	{"principal", 8, 20},
}

// Weight applied to the cultural-fit signal on top of the four weighted
// primary signals. Because the primary weights may not sum to exactly 0.9
// after per-organization overrides, the total is not guaranteed to stay
// within [0, 1]; the breakdown keeps it auditable.
const culturalWeight = 0.1

// signalPolicy makes the per-signal failure behavior explicit: a signal
// either propagates its error to the caller or falls back to a default.
type signalPolicy struct {
	propagate    bool
	defaultValue float64
}

var signalPolicies = map[string]signalPolicy{
	"semantic":   {propagate: true},
	"experience": {propagate: true},
	"skills":     {propagate: true},
	"location":   {propagate: true},
	"cultural":   {propagate: false, defaultValue: 0.5},
}

// CulturalFitSource resolves the historical cultural-fit value for an
// (organization, candidate) pair. Implementations must never fail hard;
// they return the neutral value instead.
type CulturalFitSource interface {
	Fit(ctx context.Context, organizationID, candidateID string) float64
}

// Scorer combines five independent signals into one score for a single
// (job, candidate) pair using per-organization weights.
type Scorer struct {
	embedder    embedding.Embedder
	prefs       *PreferenceStore
	cultural    CulturalFitSource
	logger      logger.Logger
	algoVersion string
}

func NewScorer(embedder embedding.Embedder, prefs *PreferenceStore, cultural CulturalFitSource, log logger.Logger, algoVersion string) *Scorer {
	return &Scorer{
		embedder:    embedder,
		prefs:       prefs,
		cultural:    cultural,
		logger:      log.WithFields(map[string]interface{}{"component": "scorer"}),
		algoVersion: algoVersion,
	}
}

// Score computes the weighted match score for one (job, candidate) pair.
// organizationID selects the weight profile; an unknown or empty organization
// falls back to the default weights.
func (s *Scorer) Score(ctx context.Context, job JobPosting, candidate CandidateProfile, organizationID string) (*MatchResult, error) {
	semantic, err := s.semanticScore(ctx, job, candidate)
	if err != nil {
		return nil, fmt.Errorf("semantic signal: %w", err)
	}

	experience := s.experienceScore(job.ExperienceLevel, candidate.ExperienceYears)

	skills, err := s.skillsScore(ctx, job.Requirements, candidate.Skills)
	if err != nil {
		return nil, fmt.Errorf("skills signal: %w", err)
	}

	location, err := s.locationScore(ctx, job.Location, candidate.Location)
	if err != nil {
		return nil, fmt.Errorf("location signal: %w", err)
	}

	cultural := signalPolicies["cultural"].defaultValue
	if s.cultural != nil {
		cultural = s.cultural.Fit(ctx, organizationID, candidate.ID)
	}

	weights := DefaultWeights()
	if s.prefs != nil {
		weights = s.prefs.Get(organizationID)
	}

	total := semantic*weights.Semantic +
		experience*weights.Experience +
		skills*weights.Skills +
		location*weights.Location +
		cultural*culturalWeight

	return &MatchResult{
		CandidateID: candidate.ID,
		Score:       total,
		Breakdown: ScoreBreakdown{
			Semantic:   semantic,
			Experience: experience,
			Skills:     skills,
			Location:   location,
			Cultural:   cultural,
		},
		Weights:     weights,
		AlgoVersion: s.algoVersion,
	}, nil
}

func (s *Scorer) semanticScore(ctx context.Context, job JobPosting, candidate CandidateProfile) (float64, error) {
	jobText := strings.TrimSpace(job.Title + " " + job.Description + " " + job.Requirements)
	candText := strings.TrimSpace(candidate.Skills + " " + candidate.Seniority + " " + candidate.Education)

	jobVec, err := s.embedder.Embed(ctx, jobText)
	if err != nil {
		return 0, err
	}
	candVec, err := s.embedder.Embed(ctx, candText)
	if err != nil {
		return 0, err
	}
	return embedding.Cosine(jobVec, candVec), nil
}

func (s *Scorer) experienceScore(levelLabel string, years int) float64 {
	label := strings.ToLower(levelLabel)

	for _, r := range experienceRanges {
		if !strings.Contains(label, r.keyword) {
			continue
		}
		if years >= r.minYears && years <= r.maxYears {
			return 1.0
		}
		if years < r.minYears {
			gap := float64(r.minYears - years)
			return max(0.3, 1.0-0.2*gap)
		}
		excess := float64(years - r.maxYears)
		return max(0.7, 1.0-0.1*excess)
	}

	// Unknown level label: neutral.
	return 0.5
}

func (s *Scorer) skillsScore(ctx context.Context, requirements, skills string) (float64, error) {
	if strings.TrimSpace(requirements) == "" || strings.TrimSpace(skills) == "" {
		return 0.0, nil
	}

	reqVec, err := s.embedder.Embed(ctx, strings.ToLower(requirements))
	if err != nil {
		return 0, err
	}
	skillVec, err := s.embedder.Embed(ctx, strings.ToLower(skills))
	if err != nil {
		return 0, err
	}
	return embedding.Cosine(reqVec, skillVec), nil
}

func (s *Scorer) locationScore(ctx context.Context, jobLocation, candidateLocation string) (float64, error) {
	if strings.TrimSpace(jobLocation) == "" {
		return 0.5, nil
	}
	// A remote job matches every candidate, even one with no location.
	if strings.Contains(strings.ToLower(jobLocation), "remote") {
		return 1.0, nil
	}
	if strings.TrimSpace(candidateLocation) == "" {
		return 0.5, nil
	}
	if strings.EqualFold(jobLocation, candidateLocation) {
		return 1.0, nil
	}

	jobVec, err := s.embedder.Embed(ctx, jobLocation)
	if err != nil {
		return 0, err
	}
	candVec, err := s.embedder.Embed(ctx, candidateLocation)
	if err != nil {
		return 0, err
	}
	return embedding.Cosine(jobVec, candVec), nil
}
