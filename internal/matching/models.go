package matching

// JobPosting is the job record as supplied by the calling system. It is
// treated as immutable for the duration of a match request.
type JobPosting struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Requirements    string `json:"requirements"`
	ExperienceLevel string `json:"experienceLevel"`
	Location        string `json:"location"`
	OrganizationID  string `json:"organizationId"`
}

// CandidateProfile is the candidate record as supplied by the calling system.
type CandidateProfile struct {
	ID              string `json:"id"`
	Skills          string `json:"skills"`
	ExperienceYears int    `json:"experienceYears"`
	Seniority       string `json:"seniority"`
	Education       string `json:"education"`
	Location        string `json:"location"`
}

// FeedbackRecord is one historical match outcome: five cultural-value ratings
// and their derived average. Only records with Average >= 4.0 participate in
// weight learning.
type FeedbackRecord struct {
	CandidateID   string  `json:"candidateId"`
	JobID         string  `json:"jobId"`
	Collaboration int     `json:"collaboration"`
	Innovation    int     `json:"innovation"`
	Integrity     int     `json:"integrity"`
	Adaptability  int     `json:"adaptability"`
	Excellence    int     `json:"excellence"`
	Average       float64 `json:"average"`
}

// WeightProfile is the set of coefficients applied to the four primary
// scoring signals for one organization, plus metadata derived from the
// feedback that produced it. After rule overrides the four weights need not
// sum to 1; that matches the historical behavior of the scoring rules and is
// deliberately not renormalized.
type WeightProfile struct {
	Semantic   float64 `json:"semantic"`
	Experience float64 `json:"experience"`
	Skills     float64 `json:"skills"`
	Location   float64 `json:"location"`

	AvgSatisfaction float64 `json:"avgSatisfaction,omitempty"`
	AvgExperience   float64 `json:"avgExperience,omitempty"`
	FeedbackCount   int     `json:"feedbackCount,omitempty"`
}

// DefaultWeights returns the base profile used when an organization has no
// qualifying feedback history. These four sum to 1.
func DefaultWeights() WeightProfile {
	return WeightProfile{
		Semantic:   0.40,
		Experience: 0.30,
		Skills:     0.20,
		Location:   0.10,
	}
}

// ScoreBreakdown carries the five component scores of a match.
type ScoreBreakdown struct {
	Semantic   float64 `json:"semantic"`
	Experience float64 `json:"experience"`
	Skills     float64 `json:"skills"`
	Location   float64 `json:"location"`
	Cultural   float64 `json:"cultural"`
}

// MatchResult is the scored outcome for one (job, candidate) pair. It is
// never mutated after creation; ownership passes to the caller.
type MatchResult struct {
	CandidateID string         `json:"candidateId"`
	Score       float64        `json:"score"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Weights     WeightProfile  `json:"weights"`
	AlgoVersion string         `json:"algoVersion"`
}

// BatchResult is the per-job outcome of a batch run.
type BatchResult struct {
	RunID          string        `json:"runId"`
	JobID          string        `json:"jobId"`
	JobTitle       string        `json:"jobTitle"`
	CandidateCount int           `json:"candidateCount"`
	TopMatches     []MatchResult `json:"topMatches"`
	Status         string        `json:"status"`
	AlgoVersion    string        `json:"algoVersion"`
	CacheHit       bool          `json:"cacheHit"`
}

// Batch processing statuses.
const (
	BatchStatusCompleted = "completed"
	BatchStatusPartial   = "partial"
)

// doc returns the record's JSON-compatible map form for schema validation.
func (j JobPosting) doc() map[string]interface{} {
	return map[string]interface{}{
		"id":              j.ID,
		"title":           j.Title,
		"description":     j.Description,
		"requirements":    j.Requirements,
		"experienceLevel": j.ExperienceLevel,
		"location":        j.Location,
		"organizationId":  j.OrganizationID,
	}
}

func (c CandidateProfile) doc() map[string]interface{} {
	return map[string]interface{}{
		"id":              c.ID,
		"skills":          c.Skills,
		"experienceYears": c.ExperienceYears,
		"seniority":       c.Seniority,
		"education":       c.Education,
		"location":        c.Location,
	}
}
