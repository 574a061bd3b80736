package matching

import (
	"context"

	"match-engine/internal/common/logger"
)

// Feedback at or above this average marks a strongly positive outcome and
// makes the organization's weight profile worth refreshing.
const reloadThreshold = 4.0

// FeedbackTracker reacts to newly recorded match outcomes. A strongly
// positive outcome triggers a synchronous full preference reload: the event
// is rare and fresh weights matter more than latency here.
type FeedbackTracker struct {
	prefs  *PreferenceStore
	logger logger.Logger
}

func NewFeedbackTracker(prefs *PreferenceStore, log logger.Logger) *FeedbackTracker {
	return &FeedbackTracker{
		prefs:  prefs,
		logger: log.WithFields(map[string]interface{}{"component": "feedback"}),
	}
}

// Record processes one match outcome. Scores below the threshold are a no-op.
func (t *FeedbackTracker) Record(ctx context.Context, jobID, candidateID string, score float64) error {
	if score < reloadThreshold {
		t.logger.Debug("outcome below reload threshold", map[string]interface{}{
			"jobId":       jobID,
			"candidateId": candidateID,
			"score":       score,
		})
		return nil
	}

	t.logger.Info("strongly positive outcome, refreshing preference weights", map[string]interface{}{
		"jobId":       jobID,
		"candidateId": candidateID,
		"score":       score,
	})
	return t.prefs.Reload(ctx)
}
