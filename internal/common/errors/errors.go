// Package errors provides standardized error handling for the matching engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Fatal at startup: the embedding model is required by every signal.
	ErrCodeEmbedderInitFailed ErrorCode = "EMBEDDER_INIT_FAILED"

	// Non-fatal: a reload failure keeps the previous in-memory weights.
	ErrCodePreferenceLoadFailed ErrorCode = "PREFERENCE_LOAD_FAILED"

	// Propagated to the caller of ScoreOne/MatchMany.
	ErrCodeScoringFailed    ErrorCode = "SCORING_FAILED"
	ErrCodeEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"
	ErrCodeInvalidJob       ErrorCode = "INVALID_JOB"
	ErrCodeInvalidCandidate ErrorCode = "INVALID_CANDIDATE"

	// Logged only: the candidate is dropped from the batch result.
	ErrCodeCandidateSkipped ErrorCode = "CANDIDATE_SKIPPED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEmbedderInitError marks the engine unusable; callers must not start.
func NewEmbedderInitError(cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbedderInitFailed,
		Message:   "Embedding provider failed to initialize",
		Details:   cause.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewPreferenceLoadError is non-fatal; prior weights stay in effect.
func NewPreferenceLoadError(cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferenceLoadFailed,
		Message:   "Preference reload failed, previous weights retained",
		Details:   cause.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewScoringError wraps a failure scoring a single (job, candidate) pair.
func NewScoringError(candidateID string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringFailed,
		Message:   "Failed to score candidate",
		Details:   cause.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"candidateId": candidateID},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidJobError indicates the job record failed schema validation.
func NewInvalidJobError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJob,
		Message:   "Job record failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCandidateError indicates the candidate record failed schema validation.
func NewInvalidCandidateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCandidate,
		Message:   "Candidate record failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// CodeOf extracts the ErrorCode from err, or empty if it is not a StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
