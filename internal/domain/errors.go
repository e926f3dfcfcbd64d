package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus indicates an analysis was attempted with zero records
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrNotClustered indicates a corpus without cluster labels was handed to the scorer
	ErrNotClustered = errors.New("corpus is not clustered")

	// ErrNotAnalyzed indicates a grouped read before any analysis has run
	ErrNotAnalyzed = errors.New("no analysis has run")

	// ErrAnalysisInProgress indicates another instance holds the analysis lock
	ErrAnalysisInProgress = errors.New("analysis already in progress")

	// ErrNotFound indicates the requested cluster does not exist
	ErrNotFound = errors.New("not found")

	// ErrLengthMismatch indicates a collaborator returned a different number of outputs than inputs
	ErrLengthMismatch = errors.New("output length does not match input length")
)

// ValidationError reports a malformed ingestion input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// UpstreamError wraps a failure raised by the embedder or clusterer.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsUpstream reports whether err is or wraps an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}
