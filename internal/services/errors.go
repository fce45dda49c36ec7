package services

import "errors"

// Analysis service errors
var (
	// ErrNoFile is returned when a request carries no upload.
	ErrNoFile = errors.New("no file uploaded")

	// ErrAnalysisTimeout wraps context.DeadlineExceeded when a run outlives
	// the configured analysis timeout.
	ErrAnalysisTimeout = errors.New("analysis timed out")

	// ErrServiceUnavailable is returned by readiness checks that fail.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
