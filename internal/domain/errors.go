package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrExtraction    = errors.New("extraction warning")
)

// ValidationError marks a malformed Article or TrackedVessel. It aborts work on
// the offending record only.
type ValidationError struct {
	Subject string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Subject, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s %s", e.Subject, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConfigurationError marks a programming or config mistake. It aborts the whole run.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Setting, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ExtractionWarning records a single article skipped during a run.
type ExtractionWarning struct {
	ArticleID string
	Err       error
}

func (w *ExtractionWarning) Error() string {
	return fmt.Sprintf("article %s skipped: %v", w.ArticleID, w.Err)
}

// Unwrap exposes the underlying cause.
func (w *ExtractionWarning) Unwrap() error {
	return w.Err
}

// Is lets errors.Is(err, ErrExtraction) match.
func (w *ExtractionWarning) Is(target error) bool {
	return target == ErrExtraction
}
