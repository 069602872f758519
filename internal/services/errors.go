package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks caller-fixable input problems; never retried.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for unknown jobs, batches, or assets.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state transitions that are invalid for the current state.
	ErrConflict = errors.New("conflict")
	// ErrExternalTool marks stage executor failures (tool crash, nonzero exit).
	ErrExternalTool = errors.New("external tool error")
	// ErrTransient marks failures worth a bounded retry.
	ErrTransient = errors.New("transient failure")
	// ErrCache marks result cache failures; always non-fatal to the pipeline.
	ErrCache = errors.New("cache error")
	// ErrConfiguration marks missing or invalid runtime configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Message strips the sentinel prefix from a classified error, returning the
// human-readable remainder suitable for persisting on a job.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, marker := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrExternalTool, ErrTransient, ErrCache, ErrConfiguration} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

// Retryable reports whether a stage failure qualifies for the bounded
// export-batch retry policy. Validation and conflict failures never do.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound), errors.Is(err, ErrConfiguration):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
