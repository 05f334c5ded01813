package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeNotRegistered is returned for uploads or searches against an
	// unknown file type.
	ErrTypeNotRegistered = errors.New("file type is not registered")

	// ErrInvalidMetadataJSON is returned when the metadata payload cannot be
	// parsed as a JSON object.
	ErrInvalidMetadataJSON = errors.New("metadata is not a valid JSON object")

	// ErrEmbeddingUnavailable wraps failures of the embedding service. It is
	// surfaced to the caller, never degraded into silently skipping indexing.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// FieldValidationError carries the complete per-field error map from
// metadata validation. The map always covers every offending field so the
// caller can correct them all in one resubmission.
type FieldValidationError struct {
	Fields map[string]string
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("metadata validation failed for %d field(s)", len(e.Fields))
}
