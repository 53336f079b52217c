package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so transport layers can map them to
// status codes without string matching.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindCapacity   ErrorKind = "capacity"
	KindNotFound   ErrorKind = "not_found"
	KindExtraction ErrorKind = "extraction_failed"
	KindEmbedding  ErrorKind = "embedding_failed"
	KindIndexing   ErrorKind = "indexing_failed"
	KindGeneration ErrorKind = "generation_failed"
)

// PipelineError carries a machine-distinguishable kind alongside a
// human-readable message.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Errorf builds a PipelineError of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a PipelineError wrapping an underlying cause.
func WrapError(kind ErrorKind, err error, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or an empty kind for foreign errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
