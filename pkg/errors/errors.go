// Package errors provides error wrapping utilities and the stage error
// taxonomy used by the installer pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Wrap wraps an error with additional context information.
// If err is nil, it returns nil without wrapping.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Kind classifies a failure by how the pipeline reacts to it.
type Kind int

const (
	// KindUnknown is reported for errors that carry no StageError.
	KindUnknown Kind = iota
	// KindEnvironment is a missing tool or unsupported platform.
	KindEnvironment
	// KindInput is an operator input that failed validation or was declined.
	KindInput
	// KindDestructive is a failed attach, format, copy or split.
	KindDestructive
	// KindCleanup is a failed detach after the useful work is done.
	KindCleanup
)

func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindInput:
		return "input"
	case KindDestructive:
		return "destructive"
	case KindCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// StageError is returned by every pipeline stage that fails.
type StageError struct {
	Kind  Kind
	Stage string
	Err   error
}

// NewStage builds a StageError. A nil err yields nil.
func NewStage(kind Kind, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first StageError in err's chain.
func KindOf(err error) Kind {
	var se *StageError
	if stderrors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// StageOf returns the stage name of the first StageError in err's chain.
func StageOf(err error) string {
	var se *StageError
	if stderrors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Is and As re-export the standard library helpers so callers need only one
// errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

// New re-exports errors.New.
func New(text string) error { return stderrors.New(text) }
