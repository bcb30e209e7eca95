package domain

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the engine's error taxonomy. Callers use
// errors.As to recover the kind rather than matching on message text.
type ErrorKind string

const (
	InvalidArgument    ErrorKind = "InvalidArgument"
	InvalidQuery       ErrorKind = "InvalidQuery"
	InvalidUpdate      ErrorKind = "InvalidUpdate"
	InvalidDocument    ErrorKind = "InvalidDocument"
	DuplicateKey       ErrorKind = "DuplicateKey"
	NotFound           ErrorKind = "NotFound"
	ImmutableField     ErrorKind = "ImmutableField"
	LockTimeout        ErrorKind = "LockTimeout"
	Conflict           ErrorKind = "Conflict"
	BackendUnavailable ErrorKind = "BackendUnavailable"
	InternalError      ErrorKind = "InternalError"
)

// EngineError is the concrete error type raised by every gasdb
// subsystem. It carries a Kind so callers can branch on the taxonomy
// without parsing Error().
type EngineError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, if any
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewError builds an EngineError of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an EngineError of the given kind around a lower-level cause.
func Wrap(kind ErrorKind, cause error, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the ErrorKind carried by err, if any, and whether one
// was found.
func KindOf(err error) (ErrorKind, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind, true
	}
	return "", false
}

// ConflictDetails carries the stored and expected tokens so callers may
// retry against current state.
type ConflictDetails struct {
	CollectionName string
	Expected       string
	Actual         string
}

// NewConflictError builds a Conflict EngineError annotated with the
// token mismatch.
func NewConflictError(collName, expected, actual string) *EngineError {
	return NewError(Conflict, "collection %q: expected token %q, actual %q", collName, expected, actual)
}
