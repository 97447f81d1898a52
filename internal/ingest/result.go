package ingest

import (
	"errors"
	"fmt"
)

var errDegraded = errors.New("artifact degraded")

// Outcome is the result of a diagnostic step that never fails. A Defaulted
// outcome carries a fallback value and the cause the step could not compute
// the real one.
type Outcome[T any] struct {
	Value T
	Cause error
}

// Computed wraps a successfully computed value.
func Computed[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Defaulted wraps a fallback value and the reason it was used.
func Defaulted[T any](v T, cause error) Outcome[T] {
	if cause == nil {
		cause = errDegraded
	}
	return Outcome[T]{Value: v, Cause: cause}
}

// IsDefaulted reports whether the value is a fallback.
func (o Outcome[T]) IsDefaulted() bool { return o.Cause != nil }

// guard runs fn and converts an error or a panic into a Defaulted outcome.
func guard[T any](fallback T, fn func() (T, error)) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Defaulted(fallback, fmt.Errorf("panic: %v", r))
		}
	}()
	v, err := fn()
	if err != nil {
		return Defaulted(fallback, err)
	}
	return Computed(v)
}
