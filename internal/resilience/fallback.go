// Package resilience provides ordered first-success fallback across
// interchangeable providers, used to pick an inference backend.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [Cascade] fails, or when the
// cascade has no entries at all.
var ErrAllFailed = errors.New("all providers failed")

// FailureFunc observes a failed entry before the next one is tried.
type FailureFunc func(name string, err error)

// cascadeEntry pairs a value with the name it is reported under.
type cascadeEntry[T any] struct {
	name  string
	value T
}

// Cascade holds an ordered list of interchangeable values. Execution tries
// each value in registration order and stops at the first success; failures
// are reported to the failure hook and otherwise swallowed.
//
// A Cascade is built once and then only read, so it is safe for concurrent
// Execute calls after the last Add.
type Cascade[T any] struct {
	entries   []cascadeEntry[T]
	onFailure FailureFunc
}

// NewCascade creates an empty [Cascade]. Failed entries are logged at warn
// level unless a different hook is installed with [Cascade.OnFailure].
func NewCascade[T any]() *Cascade[T] {
	return &Cascade[T]{
		onFailure: func(name string, err error) {
			slog.Warn("provider failed, trying next", "provider", name, "error", err)
		},
	}
}

// Add appends value under name. Entries are tried in the order they are added.
func (c *Cascade[T]) Add(name string, value T) *Cascade[T] {
	c.entries = append(c.entries, cascadeEntry[T]{name: name, value: value})
	return c
}

// OnFailure replaces the failure hook. A nil hook silences failures.
func (c *Cascade[T]) OnFailure(fn FailureFunc) *Cascade[T] {
	c.onFailure = fn
	return c
}

// Len reports the number of entries.
func (c *Cascade[T]) Len() int { return len(c.entries) }

// Names returns the entry names in order.
func (c *Cascade[T]) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Execute tries fn against each entry in order until one succeeds. Returns
// [ErrAllFailed] joined with every entry's error if none does.
func (c *Cascade[T]) Execute(fn func(T) error) error {
	_, _, err := ExecuteWithResult(c, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry of c until one succeeds and
// returns its result together with the name of the entry that produced it.
// This is a package-level function because Go does not support method-level
// type parameters.
func ExecuteWithResult[T any, R any](c *Cascade[T], fn func(T) (R, error)) (R, string, error) {
	var zero R
	if len(c.entries) == 0 {
		return zero, "", fmt.Errorf("%w: no entries configured", ErrAllFailed)
	}
	errs := make([]error, 0, len(c.entries))
	for _, entry := range c.entries {
		result, err := fn(entry.value)
		if err == nil {
			return result, entry.name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", entry.name, err))
		if c.onFailure != nil {
			c.onFailure(entry.name, err)
		}
	}
	return zero, "", fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
