// Package aaeerr defines the error kinds the aggregation engine raises
// across its compute and cache-update entry points.
package aaeerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Callers classify with errors.Is against these; every
// constructor below wraps one with fmt.Errorf("%w: ...", ...).
var (
	// ErrInvalidMetric marks an absent or malformed metric: a component-level
	// target passed to compute, a metric missing its rule, or similar.
	ErrInvalidMetric = errors.New("invalid metric")

	// ErrUnknownRule marks a rule name not present in the rule catalog.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrMissingSubmetric is non-fatal at the call site: the branch loader
	// drops the offending child and continues, without returning or
	// logging this error. MissingSubmetricf builds it for code that
	// reports the condition itself.
	ErrMissingSubmetric = errors.New("missing submetric")

	// ErrPersistence wraps a transient failure from the store layer.
	ErrPersistence = errors.New("persistence error")

	// ErrCancelled marks a compute call that observed context cancellation.
	ErrCancelled = errors.New("cancelled")

	// ErrInvariantViolation marks a runtime assertion failure: a bug, not
	// a data problem. Never recovered from.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Invalidf wraps ErrInvalidMetric with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidMetric}, args...)...)
}

// UnknownRulef wraps ErrUnknownRule with a formatted message.
func UnknownRulef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnknownRule}, args...)...)
}

// MissingSubmetricf wraps ErrMissingSubmetric with a formatted message.
func MissingSubmetricf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMissingSubmetric}, args...)...)
}

// Persistencef wraps an underlying store error with ErrPersistence.
func Persistencef(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrPersistence, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, msg, cause)
}

// Invariantf wraps ErrInvariantViolation with a formatted message.
func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariantViolation}, args...)...)
}

// Cancelled wraps ctx.Err() with ErrCancelled so callers can classify it
// alongside the other kinds via errors.Is.
func Cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
