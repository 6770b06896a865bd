package acquire

import (
	"context"
	"errors"
	"fmt"
)

// Reason categorizes why an acquisition attempt (or the whole acquisition)
// failed.
type Reason string

const (
	// ReasonWrongVariant means the page loaded but the validation
	// predicate rejected it (alternate/mobile render, stale markup).
	ReasonWrongVariant Reason = "wrong_variant"
	// ReasonTimeout means the render did not complete within budget.
	ReasonTimeout Reason = "timeout"
	// ReasonRender means the rendering collaborator itself failed.
	ReasonRender Reason = "render_error"
)

// Error is the failure signal an exhausted acquisition terminates with.
// Callers treat it as section-unavailable; it is never fatal to a batch.
type Error struct {
	Ticker   string
	Page     string
	Reason   Reason
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s page not acquired after %d attempts (%s)",
		e.Ticker, e.Page, e.Attempts, e.Reason)
}

// Unwrap supports errors.Is/errors.As on the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// classify maps a load failure onto a Reason.
func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonRender
}
