// Package timeoutctx centralizes the context-deadline bookkeeping used by
// the fetcher (component A) to enforce a true wall-clock timeout per
// request regardless of how the upstream streams its body.
package timeoutctx

import (
	"context"
	stderrors "errors"
	"time"
)

// WithDeadline derives a context bounded by timeout, tightening an existing
// deadline only if the new one is sooner.
func WithDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if existing, ok := ctx.Deadline(); ok {
		if remaining := time.Until(existing); remaining < timeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, timeout)
}

// IsDeadlineErr reports whether err resulted from a context deadline or
// cancellation, as opposed to some other transport failure.
func IsDeadlineErr(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled)
}

// Elapsed wraps a deadline error with how long the operation actually ran,
// needed for the FetchError.Elapsed field (spec §4.A, §8 property 1).
type Elapsed struct {
	Operation string
	Duration  time.Duration
	Err       error
}

func (e *Elapsed) Error() string {
	return e.Operation + " exceeded its deadline after " + e.Duration.String()
}

func (e *Elapsed) Unwrap() error { return e.Err }
