package util

import (
	"context"
	"time"
)

// Backoff yields exponentially growing delays capped at a maximum. It is not
// safe for concurrent use; each retry loop owns its own.
type Backoff struct {
	next     time.Duration
	maxDelay time.Duration
}

// NewBackoff returns a Backoff starting at initial and doubling up to maxDelay.
func NewBackoff(initial, maxDelay time.Duration) *Backoff {
	return &Backoff{next: initial, maxDelay: maxDelay}
}

// Next returns the current delay and doubles the following one.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next = min(b.next*2, b.maxDelay)
	return d
}

// Wait sleeps for the next delay. It returns ctx.Err() if ctx ends first.
func (b *Backoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
