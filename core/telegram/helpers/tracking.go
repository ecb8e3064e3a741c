package helpers

import (
	"context"
	"sync"
)

type trackingKey struct{}

// tracker accumulates per-update facts reported in the handler summary.
type tracker struct {
	mu       sync.Mutex
	messages int
	outcome  string
}

// WithTracking attaches a fresh per-update tracker to ctx.
func WithTracking(ctx context.Context) context.Context {
	return context.WithValue(ctx, trackingKey{}, &tracker{})
}

func trackerFrom(ctx context.Context) *tracker {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(trackingKey{}).(*tracker)
	return t
}

// CountMessage records one outbound reply for the current update.
func CountMessage(ctx context.Context) {
	if t := trackerFrom(ctx); t != nil {
		t.mu.Lock()
		t.messages++
		t.mu.Unlock()
	}
}

// SetOutcome overrides the summary outcome (ok/fail/cancelled/unlinked).
func SetOutcome(ctx context.Context, outcome string) {
	if t := trackerFrom(ctx); t != nil {
		t.mu.Lock()
		t.outcome = outcome
		t.mu.Unlock()
	}
}

// Tracked returns the reply count and outcome recorded for ctx.
func Tracked(ctx context.Context) (messages int, outcome string) {
	t := trackerFrom(ctx)
	if t == nil {
		return 0, ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messages, t.outcome
}
