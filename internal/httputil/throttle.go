// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is a process-wide gate in front of upstream services. It combines
// steady request pacing with operator-imposed cooldowns: a Pause delays
// every caller, not just the record that tripped it, so a struggling
// upstream is not hammered by the rest of the batch.
type Throttle struct {
	limiter *rate.Limiter

	mu         sync.Mutex
	pauseUntil time.Time
}

// NewThrottle returns a Throttle pacing requests at rps per second.
// A non-positive rps disables pacing; Pause still works.
func NewThrottle(rps float64) *Throttle {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Throttle{limiter: limiter}
}

// Wait blocks until any active cooldown has elapsed and a pacing token is
// available. It returns early with ctx.Err() on cancellation.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	remaining := time.Until(t.pauseUntil)
	t.mu.Unlock()

	if remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
	}

	if t.limiter != nil {
		return t.limiter.Wait(ctx)
	}
	return nil
}

// Pause imposes a cooldown: every Wait call returns only after d has
// elapsed. A shorter Pause never truncates a longer one already in effect.
func (t *Throttle) Pause(d time.Duration) {
	until := time.Now().Add(d)
	t.mu.Lock()
	if until.After(t.pauseUntil) {
		t.pauseUntil = until
	}
	t.mu.Unlock()
}

// Paused reports whether a cooldown is currently in effect.
func (t *Throttle) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Now().Before(t.pauseUntil)
}

// NewRequest builds a GET request with the User-Agent header set. Every
// stage that talks to an upstream API goes through this so the polite-pool
// identification is uniform.
func NewRequest(ctx context.Context, url, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req, nil
}
