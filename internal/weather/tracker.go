// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package weather

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrSuperseded is returned by Update when a newer Update cancelled it.
var ErrSuperseded = errors.New("weather: superseded by a newer location")

// Fetcher returns the current weather at a location.
type Fetcher interface {
	Current(ctx context.Context, lat, lon float64) (*Current, error)
}

// Tracker keeps the widget in step with the latest location. A new Update
// cancels the fetch in flight, so the last location always wins.
type Tracker struct {
	fetcher Fetcher
	limiter *rate.Limiter

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
	last   *Current
}

// NewTracker creates a tracker that spaces requests at least minInterval
// apart. Zero disables spacing.
func NewTracker(f Fetcher, minInterval time.Duration) *Tracker {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Tracker{fetcher: f, limiter: rate.NewLimiter(limit, 1)}
}

// Update fetches the weather for lat, lon. It returns ErrSuperseded when a
// later Update started before this one finished.
func (t *Tracker) Update(ctx context.Context, lat, lon float64) (*Current, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = cancel
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	cur, err := t.fetch(ctx, lat, lon)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return nil, ErrSuperseded
	}
	t.cancel = nil
	if err != nil {
		return nil, err
	}
	t.last = cur
	return cur, nil
}

func (t *Tracker) fetch(ctx context.Context, lat, lon float64) (*Current, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "weather: rate limit wait")
	}
	return t.fetcher.Current(ctx, lat, lon)
}

// Last returns the most recent successful result, or nil.
func (t *Tracker) Last() *Current {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Stop cancels any fetch in flight.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
}
