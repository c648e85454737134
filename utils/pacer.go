package utils

import (
	"context"
	"math/rand"
	"time"
)

// RandomPacer sleeps a uniformly random duration between Min and Max
// before successive provider calls. Both drives throttle accounts that
// fire transfer requests back to back.
type RandomPacer struct {
	Min time.Duration
	Max time.Duration
}

// NewRandomPacer creates a pacer with the given bounds. If the bounds
// are inverted or unset it falls back to a 2-4 second window.
func NewRandomPacer(min, max time.Duration) *RandomPacer {
	if min <= 0 || max <= min {
		min = 2 * time.Second
		max = 4 * time.Second
	}
	return &RandomPacer{Min: min, Max: max}
}

// Wait blocks for a random duration in [Min, Max), or until the
// context is cancelled.
func (p *RandomPacer) Wait(ctx context.Context) error {
	delay := p.Min + time.Duration(rand.Int63n(int64(p.Max-p.Min)))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
