// Package ratelimit throttles login attempts. The in-process limiter covers
// single-node deployments; the Redis limiter shares counters across replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Memory struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func NewMemory(max int, window time.Duration) *Memory {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Memory{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false, nil
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true, nil
}
