package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/botsense/internal/clock"
)

// MemoryWindow is the in-process fixed-window counter used when redis is not
// configured.
type MemoryWindow struct {
	mu      sync.Mutex
	clock   clock.Clock
	windows map[string]*memoryCounter
}

type memoryCounter struct {
	count   int64
	resetAt time.Time
}

func NewMemoryWindow(clk clock.Clock) *MemoryWindow {
	return &MemoryWindow{
		clock:   clk,
		windows: make(map[string]*memoryCounter),
	}
}

func (w *MemoryWindow) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*Decision, error) {
	_ = ctx
	now := w.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	counter, ok := w.windows[key]
	if !ok || !now.Before(counter.resetAt) {
		counter = &memoryCounter{resetAt: now.Add(window)}
		w.windows[key] = counter
	}
	counter.count++

	remaining := limit - counter.count
	if remaining < 0 {
		remaining = 0
	}
	return &Decision{
		Allowed:    counter.count <= limit,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: counter.resetAt.Sub(now),
	}, nil
}
