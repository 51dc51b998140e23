package sim

import (
	"context"
	"sync/atomic"
	"time"
)

// TickClock feeds a tick handler from wall-clock time.
type TickClock struct {
	count atomic.Int64
}

// Run calls tick once per interval until ctx is done.
func (c *TickClock) Run(ctx context.Context, interval time.Duration, tick func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.count.Add(1)
			tick()
		case <-ctx.Done():
			return nil
		}
	}
}

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}
