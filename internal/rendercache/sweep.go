package rendercache

import (
	"context"
	"time"

	"clipforge/internal/logging"
)

// StartSweeper runs the TTL sweep on a fixed interval until the context is
// cancelled. It runs independently of access patterns so stale entries are
// removed even from an idle cache.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || c.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.RemoveExpired(); removed > 0 {
					c.logger.Info("cache sweep removed expired entries",
						logging.String(logging.FieldEventType, "cache_sweep"),
						logging.Int("removed", removed))
				}
			}
		}
	}()
}
