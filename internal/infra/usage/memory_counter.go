package usage

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
)

type counterEntry struct {
	value     int64
	expiresAt time.Time
}

// MemoryCounter is an in-process implementation of coach.UsageCounter for tests/dev.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]counterEntry
	now     func() time.Time
}

// NewMemoryCounter constructs an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{entries: make(map[string]counterEntry), now: time.Now}
}

// Increment bumps the counter and restarts its TTL, like INCR followed by EXPIRE.
func (c *MemoryCounter) Increment(_ context.Context, userID, day string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := day + ":" + userID
	entry := c.entries[key]
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
		entry = counterEntry{}
	}
	entry.value++
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	c.entries[key] = entry
	c.evictExpired(now)
	return entry.value, nil
}

func (c *MemoryCounter) evictExpired(now time.Time) {
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
			delete(c.entries, key)
		}
	}
}

var _ coach.UsageCounter = (*MemoryCounter)(nil)
