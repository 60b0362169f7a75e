package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
)

// ValkeyCounter keeps per-user daily counters in a Valkey-compatible database.
type ValkeyCounter struct {
	client valkey.Client
	prefix string
}

// NewValkeyCounter constructs a counter backed by Valkey.
func NewValkeyCounter(client valkey.Client, prefix string) *ValkeyCounter {
	if prefix == "" {
		prefix = "fitcoach:usage"
	}
	return &ValkeyCounter{client: client, prefix: prefix}
}

// Increment runs INCR and refreshes the key's TTL in a single round trip.
func (c *ValkeyCounter) Increment(ctx context.Context, userID, day string, ttl time.Duration) (int64, error) {
	key := c.key(userID, day)
	if ttl < time.Second {
		ttl = time.Second
	}
	results := c.client.DoMulti(ctx,
		c.client.B().Incr().Key(key).Build(),
		c.client.B().Expire().Key(key).Seconds(int64(ttl/time.Second)).Build(),
	)
	count, err := results[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if err := results[1].Error(); err != nil {
		return 0, fmt.Errorf("expire %s: %w", key, err)
	}
	return count, nil
}

func (c *ValkeyCounter) key(userID, day string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, day, userID)
}

var _ coach.UsageCounter = (*ValkeyCounter)(nil)
