package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/nvh2205/noti-believe/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DedupGate implements domain.DedupGate using SET NX with a TTL. The first
// writer inside the window wins; everyone else sees alreadySeen=true.
type DedupGate struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDedupGate creates a DedupGate with the given idempotency window.
func NewDedupGate(c *Client, ttl time.Duration) *DedupGate {
	return &DedupGate{rdb: c.Underlying(), ttl: ttl}
}

func dedupKey(id string) string {
	return "dedup:token:" + id
}

// CheckAndMark atomically checks-and-marks id. When the key is absent it is
// written with payload and the TTL, and alreadySeen is false. When present
// the existing entry is left untouched and alreadySeen is true.
func (g *DedupGate) CheckAndMark(ctx context.Context, id string, payload []byte) (bool, error) {
	set, err := g.rdb.SetNX(ctx, dedupKey(id), payload, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: dedup check %s: %w", id, err)
	}
	return !set, nil
}

var _ domain.DedupGate = (*DedupGate)(nil)
