package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = time.Hour

// DedupChecker remembers published broadcast event ids so a retried POST of
// an already delivered event is not fanned out again.
// Key format: hub:broadcast:<event_id>
type DedupChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client. A
// non-positive ttl falls back to one hour.
func NewDedupChecker(client *redis.Client, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupChecker{client: client, ttl: ttl}
}

// Claim records id and reports whether it was new.
func (d *DedupChecker) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(id), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Release forgets id so a later retry is published.
func (d *DedupChecker) Release(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, d.key(id)).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (d *DedupChecker) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *DedupChecker) key(id string) string {
	return "hub:broadcast:" + id
}
