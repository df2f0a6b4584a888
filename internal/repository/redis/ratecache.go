package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contactbook/contactbook-server/internal/model"
)

var _ model.RateCache = (*RateCacheRepository)(nil)

// RateCacheRepository backs the rate limiter with Redis INCR. The
// counter is atomic per key; the first increment opens the window by
// attaching a TTL.
type RateCacheRepository struct {
	rdb redis.Cmdable
}

func NewRateCacheRepository(rdb redis.Cmdable) *RateCacheRepository {
	return &RateCacheRepository{rdb: rdb}
}

func (r *RateCacheRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := rateKey(key)

	count, err := r.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	if count == 1 {
		if err := r.rdb.Expire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to open rate window: %w", err)
		}
		return count, window, nil
	}

	remaining, err := r.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read rate window ttl: %w", err)
	}
	if remaining < 0 {
		// The key survived without a TTL (e.g. a crash between INCR and
		// EXPIRE). Reattach the window instead of pinning the counter
		// forever.
		if err := r.rdb.Expire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to reopen rate window: %w", err)
		}
		remaining = window
	}

	return count, remaining, nil
}

func rateKey(key string) string {
	return "rate:" + key
}
