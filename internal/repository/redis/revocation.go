package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contactbook/contactbook-server/internal/model"
)

var _ model.RevocationStore = (*RevocationRepository)(nil)

// RevocationRepository records revoked token identifiers in Redis. Each
// entry carries the revoked token's remaining lifetime as TTL, so the
// set never outgrows the set of still-valid tokens.
type RevocationRepository struct {
	rdb redis.Cmdable
}

func NewRevocationRepository(rdb redis.Cmdable) *RevocationRepository {
	return &RevocationRepository{rdb: rdb}
}

func (r *RevocationRepository) Put(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, revocationKey(key), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation entry: %w", err)
	}
	return nil
}

func (r *RevocationRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revocationKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation entry: %w", err)
	}
	return n > 0, nil
}

func revocationKey(key string) string {
	return "revoked:" + key
}
