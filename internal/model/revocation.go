package model

import (
	"context"
	"time"
)

// RevocationStore records invalidated token identifiers until their
// natural expiry. Entries expire with the TTL so storage stays bounded.
type RevocationStore interface {
	Put(ctx context.Context, key string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}
