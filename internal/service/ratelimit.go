package service

import (
	"context"
	"time"

	"github.com/contactbook/contactbook-server/internal/logger"
	"github.com/contactbook/contactbook-server/internal/model"
)

// RateLimit gates requests per (caller, route) key using an external
// atomic counter with a fixed window.
//
// The window state is ephemeral. A cache restart resets all counters,
// which briefly over-admits traffic; that fail-open trade-off is
// deliberate and must not be hardened into fail-closed without
// revisiting availability requirements.
type RateLimit struct {
	cache        model.RateCache
	logger       *logger.Logger
	storeTimeout time.Duration
}

func NewRateLimit(cache model.RateCache, storeTimeout time.Duration, logger *logger.Logger) *RateLimit {
	return &RateLimit{cache: cache, logger: logger, storeTimeout: storeTimeout}
}

// Check admits the request or returns *model.RateLimitError with the
// time until the window elapses. Cache errors map to ErrUnavailable so
// callers can tell "denied" from "undetermined".
func (g *RateLimit) Check(ctx context.Context, key string, limit model.RouteLimit) error {
	if limit.Max <= 0 {
		return nil
	}

	cacheCtx := ctx
	if g.storeTimeout > 0 {
		var cancel context.CancelFunc
		cacheCtx, cancel = context.WithTimeout(ctx, g.storeTimeout)
		defer cancel()
	}

	count, remaining, err := g.cache.Increment(cacheCtx, key, limit.Window)
	if err != nil {
		g.logger.Error("Rate limit: cache increment failed",
			"key", key,
			"error", err.Error())
		return model.ErrUnavailable
	}

	if count > limit.Max {
		retryAfter := remaining
		if retryAfter <= 0 || retryAfter > limit.Window {
			retryAfter = limit.Window
		}
		g.logger.Debug("Rate limit: budget exceeded",
			"key", key,
			"count", count,
			"retry_after", retryAfter)
		return &model.RateLimitError{RetryAfter: retryAfter}
	}

	return nil
}
