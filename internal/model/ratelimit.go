package model

import (
	"context"
	"time"
)

// RateCache provides an atomic per-key counter with expiry. The first
// increment of a key opens a window of the given duration; remaining is
// the time left until the window elapses.
type RateCache interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// RouteLimit is the request budget for one route.
type RouteLimit struct {
	Max    int64
	Window time.Duration
}
