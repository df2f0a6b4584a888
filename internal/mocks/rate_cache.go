package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// RateCache is a mock implementation of model.RateCache.
type RateCache struct {
	mock.Mock
}

func (m *RateCache) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Get(1).(time.Duration), args.Error(2)
}
