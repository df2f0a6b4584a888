package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// RevocationStore is a mock implementation of model.RevocationStore.
type RevocationStore struct {
	mock.Mock
}

func (m *RevocationStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func (m *RevocationStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
