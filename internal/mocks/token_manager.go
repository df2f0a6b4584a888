package mocks

import (
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/contactbook/contactbook-server/internal/model"
)

// TokenManager is a mock implementation of model.TokenManager.
type TokenManager struct {
	mock.Mock
}

func (m *TokenManager) GenerateAccessToken(userID uuid.UUID) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	args := m.Called(userID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *TokenManager) GenerateEmailToken(userID uuid.UUID, purpose model.TokenPurpose) (string, error) {
	args := m.Called(userID, purpose)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) ParseAccessToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *TokenManager) ParseRefreshToken(token string) (uuid.UUID, string, time.Time, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.String(1), args.Get(2).(time.Time), args.Error(3)
}

func (m *TokenManager) ParseEmailToken(token string, purpose model.TokenPurpose) (uuid.UUID, error) {
	args := m.Called(token, purpose)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
