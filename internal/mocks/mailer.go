package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Mailer is a mock implementation of model.Mailer.
type Mailer struct {
	mock.Mock
}

func (m *Mailer) SendConfirmation(ctx context.Context, email, username, token string) error {
	args := m.Called(ctx, email, username, token)
	return args.Error(0)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, username, token string) error {
	args := m.Called(ctx, email, username, token)
	return args.Error(0)
}
