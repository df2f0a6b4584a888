package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/contactbook/contactbook-server/internal/logger"
	"github.com/contactbook/contactbook-server/internal/model"
)

// User provides profile operations for authenticated users.
type User struct {
	users        model.UserStore
	storage      model.Storage
	logger       *logger.Logger
	storeTimeout time.Duration
}

func NewUser(users model.UserStore, storage model.Storage, storeTimeout time.Duration, logger *logger.Logger) *User {
	return &User{
		users:        users,
		storage:      storage,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// Get returns the user's profile.
func (s *User) Get(ctx context.Context, userID uuid.UUID) (model.User, error) {
	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, mapStoreError("failed to get user by id", err)
	}
	return user, nil
}

// UpdateAvatar uploads the image to object storage and records its URL
// on the user row.
func (s *User) UpdateAvatar(ctx context.Context, userID uuid.UUID, reader io.Reader) (model.User, error) {
	s.logger.Debug("User service: updating avatar", "user_id", userID)

	key := fmt.Sprintf("avatars/%s", userID)
	if err := s.storage.Upload(ctx, key, reader); err != nil {
		return model.User{}, fmt.Errorf("failed to upload avatar: %w", err)
	}

	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	url := s.storage.URL(key)
	if err := s.users.SetAvatarURL(storeCtx, userID, url); err != nil {
		return model.User{}, mapStoreError("failed to update avatar url", err)
	}

	user, err := s.users.GetByID(storeCtx, userID)
	if err != nil {
		return model.User{}, mapStoreError("failed to get user by id", err)
	}

	s.logger.Info("User service: avatar updated", "user_id", userID)
	return user, nil
}

// DeleteAvatar removes the stored image and clears its URL from the
// user row. Removing an absent object is a no-op in the object store,
// so the call is idempotent.
func (s *User) DeleteAvatar(ctx context.Context, userID uuid.UUID) (model.User, error) {
	s.logger.Debug("User service: deleting avatar", "user_id", userID)

	key := fmt.Sprintf("avatars/%s", userID)
	if err := s.storage.Delete(ctx, key); err != nil {
		return model.User{}, fmt.Errorf("failed to delete avatar: %w", err)
	}

	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	if err := s.users.SetAvatarURL(storeCtx, userID, ""); err != nil {
		return model.User{}, mapStoreError("failed to clear avatar url", err)
	}

	user, err := s.users.GetByID(storeCtx, userID)
	if err != nil {
		return model.User{}, mapStoreError("failed to get user by id", err)
	}

	s.logger.Info("User service: avatar deleted", "user_id", userID)
	return user, nil
}

func (s *User) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
