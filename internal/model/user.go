package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
//
// Fingerprint mutations must be atomic per user: two concurrent refresh
// calls presenting the same token must not both succeed against a stale
// fingerprint.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	// SetRefreshFingerprint overwrites the stored fingerprint
	// unconditionally. A nil fingerprint clears it.
	SetRefreshFingerprint(ctx context.Context, id uuid.UUID, fingerprint []byte) error
	// SwapRefreshFingerprint replaces the stored fingerprint only when
	// the current value equals old. Returns ErrFingerprintMismatch when
	// another writer rotated the chain first.
	SwapRefreshFingerprint(ctx context.Context, id uuid.UUID, old, next []byte) error
	SetConfirmed(ctx context.Context, id uuid.UUID) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error
}

// User represents a stored user with authentication material.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Confirmed    bool
	AvatarURL    string
	// RefreshFingerprint is a hash of the currently valid refresh token.
	// Nil means no active refresh chain.
	RefreshFingerprint []byte
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
