package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose tags a token with the single operation it is valid for.
type TokenPurpose string

const (
	PurposeAccess        TokenPurpose = "access"
	PurposeRefresh       TokenPurpose = "refresh"
	PurposeEmailConfirm  TokenPurpose = "email-confirm"
	PurposePasswordReset TokenPurpose = "password-reset"
)

// TokenManager generates and validates purpose-tagged tokens.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (token string, jti string, err error)
	GenerateEmailToken(userID uuid.UUID, purpose TokenPurpose) (string, error)
	ParseAccessToken(token string) (uuid.UUID, error)
	ParseRefreshToken(token string) (userID uuid.UUID, jti string, expiresAt time.Time, err error)
	ParseEmailToken(token string, purpose TokenPurpose) (uuid.UUID, error)
}
