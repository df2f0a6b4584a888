package model

import (
	"errors"
	"fmt"
	"time"
)

// Closed set of failure kinds surfaced by the auth core. The transport
// layer alone maps these to user-visible responses.
var (
	ErrNotFound            = errors.New("record not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotConfirmed   = errors.New("email not confirmed")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrAlreadyConfirmed    = errors.New("email already confirmed")
	ErrUnavailable         = errors.New("service unavailable")
	ErrFingerprintMismatch = errors.New("refresh fingerprint mismatch")
)

// RateLimitError is returned when a caller exceeds a route budget.
// RetryAfter is the time until the current window elapses.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
