package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/contactbook/contactbook-server/internal/logger"
	"github.com/contactbook/contactbook-server/internal/model"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// Session orchestrates login, refresh, logout and email confirmation.
//
// The refresh chain per user is a state machine: no session, then an
// active chain identified by the stored fingerprint, rotated on every
// refresh and cleared on logout. Exactly one refresh token is valid per
// user at any time.
type Session struct {
	users        model.UserStore
	revocations  model.RevocationStore
	tokens       model.TokenManager
	hasher       PasswordHasher
	mailer       model.Mailer
	logger       *logger.Logger
	storeTimeout time.Duration
}

func NewSession(
	users model.UserStore,
	revocations model.RevocationStore,
	tokens model.TokenManager,
	hasher PasswordHasher,
	mailer model.Mailer,
	storeTimeout time.Duration,
	logger *logger.Logger,
) *Session {
	return &Session{
		users:        users,
		revocations:  revocations,
		tokens:       tokens,
		hasher:       hasher,
		mailer:       mailer,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// Register creates a user with a hashed password and triggers the
// confirmation mail. Mail delivery is fire-and-forget: a failure there
// never rolls the signup back.
func (s *Session) Register(ctx context.Context, username, email, password string) (model.User, error) {
	s.logger.Debug("Session service: starting registration", "email", email)

	_, err := s.getByEmail(ctx, email)
	if err == nil {
		s.logger.Info("Session service: email already registered", "email", email)
		return model.User{}, model.ErrEmailTaken
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	user, err = s.users.Create(storeCtx, user)
	if err != nil {
		return model.User{}, mapStoreError("failed to create user", err)
	}

	s.sendConfirmation(ctx, user)

	s.logger.Info("Session service: registration completed", "email", email, "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and opens a new refresh chain. The stored
// fingerprint is overwritten, which implicitly revokes any previously
// issued refresh token for that user.
func (s *Session) Login(ctx context.Context, email, password string) (accessToken string, refreshToken string, err error) {
	s.logger.Debug("Session service: starting login", "email", email)

	user, err := s.getByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		// Unknown email and wrong password are indistinguishable to the
		// caller, so accounts cannot be enumerated.
		return "", "", model.ErrInvalidCredentials
	}
	if err != nil {
		return "", "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Info("Session service: password verification failed", "email", email)
		return "", "", model.ErrInvalidCredentials
	}

	if !user.Confirmed {
		return "", "", model.ErrEmailNotConfirmed
	}

	access, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, _, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue refresh token: %w", err)
	}

	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	if err := s.users.SetRefreshFingerprint(storeCtx, user.ID, fingerprint(refresh)); err != nil {
		return "", "", mapStoreError("failed to store refresh fingerprint", err)
	}

	s.logger.Info("Session service: login completed", "user_id", user.ID)
	return access, refresh, nil
}

// Refresh rotates the refresh chain. The presented token must carry the
// currently stored fingerprint; on success it becomes unusable for any
// subsequent refresh. Under concurrent calls with the same token the
// compare-and-swap in the user store lets exactly one caller win.
func (s *Session) Refresh(ctx context.Context, presentedRefresh string) (accessToken string, refreshToken string, err error) {
	userID, jti, _, err := s.tokens.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return "", "", model.ErrInvalidToken
	}

	revoked, err := s.isRevoked(ctx, jti)
	if err != nil {
		return "", "", err
	}
	if revoked {
		return "", "", model.ErrTokenRevoked
	}

	user, err := s.getByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return "", "", model.ErrInvalidToken
	}
	if err != nil {
		return "", "", err
	}

	presentedFP := fingerprint(presentedRefresh)
	if !fingerprintsEqual(user.RefreshFingerprint, presentedFP) {
		s.logger.Info("Session service: refresh fingerprint mismatch", "user_id", userID)
		return "", "", model.ErrTokenRevoked
	}

	access, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, _, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue refresh token: %w", err)
	}

	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	err = s.users.SwapRefreshFingerprint(storeCtx, user.ID, presentedFP, fingerprint(refresh))
	if errors.Is(err, model.ErrFingerprintMismatch) {
		// Lost the rotation race. The presented token is already stale.
		return "", "", model.ErrTokenRevoked
	}
	if err != nil {
		return "", "", mapStoreError("failed to rotate refresh fingerprint", err)
	}

	s.logger.Info("Session service: refresh completed", "user_id", user.ID)
	return access, refresh, nil
}

// Logout closes the refresh chain and records the token's JTI in the
// revocation store until the token's natural expiry.
func (s *Session) Logout(ctx context.Context, presentedRefresh string) error {
	userID, jti, expiresAt, err := s.tokens.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return model.ErrInvalidToken
	}

	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	err = s.users.SwapRefreshFingerprint(storeCtx, userID, fingerprint(presentedRefresh), nil)
	if errors.Is(err, model.ErrFingerprintMismatch) {
		return model.ErrTokenRevoked
	}
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrInvalidToken
	}
	if err != nil {
		return mapStoreError("failed to clear refresh fingerprint", err)
	}

	if ttl := time.Until(expiresAt); ttl > 0 {
		putCtx, cancelPut := s.withStoreTimeout(ctx)
		defer cancelPut()
		if err := s.revocations.Put(putCtx, jti, ttl); err != nil {
			return mapStoreError("failed to store revocation entry", err)
		}
	}

	s.logger.Info("Session service: logout completed", "user_id", userID)
	return nil
}

// ConfirmEmail marks the user confirmed. Confirmation tokens are single
// use: once the flag is set a replay fails with ErrAlreadyConfirmed,
// which callers may treat as success-equivalent.
func (s *Session) ConfirmEmail(ctx context.Context, confirmToken string) error {
	userID, err := s.tokens.ParseEmailToken(confirmToken, model.PurposeEmailConfirm)
	if err != nil {
		return model.ErrInvalidToken
	}

	user, err := s.getByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrInvalidToken
	}
	if err != nil {
		return err
	}

	if user.Confirmed {
		return model.ErrAlreadyConfirmed
	}

	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	if err := s.users.SetConfirmed(storeCtx, user.ID); err != nil {
		return mapStoreError("failed to set confirmed flag", err)
	}

	s.logger.Info("Session service: email confirmed", "user_id", user.ID)
	return nil
}

// IssueConfirmation creates an email-confirm token for the user. Used by
// the mail collaborator; pure delegation to the token manager.
func (s *Session) IssueConfirmation(user model.User) (string, error) {
	return s.tokens.GenerateEmailToken(user.ID, model.PurposeEmailConfirm)
}

// RequestConfirmation re-sends the confirmation mail. Unknown emails are
// ignored so accounts cannot be enumerated.
func (s *Session) RequestConfirmation(ctx context.Context, email string) error {
	user, err := s.getByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if user.Confirmed {
		return model.ErrAlreadyConfirmed
	}

	s.sendConfirmation(ctx, user)
	return nil
}

// RequestPasswordReset mails a password-reset token. Unknown emails are
// ignored so accounts cannot be enumerated.
func (s *Session) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.getByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	resetToken, err := s.tokens.GenerateEmailToken(user.ID, model.PurposePasswordReset)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, resetToken); err != nil {
		s.logger.Error("Session service: failed to send reset mail",
			"user_id", user.ID,
			"error", err.Error())
	}
	return nil
}

// ConfirmPasswordReset validates a reset token ahead of the password
// change and resolves the account it belongs to, so the caller can show
// which address is being reset before asking for the new password.
func (s *Session) ConfirmPasswordReset(ctx context.Context, resetToken string) (model.User, error) {
	userID, err := s.tokens.ParseEmailToken(resetToken, model.PurposePasswordReset)
	if err != nil {
		return model.User{}, model.ErrInvalidToken
	}

	user, err := s.getByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}

// ResetPassword sets a new password and closes any active refresh chain,
// forcing re-authentication everywhere.
func (s *Session) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	userID, err := s.tokens.ParseEmailToken(resetToken, model.PurposePasswordReset)
	if err != nil {
		return model.ErrInvalidToken
	}

	user, err := s.getByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrInvalidToken
	}
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	if err := s.users.SetPassword(storeCtx, user.ID, hash); err != nil {
		return mapStoreError("failed to update password", err)
	}
	if err := s.users.SetRefreshFingerprint(storeCtx, user.ID, nil); err != nil {
		return mapStoreError("failed to clear refresh fingerprint", err)
	}

	s.logger.Info("Session service: password reset completed", "user_id", user.ID)
	return nil
}

// GetUserID resolves the user from an access token. This is the
// stateless fast path: no store round-trip, revocation is enforced only
// at refresh and logout boundaries.
func (s *Session) GetUserID(ctx context.Context, accessToken string) (uuid.UUID, error) {
	userID, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return uuid.Nil, model.ErrInvalidToken
	}
	return userID, nil
}

func (s *Session) sendConfirmation(ctx context.Context, user model.User) {
	confirmToken, err := s.IssueConfirmation(user)
	if err != nil {
		s.logger.Error("Session service: failed to issue confirmation token",
			"user_id", user.ID,
			"error", err.Error())
		return
	}
	if err := s.mailer.SendConfirmation(ctx, user.Email, user.Username, confirmToken); err != nil {
		s.logger.Error("Session service: failed to send confirmation mail",
			"user_id", user.ID,
			"error", err.Error())
	}
}

func (s *Session) isRevoked(ctx context.Context, jti string) (bool, error) {
	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	revoked, err := s.revocations.Exists(storeCtx, jti)
	if err != nil {
		return false, mapStoreError("failed to check revocation entry", err)
	}
	return revoked, nil
}

func (s *Session) getByEmail(ctx context.Context, email string) (model.User, error) {
	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	user, err := s.users.GetByEmail(storeCtx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, mapStoreError("failed to get user by email", err)
	}
	return user, err
}

func (s *Session) getByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	storeCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	user, err := s.users.GetByID(storeCtx, id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, mapStoreError("failed to get user by id", err)
	}
	return user, err
}

func (s *Session) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// mapStoreError keeps "undetermined" distinct from "denied": a store
// timeout becomes ErrUnavailable rather than any credential error.
func mapStoreError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrUnavailable
	}
	return fmt.Errorf("%s: %w", op, err)
}

func fingerprint(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func fingerprintsEqual(a, b []byte) bool {
	return len(a) > 0 && subtle.ConstantTimeCompare(a, b) == 1
}
