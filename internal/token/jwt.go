package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/contactbook/contactbook-server/internal/model"
)

// Claims represents JWT claims with token purpose and user ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID  uuid.UUID          `json:"user_id"`
	Purpose model.TokenPurpose `json:"typ"`
}

// TTLConfig fixes the lifetime per token purpose. TTLs are configuration,
// never caller-supplied.
type TTLConfig struct {
	Access  time.Duration
	Refresh time.Duration
	Email   time.Duration
}

// JWT implements TokenManager backed by symmetric HMAC. It signs with
// the first secret and verifies against every secret in order, which
// allows zero-downtime rotation with a {current, previous} pair.
type JWT struct {
	secrets []string
	ttl     TTLConfig
}

// NewJWT creates a token manager. previousSecret may be empty when no
// rotation is in progress.
func NewJWT(secret, previousSecret string, ttl TTLConfig) *JWT {
	secrets := []string{secret}
	if previousSecret != "" {
		secrets = append(secrets, previousSecret)
	}
	return &JWT{secrets: secrets, ttl: ttl}
}

var _ model.TokenManager = (*JWT)(nil)

// GenerateAccessToken creates a short-lived access token.
func (j *JWT) GenerateAccessToken(userID uuid.UUID) (string, error) {
	return j.sign(userID, model.PurposeAccess, j.ttl.Access, uuid.NewString())
}

// GenerateRefreshToken creates a long-lived refresh token and returns its JTI.
func (j *JWT) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	jti := uuid.NewString()
	tokenString, err := j.sign(userID, model.PurposeRefresh, j.ttl.Refresh, jti)
	if err != nil {
		return "", "", err
	}
	return tokenString, jti, nil
}

// GenerateEmailToken creates a medium-lived token for email confirmation
// or password reset.
func (j *JWT) GenerateEmailToken(userID uuid.UUID, purpose model.TokenPurpose) (string, error) {
	if purpose != model.PurposeEmailConfirm && purpose != model.PurposePasswordReset {
		return "", model.ErrInvalidToken
	}
	return j.sign(userID, purpose, j.ttl.Email, uuid.NewString())
}

// ParseAccessToken validates and extracts the user ID from an access token.
func (j *JWT) ParseAccessToken(tokenString string) (uuid.UUID, error) {
	claims, err := j.parse(tokenString, model.PurposeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// ParseRefreshToken validates a refresh token and extracts the user ID,
// JTI and expiry.
func (j *JWT) ParseRefreshToken(tokenString string) (uuid.UUID, string, time.Time, error) {
	claims, err := j.parse(tokenString, model.PurposeRefresh)
	if err != nil {
		return uuid.Nil, "", time.Time{}, err
	}
	return claims.UserID, claims.ID, claims.ExpiresAt.Time, nil
}

// ParseEmailToken validates an email-confirm or password-reset token and
// extracts the user ID.
func (j *JWT) ParseEmailToken(tokenString string, purpose model.TokenPurpose) (uuid.UUID, error) {
	claims, err := j.parse(tokenString, purpose)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

func (j *JWT) sign(userID uuid.UUID, purpose model.TokenPurpose, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:  userID,
		Purpose: purpose,
	})

	// New tokens are always signed with the current secret.
	tokenString, err := token.SignedString([]byte(j.secrets[0]))
	if err != nil {
		return "", errors.New("failed to sign token")
	}

	return tokenString, nil
}

// parse fails closed: any signature, expiry or purpose failure collapses
// into model.ErrInvalidToken.
func (j *JWT) parse(tokenString string, purpose model.TokenPurpose) (*Claims, error) {
	for _, secret := range j.secrets {
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, model.ErrInvalidToken
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			continue
		}
		if claims.Purpose != purpose {
			return nil, model.ErrInvalidToken
		}
		if claims.ExpiresAt == nil {
			return nil, model.ErrInvalidToken
		}
		return claims, nil
	}
	return nil, model.ErrInvalidToken
}
