// Package password hashes and verifies user passwords with bcrypt.
package password

import "golang.org/x/crypto/bcrypt"

// Hasher applies a salted, slow one-way transform to passwords. The
// produced digest encodes the salt and cost, so verification is
// self-contained.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. A non-positive
// cost falls back to the bcrypt default.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt digest of password.
func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. Any mismatch or
// malformed digest yields false, never an error, so callers cannot
// distinguish failure modes by error type.
func (h *Hasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
