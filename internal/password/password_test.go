package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_Roundtrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotContains(t, digest, "correct horse")

	assert.True(t, h.Verify("correct horse battery staple", digest))
}

func TestHasher_WrongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("password-one")
	require.NoError(t, err)

	assert.False(t, h.Verify("password-two", digest))
}

func TestHasher_DistinctSalts(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	d1, err := h.Hash("same password")
	require.NoError(t, err)
	d2, err := h.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
	assert.True(t, h.Verify("same password", d1))
	assert.True(t, h.Verify("same password", d2))
}

func TestHasher_MalformedDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("anything", ""))
	assert.False(t, h.Verify("anything", "not-a-bcrypt-digest"))
}

func TestHasher_DefaultCost(t *testing.T) {
	h := NewHasher(0)

	digest, err := h.Hash("password")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
