package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/contactbook/contactbook-server/internal/model"
	"github.com/contactbook/contactbook-server/internal/password"
	"github.com/contactbook/contactbook-server/internal/testutil"
	"github.com/contactbook/contactbook-server/internal/token"
)

// memUserStore is an in-memory UserStore with the same compare-and-swap
// fingerprint semantics as the postgres implementation.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]model.User)}
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return model.User{}, model.ErrEmailTaken
		}
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *memUserStore) SetRefreshFingerprint(_ context.Context, id uuid.UUID, fp []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.RefreshFingerprint = fp
	s.users[id] = u
	return nil
}

func (s *memUserStore) SwapRefreshFingerprint(_ context.Context, id uuid.UUID, old, next []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	if !bytes.Equal(u.RefreshFingerprint, old) {
		return model.ErrFingerprintMismatch
	}
	u.RefreshFingerprint = next
	s.users[id] = u
	return nil
}

func (s *memUserStore) SetConfirmed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.Confirmed = true
	s.users[id] = u
	return nil
}

func (s *memUserStore) SetPassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

func (s *memUserStore) SetAvatarURL(_ context.Context, id uuid.UUID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.AvatarURL = url
	s.users[id] = u
	return nil
}

// memRevocationStore is an in-memory RevocationStore.
type memRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]struct{}
}

func newMemRevocationStore() *memRevocationStore {
	return &memRevocationStore{revoked: make(map[string]struct{})}
}

func (s *memRevocationStore) Put(_ context.Context, key string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[key] = struct{}{}
	return nil
}

func (s *memRevocationStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[key]
	return ok, nil
}

// noopMailer drops mail on the floor.
type noopMailer struct{}

func (noopMailer) SendConfirmation(context.Context, string, string, string) error   { return nil }
func (noopMailer) SendPasswordReset(context.Context, string, string, string) error { return nil }

// newChainSession wires a Session against real token and password codecs
// and in-memory stores, returning the logged-in user's refresh token.
func newChainSession(t *testing.T) (*Session, string) {
	t.Helper()

	users := newMemUserStore()
	tokens := token.NewJWT("chain-secret", "", token.TTLConfig{
		Access:  15 * time.Minute,
		Refresh: time.Hour,
		Email:   time.Hour,
	})
	hasher := password.NewHasher(bcrypt.MinCost)
	svc := NewSession(users, newMemRevocationStore(), tokens, hasher, noopMailer{}, time.Second, testutil.MakeNoopLogger())

	ctx := context.Background()
	user, err := svc.Register(ctx, "chain", "chain@example.com", "chain-password-1")
	require.NoError(t, err)
	require.NoError(t, users.SetConfirmed(ctx, user.ID))

	_, refresh, err := svc.Login(ctx, "chain@example.com", "chain-password-1")
	require.NoError(t, err)
	return svc, refresh
}

func TestSessionChain_ReplayAfterRotation(t *testing.T) {
	svc, r1 := newChainSession(t)
	ctx := context.Background()

	_, r2, err := svc.Refresh(ctx, r1)
	require.NoError(t, err)

	// r1 was consumed by the rotation.
	_, _, err = svc.Refresh(ctx, r1)
	require.ErrorIs(t, err, model.ErrTokenRevoked)

	// The chain continues from r2.
	_, r3, err := svc.Refresh(ctx, r2)
	require.NoError(t, err)
	require.NotEmpty(t, r3)
}

func TestSessionChain_RefreshAfterLogout(t *testing.T) {
	svc, r1 := newChainSession(t)
	ctx := context.Background()

	require.NoError(t, svc.Logout(ctx, r1))

	_, _, err := svc.Refresh(ctx, r1)
	require.ErrorIs(t, err, model.ErrTokenRevoked)

	// A second logout with the same token is also stale.
	err = svc.Logout(ctx, r1)
	require.ErrorIs(t, err, model.ErrTokenRevoked)
}

func TestSessionChain_LoginReplacesChain(t *testing.T) {
	svc, r1 := newChainSession(t)
	ctx := context.Background()

	// A new login opens a fresh chain and orphans r1.
	_, r2, err := svc.Login(ctx, "chain@example.com", "chain-password-1")
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, r1)
	require.ErrorIs(t, err, model.ErrTokenRevoked)

	_, _, err = svc.Refresh(ctx, r2)
	require.NoError(t, err)
}

func TestSessionChain_ConcurrentRefreshSingleWinner(t *testing.T) {
	svc, r1 := newChainSession(t)
	ctx := context.Background()

	const workers = 16
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Refresh(ctx, r1)
		}(i)
	}
	wg.Wait()

	var wins, revoked int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, model.ErrTokenRevoked)
			revoked++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, revoked)
}
