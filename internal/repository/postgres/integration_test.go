//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/contactbook/contactbook-server/internal/model"
	repo "github.com/contactbook/contactbook-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "contactbook_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/contactbook_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newTestUser(email string) model.User {
	now := time.Now()
	return model.User{
		ID:           uuid.New(),
		Username:     "tester",
		Email:        email,
		PasswordHash: "$2a$04$fakefakefakefakefakefakefakefakefakefakefakefakefake",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)

	u := newTestUser("user@example.com")
	saved, err := ur.Create(ctx, u)
	require.NoError(t, err)
	require.Equal(t, u.ID, saved.ID)
	require.False(t, saved.Confirmed)
	require.Nil(t, saved.RefreshFingerprint)

	byEmail, err := ur.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byID, err := ur.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)

	_, err = ur.GetByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = ur.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, ur.SetConfirmed(ctx, u.ID))
	confirmed, err := ur.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, confirmed.Confirmed)

	require.NoError(t, ur.SetPassword(ctx, u.ID, "new-hash"))
	require.NoError(t, ur.SetAvatarURL(ctx, u.ID, "http://storage.local/avatars/x"))
	updated, err := ur.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", updated.PasswordHash)
	require.Equal(t, "http://storage.local/avatars/x", updated.AvatarURL)

	require.ErrorIs(t, ur.SetConfirmed(ctx, uuid.New()), model.ErrNotFound)
	require.ErrorIs(t, ur.SetPassword(ctx, uuid.New(), "x"), model.ErrNotFound)
}

func TestUserRepository_FingerprintSwap(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)

	u := newTestUser("swap@example.com")
	_, err = ur.Create(ctx, u)
	require.NoError(t, err)

	fp1 := []byte("fingerprint-one-fingerprint-one!")
	fp2 := []byte("fingerprint-two-fingerprint-two!")

	// Opening the chain swaps from the NULL state.
	require.NoError(t, ur.SwapRefreshFingerprint(ctx, u.ID, nil, fp1))

	// Stale old value does not match.
	err = ur.SwapRefreshFingerprint(ctx, u.ID, []byte("stale"), fp2)
	require.ErrorIs(t, err, model.ErrFingerprintMismatch)

	// Rotation with the current value succeeds exactly once.
	require.NoError(t, ur.SwapRefreshFingerprint(ctx, u.ID, fp1, fp2))
	err = ur.SwapRefreshFingerprint(ctx, u.ID, fp1, fp2)
	require.ErrorIs(t, err, model.ErrFingerprintMismatch)

	// Clearing closes the chain.
	require.NoError(t, ur.SwapRefreshFingerprint(ctx, u.ID, fp2, nil))
	got, err := ur.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.RefreshFingerprint)
}

func TestUserRepository_ConcurrentSwapSingleWinner(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)

	u := newTestUser("race@example.com")
	_, err = ur.Create(ctx, u)
	require.NoError(t, err)

	old := []byte("contested-fingerprint-value!!!!!")
	require.NoError(t, ur.SetRefreshFingerprint(ctx, u.ID, old))

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := []byte(fmt.Sprintf("rotated-by-worker-%02d-padding!!!", i))
			errs[i] = ur.SwapRefreshFingerprint(ctx, u.ID, old, next)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, model.ErrFingerprintMismatch)
		}
	}
	require.Equal(t, 1, wins)
}
