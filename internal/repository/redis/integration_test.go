//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	repo "github.com/contactbook/contactbook-server/internal/repository/redis"
)

var addr string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(2 * time.Minute),
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
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		panic(err)
	}
	addr = fmt.Sprintf("%s:%s", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestRevocationRepository(t *testing.T) {
	ctx := context.Background()
	client, err := repo.NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	rr := repo.NewRevocationRepository(client)

	ok, err := rr.Exists(ctx, "jti-unknown")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, rr.Put(ctx, "jti-1", time.Minute))
	ok, err = rr.Exists(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)

	// The entry disappears with the token's remaining lifetime.
	require.NoError(t, rr.Put(ctx, "jti-short", 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)
	ok, err = rr.Exists(ctx, "jti-short")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRateCacheRepository_Window(t *testing.T) {
	ctx := context.Background()
	client, err := repo.NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	rc := repo.NewRateCacheRepository(client)

	count, remaining, err := rc.Increment(ctx, "login|10.0.0.1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, remaining)

	count, remaining, err = rc.Increment(ctx, "login|10.0.0.1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	require.Greater(t, remaining, time.Duration(0))
	require.LessOrEqual(t, remaining, time.Minute)

	// Independent keys keep independent counters.
	count, _, err = rc.Increment(ctx, "login|10.0.0.2", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRateCacheRepository_WindowElapses(t *testing.T) {
	ctx := context.Background()
	client, err := repo.NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	rc := repo.NewRateCacheRepository(client)

	count, _, err := rc.Increment(ctx, "login|elapse", 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	time.Sleep(200 * time.Millisecond)

	// A fresh window starts from one again.
	count, _, err = rc.Increment(ctx, "login|elapse", 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRateCacheRepository_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	client, err := repo.NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	rc := repo.NewRateCacheRepository(client)

	const workers = 20
	var wg sync.WaitGroup
	counts := make([]int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i], _, _ = rc.Increment(ctx, "login|concurrent", time.Minute)
		}(i)
	}
	wg.Wait()

	// INCR is atomic: every caller observes a distinct count.
	seen := make(map[int64]bool, workers)
	for _, c := range counts {
		require.False(t, seen[c], "duplicate count %d", c)
		seen[c] = true
	}
}
