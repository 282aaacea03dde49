package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimit_FixedWindow(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewRedisRateLimitRepository(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := repo.CheckRateLimit(ctx, "ip:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, err := repo.CheckRateLimit(ctx, "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := repo.CheckRateLimit(ctx, "ip:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other)

	mr.FastForward(time.Minute + time.Second)
	ok, err = repo.CheckRateLimit(ctx, "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRateLimit_FailsOpen(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewRedisRateLimitRepository(client)
	mr.Close()

	ok, err := repo.CheckRateLimit(context.Background(), "ip:10.0.0.1", 1, time.Minute)
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestMemoryRateLimit(t *testing.T) {
	repo := NewMemoryRateLimitRepository().(*memoryRateLimitRepository)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := repo.CheckRateLimit(ctx, "k", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = repo.CheckRateLimit(ctx, "k", 1, time.Minute)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = repo.CheckRateLimit(ctx, "k", 1, time.Minute)
	assert.True(t, ok)
}
