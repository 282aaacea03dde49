package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimitRepository interface {
	CheckRateLimit(ctx context.Context, key string, requests int, window time.Duration) (bool, error)
}

type redisRateLimitRepository struct {
	client *redis.Client
}

// NewRedisRateLimitRepository counts requests in fixed windows: INCR, with the
// expiry set on the first hit of a window.
func NewRedisRateLimitRepository(client *redis.Client) RateLimitRepository {
	return &redisRateLimitRepository{client: client}
}

func (r *redisRateLimitRepository) CheckRateLimit(ctx context.Context, key string, requests int, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	redisKey := "ratelimit:" + hashKey(key)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		// fail open
		return true, err
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(requests), nil
}

type memoryWindow struct {
	count int
	start time.Time
}

type memoryRateLimitRepository struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

func NewMemoryRateLimitRepository() RateLimitRepository {
	return &memoryRateLimitRepository{windows: make(map[string]*memoryWindow), now: time.Now}
}

func (r *memoryRateLimitRepository) CheckRateLimit(_ context.Context, key string, requests int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[key]
	if !ok || now.Sub(w.start) >= window {
		w = &memoryWindow{start: now}
		r.windows[key] = w
	}
	w.count++
	return w.count <= requests, nil
}

func hashKey(key string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
