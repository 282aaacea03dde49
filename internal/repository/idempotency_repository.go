package repository

import (
	"context"
	"errors"
	"time"
)

// IdempotencyRepository caches replayable responses keyed by Idempotency-Key.
// A miss returns an empty string and no error.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type idempotencyRepository struct {
	store KeyValueStore
}

func NewIdempotencyRepository(store KeyValueStore) IdempotencyRepository {
	return &idempotencyRepository{store: store}
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (string, error) {
	b, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *idempotencyRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.store.Put(ctx, key, []byte(value), ttl)
}
