package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
)

type ScanSessionRepository interface {
	Save(ctx context.Context, s *domain.ScanSession) error
	Get(ctx context.Context, id string) (*domain.ScanSession, error)
	Delete(ctx context.Context, id string) error
}

type BookingViewRepository interface {
	Save(ctx context.Context, v *domain.BookingView) error
	Get(ctx context.Context, viewID string) (*domain.BookingView, error)
}

type scanSessionRepository struct {
	store KeyValueStore
	ttl   time.Duration
}

func NewScanSessionRepository(store KeyValueStore, ttl time.Duration) ScanSessionRepository {
	return &scanSessionRepository{store: store, ttl: ttl}
}

func (r *scanSessionRepository) Save(ctx context.Context, s *domain.ScanSession) error {
	return putJSON(ctx, r.store, "scan:"+s.ID, s, r.ttl)
}

func (r *scanSessionRepository) Get(ctx context.Context, id string) (*domain.ScanSession, error) {
	var s domain.ScanSession
	if err := getJSON(ctx, r.store, "scan:"+id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scanSessionRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, "scan:"+id)
}

type bookingViewRepository struct {
	store KeyValueStore
	ttl   time.Duration
}

func NewBookingViewRepository(store KeyValueStore, ttl time.Duration) BookingViewRepository {
	return &bookingViewRepository{store: store, ttl: ttl}
}

func (r *bookingViewRepository) Save(ctx context.Context, v *domain.BookingView) error {
	return putJSON(ctx, r.store, "view:"+v.ID, v, r.ttl)
}

func (r *bookingViewRepository) Get(ctx context.Context, viewID string) (*domain.BookingView, error) {
	var v domain.BookingView
	if err := getJSON(ctx, r.store, "view:"+viewID, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func putJSON(ctx context.Context, store KeyValueStore, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, b, ttl)
}

func getJSON(ctx context.Context, store KeyValueStore, key string, v any) error {
	b, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
