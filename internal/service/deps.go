package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
)

// BookingAPI is the remote booking service.
type BookingAPI interface {
	GetBooking(ctx context.Context, id domain.BookingID) (*domain.Booking, error)
	LookupByFace(ctx context.Context, embedding domain.FaceEmbedding) (domain.BookingID, error)
	CheckIn(ctx context.Context, id domain.BookingID, guestNumber int) (json.RawMessage, error)
}

// PersonAPI is the remote person service.
type PersonAPI interface {
	GetPerson(ctx context.Context, id int64) (*domain.Person, error)
}

// Embedder turns a captured frame (data URL) into the raw first output of the
// recognition model.
type Embedder interface {
	Embed(ctx context.Context, image string) (json.RawMessage, error)
}

// keyedMutex serialises work per key, so two requests against the same scan
// session or booking view never interleave their read-modify-write.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
