package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
)

type mockBookingAPI struct {
	mock.Mock
}

func (m *mockBookingAPI) GetBooking(ctx context.Context, id domain.BookingID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *mockBookingAPI) LookupByFace(ctx context.Context, embedding domain.FaceEmbedding) (domain.BookingID, error) {
	args := m.Called(ctx, embedding)
	return args.Get(0).(domain.BookingID), args.Error(1)
}

func (m *mockBookingAPI) CheckIn(ctx context.Context, id domain.BookingID, guestNumber int) (json.RawMessage, error) {
	args := m.Called(ctx, id, guestNumber)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, image string) (json.RawMessage, error) {
	args := m.Called(ctx, image)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

type mockPersonAPI struct {
	mock.Mock
}

func (m *mockPersonAPI) GetPerson(ctx context.Context, id int64) (*domain.Person, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Person)
	return p, args.Error(1)
}

type published struct {
	subject string
	data    interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject: subject, data: data})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.subject)
	}
	return out
}

type memoryCheckIns struct {
	mu      sync.Mutex
	records []domain.CheckInRecord
}

func (m *memoryCheckIns) Record(_ context.Context, rec *domain.CheckInRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *rec)
	return nil
}

func (m *memoryCheckIns) ListRecent(_ context.Context, limit, offset int) ([]domain.CheckInRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CheckInRecord{}
	for i := len(m.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memoryCheckIns) ListByBooking(_ context.Context, id domain.BookingID) ([]domain.CheckInRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CheckInRecord{}
	for _, r := range m.records {
		if r.BookingID == id {
			out = append(out, r)
		}
	}
	return out, nil
}
