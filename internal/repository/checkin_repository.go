package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
)

type CheckInRepository interface {
	Record(ctx context.Context, rec *domain.CheckInRecord) error
	ListRecent(ctx context.Context, limit, offset int) ([]domain.CheckInRecord, error)
	ListByBooking(ctx context.Context, bookingID domain.BookingID) ([]domain.CheckInRecord, error)
}

type checkInRepository struct {
	pool *pgxpool.Pool
}

func NewCheckInRepository(pool *pgxpool.Pool) CheckInRepository {
	return &checkInRepository{pool: pool}
}

const checkInCols = `id, booking_id, guest_number, checked_in_guests, number_of_guests,
kiosk_id, request_id, checked_in_at`

func (r *checkInRepository) Record(ctx context.Context, rec *domain.CheckInRecord) error {
	const q = `INSERT INTO kiosk_checkins (
    booking_id, guest_number, checked_in_guests, number_of_guests,
    kiosk_id, request_id, checked_in_at
  ) VALUES ($1, $2, $3, $4, $5, $6, $7)
  RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.pool.QueryRow(ctx, q,
		rec.BookingID.String(), rec.GuestNumber, rec.CheckedInGuests, rec.NumberOfGuests,
		rec.KioskID, rec.RequestID, rec.CheckedInAt,
	).Scan(&rec.ID)
}

func (r *checkInRepository) ListRecent(ctx context.Context, limit, offset int) ([]domain.CheckInRecord, error) {
	const q = `SELECT ` + checkInCols + ` FROM kiosk_checkins
  ORDER BY checked_in_at DESC, id DESC
  LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanCheckIns(rows)
}

func (r *checkInRepository) ListByBooking(ctx context.Context, bookingID domain.BookingID) ([]domain.CheckInRecord, error) {
	const q = `SELECT ` + checkInCols + ` FROM kiosk_checkins
  WHERE booking_id = $1
  ORDER BY guest_number`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, bookingID.String())
	if err != nil {
		return nil, err
	}
	return scanCheckIns(rows)
}

func scanCheckIns(rows pgx.Rows) ([]domain.CheckInRecord, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CheckInRecord, error) {
		var rec domain.CheckInRecord
		var bookingID string
		err := row.Scan(&rec.ID, &bookingID, &rec.GuestNumber, &rec.CheckedInGuests, &rec.NumberOfGuests,
			&rec.KioskID, &rec.RequestID, &rec.CheckedInAt)
		rec.BookingID = domain.BookingID(bookingID)
		return rec, err
	})
}

// NoopCheckInRepository is used when DATABASE_URL is unset.
type NoopCheckInRepository struct{}

func (NoopCheckInRepository) Record(context.Context, *domain.CheckInRecord) error { return nil }

func (NoopCheckInRepository) ListRecent(context.Context, int, int) ([]domain.CheckInRecord, error) {
	return []domain.CheckInRecord{}, nil
}

func (NoopCheckInRepository) ListByBooking(context.Context, domain.BookingID) ([]domain.CheckInRecord, error) {
	return []domain.CheckInRecord{}, nil
}

var (
	_ CheckInRepository = (*checkInRepository)(nil)
	_ CheckInRepository = NoopCheckInRepository{}
)
