package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/internal/repository"
	"github.com/diagnosis/checkin-kiosk/internal/upstream"
	"github.com/diagnosis/checkin-kiosk/pkg/events"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

var (
	ErrBookingUnavailable = errors.New("Sorry, data not found")
	ErrCheckInFailed      = errors.New("Failed to check in the guest.")
)

// BookingPage is what the booking detail page renders.
type BookingPage struct {
	ViewID          string             `json:"viewId"`
	ID              domain.BookingID   `json:"id"`
	Name            string             `json:"name"`
	FirstName       string             `json:"firstName"`
	LastName        string             `json:"lastName"`
	NumberOfGuests  int                `json:"numberOfGuests"`
	CheckedInGuests int                `json:"checkedInGuests"`
	Guests          []domain.GuestSlot `json:"guests"`
	BackRoute       string             `json:"backRoute"`
}

func NewBookingPage(v *domain.BookingView) *BookingPage {
	b := v.Booking
	return &BookingPage{
		ViewID:          v.ID,
		ID:              b.ID,
		Name:            b.DisplayName(),
		FirstName:       b.FirstName,
		LastName:        b.LastName,
		NumberOfGuests:  b.NumberOfGuests,
		CheckedInGuests: b.CheckedInGuests,
		Guests:          b.Slots(),
		BackRoute:       domain.RouteScanner,
	}
}

type BookingService interface {
	OpenView(ctx context.Context, id domain.BookingID) (*domain.BookingView, error)
	GetView(ctx context.Context, viewID string) (*domain.BookingView, error)
	CheckIn(ctx context.Context, viewID string, guestNumber int) (*domain.BookingView, error)
}

type bookingService struct {
	bookings BookingAPI
	views    repository.BookingViewRepository
	checkIns repository.CheckInRepository
	eventBus events.Publisher
	kioskID  string
	locks    *keyedMutex
	now      func() time.Time
}

func NewBookingService(
	bookings BookingAPI,
	views repository.BookingViewRepository,
	checkIns repository.CheckInRepository,
	eventBus events.Publisher,
	kioskID string,
) BookingService {
	return &bookingService{
		bookings: bookings,
		views:    views,
		checkIns: checkIns,
		eventBus: eventBus,
		kioskID:  kioskID,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// OpenView fetches the booking once and keeps a copy for the page view.
func (s *bookingService) OpenView(ctx context.Context, id domain.BookingID) (*domain.BookingView, error) {
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if upstream.IsNotFound(err) {
			logger.InfoContext(ctx, "Booking not found", "booking_id", id)
		} else {
			logger.WarnContext(ctx, "Booking fetch failed", "booking_id", id, "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrBookingUnavailable, err)
	}

	now := s.now().UTC()
	view := &domain.BookingView{
		ID:        uuid.NewString(),
		Booking:   *booking,
		KioskID:   s.kioskID,
		OpenedAt:  now,
		UpdatedAt: now,
	}
	if err := s.views.Save(ctx, view); err != nil {
		return nil, fmt.Errorf("failed to store booking view: %w", err)
	}
	return view, nil
}

func (s *bookingService) GetView(ctx context.Context, viewID string) (*domain.BookingView, error) {
	view, err := s.views.Get(ctx, viewID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	return view, err
}

// CheckIn confirms guestNumber with the booking service and, on success, bumps
// the local count by one. The server response body is not used to refresh the
// copy. A disabled slot is refused without a remote call.
func (s *bookingService) CheckIn(ctx context.Context, viewID string, guestNumber int) (*domain.BookingView, error) {
	unlock := s.locks.Lock(viewID)
	defer unlock()

	view, err := s.GetView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	booking := &view.Booking
	if err := booking.CanCheckIn(guestNumber); err != nil {
		return view, err
	}

	if _, err := s.bookings.CheckIn(ctx, booking.ID, guestNumber); err != nil {
		logger.ErrorContext(ctx, "Error checking in guest", "booking_id", booking.ID, "guest_number", guestNumber, "error", err)
		return view, fmt.Errorf("%w: %v", ErrCheckInFailed, err)
	}

	booking.MarkCheckedIn()
	view.UpdatedAt = s.now().UTC()
	if err := s.views.Save(ctx, view); err != nil {
		logger.ErrorContext(ctx, "Failed to store booking view", "view_id", viewID, "error", err)
	}
	logger.InfoContext(ctx, "Guest checked in",
		"booking_id", booking.ID,
		"guest_number", guestNumber,
		"checked_in_guests", booking.CheckedInGuests,
	)

	rec := &domain.CheckInRecord{
		BookingID:       booking.ID,
		GuestNumber:     guestNumber,
		CheckedInGuests: booking.CheckedInGuests,
		NumberOfGuests:  booking.NumberOfGuests,
		KioskID:         s.kioskID,
		RequestID:       logger.RequestID(ctx),
		CheckedInAt:     view.UpdatedAt,
	}
	if err := s.checkIns.Record(ctx, rec); err != nil {
		logger.ErrorContext(ctx, "Failed to record check-in", "booking_id", booking.ID, "error", err)
	}

	event := events.GuestCheckedInEvent{
		BookingID:       booking.ID.String(),
		GuestNumber:     guestNumber,
		FirstName:       booking.FirstName,
		LastName:        booking.LastName,
		NumberOfGuests:  booking.NumberOfGuests,
		CheckedInGuests: booking.CheckedInGuests,
		KioskID:         s.kioskID,
		CheckedInAt:     view.UpdatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.GuestCheckedIn, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish guest checked in event", "error", err, "booking_id", booking.ID)
	}

	return view, nil
}
