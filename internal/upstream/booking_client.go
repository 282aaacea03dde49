package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
)

// BookingClient talks to the remote booking service.
type BookingClient struct {
	proxy *ServiceProxy
}

func NewBookingClient(baseURL string, timeout time.Duration) *BookingClient {
	return &BookingClient{proxy: NewServiceProxy("booking", baseURL, timeout)}
}

type bookingEnvelope struct {
	BookingDetails *domain.Booking `json:"bookingDetails"`
}

// GetBooking fetches GET /{id}. The record arrives wrapped in bookingDetails.
func (c *BookingClient) GetBooking(ctx context.Context, id domain.BookingID) (*domain.Booking, error) {
	var env bookingEnvelope
	if err := c.proxy.Get(ctx, "/"+url.PathEscape(id.String()), &env); err != nil {
		return nil, err
	}
	if env.BookingDetails == nil {
		return nil, fmt.Errorf("%w: booking %s has no bookingDetails", ErrInvalidResponse, id)
	}
	b := env.BookingDetails
	if b.ID == "" {
		b.ID = id
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// LookupByFace resolves an embedding to a booking id via POST /face.
func (c *BookingClient) LookupByFace(ctx context.Context, embedding domain.FaceEmbedding) (domain.BookingID, error) {
	var match domain.FaceMatch
	if err := c.proxy.Post(ctx, "/face", domain.FaceLookupRequest{Embedding: embedding}, &match); err != nil {
		return "", err
	}
	id, err := domain.ParseBookingID(match.ID.String())
	if err != nil {
		return "", fmt.Errorf("%w: face lookup returned no booking id", ErrInvalidResponse)
	}
	return id, nil
}

// CheckIn marks guestNumber as arrived via PATCH /check-in/{id}. The response
// body is returned untouched; callers only rely on success or failure.
func (c *BookingClient) CheckIn(ctx context.Context, id domain.BookingID, guestNumber int) (json.RawMessage, error) {
	var raw json.RawMessage
	path := "/check-in/" + url.PathEscape(id.String())
	if err := c.proxy.Patch(ctx, path, domain.CheckInRequest{GuestNumber: guestNumber}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
