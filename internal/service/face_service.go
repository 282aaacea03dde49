package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/pkg/events"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

var (
	// ErrFaceProcess marks a failure while computing the embedding.
	ErrFaceProcess = errors.New(domain.MsgFaceProcessFailed)
	// ErrFaceSubmit marks a failure while resolving the embedding to a booking.
	ErrFaceSubmit = errors.New(domain.MsgFaceSubmitFailed)
)

type FaceMatchResult struct {
	BookingID domain.BookingID `json:"bookingId"`
	Route     string           `json:"route"`
}

type FaceService interface {
	// Embed returns the model output untouched, as the embedding proxy serves it.
	Embed(ctx context.Context, image string) (json.RawMessage, error)
	Identify(ctx context.Context, image string) (*FaceMatchResult, error)
}

type faceService struct {
	embedder Embedder
	bookings BookingAPI
	eventBus events.Publisher
	kioskID  string
}

func NewFaceService(embedder Embedder, bookings BookingAPI, eventBus events.Publisher, kioskID string) FaceService {
	return &faceService{embedder: embedder, bookings: bookings, eventBus: eventBus, kioskID: kioskID}
}

func (s *faceService) Embed(ctx context.Context, image string) (json.RawMessage, error) {
	return s.embedder.Embed(ctx, image)
}

// Identify runs the two steps in order. A failed embedding never reaches the
// booking service.
func (s *faceService) Identify(ctx context.Context, image string) (*FaceMatchResult, error) {
	raw, err := s.embedder.Embed(ctx, image)
	if err != nil {
		logger.ErrorContext(ctx, "Face embedding failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrFaceProcess, err)
	}
	embedding, err := ParseEmbedding(raw)
	if err != nil {
		logger.ErrorContext(ctx, "Face embedding unusable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrFaceProcess, err)
	}

	id, err := s.bookings.LookupByFace(ctx, embedding)
	if err != nil {
		logger.ErrorContext(ctx, "Face lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrFaceSubmit, err)
	}

	logger.InfoContext(ctx, "Face matched booking", "booking_id", id)
	event := events.FaceMatchedEvent{BookingID: id.String(), KioskID: s.kioskID, MatchedAt: time.Now().UTC()}
	if err := s.eventBus.Publish(ctx, events.FaceMatched, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish face matched event", "error", err, "booking_id", id)
	}

	return &FaceMatchResult{BookingID: id, Route: domain.BookingRoute(id)}, nil
}

// ParseEmbedding reads the vector out of the model output. The space returns
// {"embedding":[...]}; a bare array is accepted too.
func ParseEmbedding(raw json.RawMessage) (domain.FaceEmbedding, error) {
	raw = bytes.TrimSpace(raw)
	var embedding domain.FaceEmbedding
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &embedding); err != nil {
			return nil, err
		}
	} else {
		var res domain.EmbeddingResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, err
		}
		embedding = res.Embedding
	}
	if len(embedding) == 0 {
		return nil, domain.ErrEmptyEmbedding
	}
	return embedding, nil
}
