package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/diagnosis/checkin-kiosk/internal/dataurl"
	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/internal/repository"
	"github.com/diagnosis/checkin-kiosk/internal/scanner"
	"github.com/diagnosis/checkin-kiosk/pkg/events"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

type DeviceSelection struct {
	Selected domain.Device   `json:"selected"`
	Devices  []domain.Device `json:"devices"`
}

type ScanService interface {
	DefaultDevice(devices []domain.Device) (*DeviceSelection, error)
	OpenSession(ctx context.Context, deviceID string) (*domain.ScanSession, error)
	GetSession(ctx context.Context, id string) (*domain.ScanSession, error)
	FeedFrame(ctx context.Context, id, frame string) (*domain.ScanSession, error)
	ReportError(ctx context.Context, id, message string) (*domain.ScanSession, error)
	CloseSession(ctx context.Context, id string) error
	DecodeImage(ctx context.Context, data []byte) *domain.ScanSession
}

type scanService struct {
	machine  *scanner.Machine
	sessions repository.ScanSessionRepository
	eventBus events.Publisher
	kioskID  string
	locks    *keyedMutex
}

func NewScanService(
	machine *scanner.Machine,
	sessions repository.ScanSessionRepository,
	eventBus events.Publisher,
	kioskID string,
) ScanService {
	return &scanService{
		machine:  machine,
		sessions: sessions,
		eventBus: eventBus,
		kioskID:  kioskID,
		locks:    newKeyedMutex(),
	}
}

func (s *scanService) DefaultDevice(devices []domain.Device) (*DeviceSelection, error) {
	selected, err := scanner.SelectDefaultDevice(devices)
	if err != nil {
		return nil, err
	}
	return &DeviceSelection{Selected: selected, Devices: scanner.VideoInputs(devices)}, nil
}

func (s *scanService) OpenSession(ctx context.Context, deviceID string) (*domain.ScanSession, error) {
	sess := s.machine.NewSession(deviceID)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store scan session: %w", err)
	}
	logger.InfoContext(ctx, "Scan session opened", "session_id", sess.ID, "device_id", deviceID)
	return sess, nil
}

func (s *scanService) GetSession(ctx context.Context, id string) (*domain.ScanSession, error) {
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	return sess, err
}

func (s *scanService) FeedFrame(ctx context.Context, id, frame string) (*domain.ScanSession, error) {
	img, err := dataurl.Parse(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Done() {
		return sess, nil
	}

	changed, err := s.machine.Feed(sess, img.Data)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store scan session: %w", err)
	}

	if changed {
		switch sess.Status {
		case domain.ScanDecoded:
			logger.InfoContext(ctx, "QR code scanned", "session_id", sess.ID, "text", sess.Message, "route", sess.Route)
			s.publishDecoded(ctx, sess)
		case domain.ScanInvalid:
			logger.InfoContext(ctx, "QR code rejected", "session_id", sess.ID)
		}
	}
	return sess, nil
}

func (s *scanService) ReportError(ctx context.Context, id, message string) (*domain.ScanSession, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Done() {
		return sess, domain.ErrSessionClosed
	}

	logger.WarnContext(ctx, "Camera error reported", "session_id", id, "error", message)
	s.machine.Fail(sess, "")
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store scan session: %w", err)
	}
	return sess, nil
}

// CloseSession drops the session when the scanner page goes away. Closing an
// unknown or expired session is not an error.
func (s *scanService) CloseSession(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete scan session: %w", err)
	}
	logger.DebugContext(ctx, "Scan session closed", "session_id", id)
	return nil
}

func (s *scanService) DecodeImage(ctx context.Context, data []byte) *domain.ScanSession {
	sess := s.machine.DecodeImage(data)
	switch sess.Status {
	case domain.ScanDecoded:
		logger.InfoContext(ctx, "QR code scanned from file", "text", sess.Message, "route", sess.Route)
		s.publishDecoded(ctx, sess)
	case domain.ScanFailed:
		logger.WarnContext(ctx, "Error scanning the QR code from the file")
	}
	return sess
}

func (s *scanService) publishDecoded(ctx context.Context, sess *domain.ScanSession) {
	if sess.PersonID == nil || sess.Result == nil {
		return
	}
	event := events.ScanDecodedEvent{
		PersonID:  *sess.PersonID,
		Text:      sess.Result.Text,
		Source:    string(sess.Result.Source),
		KioskID:   s.kioskID,
		DecodedAt: sess.Result.DecodedAt.UTC(),
	}
	if sess.Result.Source == domain.SourceVideo {
		event.SessionID = sess.ID
	}
	if err := s.eventBus.Publish(ctx, events.ScanDecoded, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish scan decoded event", "error", err, "session_id", sess.ID)
	}
}
