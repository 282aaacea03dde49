package scanner

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
)

// FrameDecoder is what the session machine needs from a QR reader.
type FrameDecoder interface {
	DecodeBytes(data []byte) (string, error)
}

// Machine drives scan sessions. A session keeps scanning until a frame yields
// a numeric id, after which it is decoded and further frames are ignored.
type Machine struct {
	decoder       FrameDecoder
	redirectDelay time.Duration
	now           func() time.Time
}

func NewMachine(decoder FrameDecoder, redirectDelay time.Duration) *Machine {
	return &Machine{decoder: decoder, redirectDelay: redirectDelay, now: time.Now}
}

func (m *Machine) NewSession(deviceID string) *domain.ScanSession {
	now := m.now()
	return &domain.ScanSession{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Status:    domain.ScanScanning,
		Message:   domain.MsgNoResult,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Feed applies one video frame to the session. It reports whether the session
// changed. Frames arriving after the decoder stopped are ignored. A frame that
// is not an image at all returns domain.ErrInvalidImage and leaves the session
// untouched.
func (m *Machine) Feed(s *domain.ScanSession, frame []byte) (bool, error) {
	if s.Done() {
		return false, nil
	}
	text, err := m.decoder.DecodeBytes(frame)
	if errors.Is(err, domain.ErrInvalidImage) {
		return false, err
	}
	s.Frames++
	s.UpdatedAt = m.now()
	if err != nil {
		return false, nil
	}
	m.apply(s, text, domain.SourceVideo)
	return true, nil
}

// Fail stops the session after a camera error reported by the browser.
func (m *Machine) Fail(s *domain.ScanSession, message string) {
	if s.Done() {
		return
	}
	if message == "" {
		message = domain.MsgCameraDenied
	}
	s.Status = domain.ScanFailed
	s.Message = message
	s.UpdatedAt = m.now()
}

// DecodeImage scans a single uploaded image. The returned session is not
// stored; it carries the same status, message and route fields as a video
// session so the page renders both the same way.
func (m *Machine) DecodeImage(data []byte) *domain.ScanSession {
	s := m.NewSession("")
	text, err := m.decoder.DecodeBytes(data)
	if err != nil {
		s.Status = domain.ScanFailed
		s.Message = domain.MsgFileScanFailed
		return s
	}
	s.Frames = 1
	m.apply(s, text, domain.SourceImage)
	return s
}

func (m *Machine) apply(s *domain.ScanSession, text string, source domain.ScanSource) {
	id, err := domain.ParseGuestID(text)
	if err != nil {
		s.Status = domain.ScanInvalid
		s.Message = domain.MsgInvalidQR
		s.PersonID = nil
		s.Route = ""
		s.Result = nil
		return
	}
	s.Status = domain.ScanDecoded
	s.Message = text
	s.PersonID = &id
	s.Route = domain.PersonRoute(id)
	s.Result = &domain.ScanResult{Text: text, Source: source, DecodedAt: m.now()}
	if source == domain.SourceVideo {
		s.RedirectAfterMs = m.redirectDelay.Milliseconds()
	}
}
