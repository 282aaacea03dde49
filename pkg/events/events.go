package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/checkin-kiosk/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, name string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(newMessage(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(newMessage(msg))
	})
	return err
}

// Drain lets in-flight handlers finish before the connection closes.
func (n *NATSEventBus) Drain() error {
	return n.conn.Drain()
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

func newMessage(msg *nats.Msg) *Message {
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: time.Now(),
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
	}
}

// NoopPublisher drops events. Used when no NATS_URL is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event dropped, no event bus configured", "subject", subject)
	return nil
}

func (NoopPublisher) Close() error { return nil }

// Event subjects
const (
	ScanDecoded    = "kiosk.scan.decoded"
	FaceMatched    = "kiosk.face.matched"
	GuestCheckedIn = "kiosk.guest.checked_in"
)

// Event payloads
type ScanDecodedEvent struct {
	SessionID string    `json:"session_id,omitempty"`
	PersonID  int64     `json:"person_id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	KioskID   string    `json:"kiosk_id"`
	DecodedAt time.Time `json:"decoded_at"`
}

type FaceMatchedEvent struct {
	BookingID string    `json:"booking_id"`
	KioskID   string    `json:"kiosk_id"`
	MatchedAt time.Time `json:"matched_at"`
}

type GuestCheckedInEvent struct {
	BookingID       string    `json:"booking_id"`
	GuestNumber     int       `json:"guest_number"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	NumberOfGuests  int       `json:"number_of_guests"`
	CheckedInGuests int       `json:"checked_in_guests"`
	KioskID         string    `json:"kiosk_id"`
	CheckedInAt     time.Time `json:"checked_in_at"`
}
