package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/internal/mailer"
	"github.com/diagnosis/checkin-kiosk/pkg/events"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

// Notifier turns guest check-in events into front desk arrival notices.
type Notifier struct {
	mail      mailer.Service
	frontDesk string
	timeout   time.Duration
}

func NewNotifier(mail mailer.Service, frontDesk string) *Notifier {
	return &Notifier{mail: mail, frontDesk: frontDesk, timeout: 15 * time.Second}
}

// Handle is the events subscription callback. Failures are logged and dropped.
func (n *Notifier) Handle(msg *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.Process(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to send arrival notice", "subject", msg.Subject, "error", err)
	}
}

func (n *Notifier) Process(ctx context.Context, msg *events.Message) error {
	if n.frontDesk == "" {
		logger.DebugContext(ctx, "No front desk address configured, skipping arrival notice")
		return nil
	}

	var ev events.GuestCheckedInEvent
	if err := msg.Decode(&ev); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Subject, err)
	}

	notice := ArrivalNoticeFrom(ev)
	if err := n.mail.SendArrivalNotice(ctx, n.frontDesk, notice); err != nil {
		return fmt.Errorf("send arrival notice for booking %s: %w", ev.BookingID, err)
	}

	logger.InfoContext(ctx, "Arrival notice sent", "booking_id", ev.BookingID, "guest_number", ev.GuestNumber)
	return nil
}

func ArrivalNoticeFrom(ev events.GuestCheckedInEvent) mailer.ArrivalNotice {
	b := domain.Booking{FirstName: ev.FirstName, LastName: ev.LastName}
	return mailer.ArrivalNotice{
		BookingID:       ev.BookingID,
		GuestName:       b.DisplayName(),
		GuestNumber:     ev.GuestNumber,
		CheckedInGuests: ev.CheckedInGuests,
		NumberOfGuests:  ev.NumberOfGuests,
		KioskID:         ev.KioskID,
		CheckedInAt:     ev.CheckedInAt,
	}
}
