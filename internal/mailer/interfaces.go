package mailer

import (
	"context"
	"fmt"
	"html"
	"time"
)

type Service interface {
	SendArrivalNotice(ctx context.Context, to string, notice ArrivalNotice) error
}

// ArrivalNotice tells the front desk that a guest has checked in at a kiosk.
type ArrivalNotice struct {
	BookingID       string
	GuestName       string
	GuestNumber     int
	CheckedInGuests int
	NumberOfGuests  int
	KioskID         string
	CheckedInAt     time.Time
}

func (n ArrivalNotice) subject() string {
	return fmt.Sprintf("Guest arrived: %s (%d/%d)", n.GuestName, n.CheckedInGuests, n.NumberOfGuests)
}

func (n ArrivalNotice) text() string {
	return fmt.Sprintf("Booking %s: guest %d of %s checked in at %s on %s.\n%d of %d guests have arrived.",
		n.BookingID, n.GuestNumber, n.GuestName, n.KioskID, n.CheckedInAt.Format(time.RFC1123),
		n.CheckedInGuests, n.NumberOfGuests)
}

func (n ArrivalNotice) html() string {
	return fmt.Sprintf(`
		<h2>Guest arrived</h2>
		<p><strong>%s</strong>, booking %s</p>
		<p>Guest %d checked in at kiosk %s on %s.</p>
		<p>%d of %d guests have arrived.</p>
	`,
		html.EscapeString(n.GuestName), html.EscapeString(n.BookingID),
		n.GuestNumber, html.EscapeString(n.KioskID), n.CheckedInAt.Format(time.RFC1123),
		n.CheckedInGuests, n.NumberOfGuests)
}
