package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BookingID is the booking service identifier. The service has served both
// numeric and string ids, so both JSON forms are accepted.
type BookingID string

func (id *BookingID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = BookingID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("booking id: %w", err)
	}
	*id = BookingID(n.String())
	return nil
}

func (id BookingID) String() string {
	return string(id)
}

// ParseBookingID validates an id taken from a route or an upstream response.
func ParseBookingID(raw string) (BookingID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" || raw == "null" || strings.ContainsAny(raw, "/?#") {
		return "", ErrInvalidBookingID
	}
	return BookingID(raw), nil
}

type Booking struct {
	ID              BookingID `json:"id,omitempty"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	NumberOfGuests  int       `json:"numberOfGuests"`
	CheckedInGuests int       `json:"checkedInGuests"`
}

const (
	LabelCheckedIn = "Checked In"
	LabelCheckIn   = "Check In"
)

// GuestSlot is one numbered guest row on the booking detail page.
type GuestSlot struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	CheckedIn bool   `json:"checkedIn"`
	Disabled  bool   `json:"disabled"`
	Label     string `json:"label"`
}

func (b *Booking) Validate() error {
	if b.NumberOfGuests < 0 || b.CheckedInGuests < 0 {
		return ErrInvalidBooking
	}
	return nil
}

func (b *Booking) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// DisplayName is FullName with each word capitalised. Existing capitals are
// kept, so "McAdams" stays as typed.
func (b *Booking) DisplayName() string {
	return cases.Title(language.Und, cases.NoLower).String(b.FullName())
}

// Slots renders guests 1..NumberOfGuests. A slot is checked in, and its
// button disabled, iff its number is <= CheckedInGuests.
func (b *Booking) Slots() []GuestSlot {
	if b.NumberOfGuests <= 0 {
		return []GuestSlot{}
	}
	slots := make([]GuestSlot, 0, b.NumberOfGuests)
	for n := 1; n <= b.NumberOfGuests; n++ {
		checked := n <= b.CheckedInGuests
		label := LabelCheckIn
		if checked {
			label = LabelCheckedIn
		}
		slots = append(slots, GuestSlot{
			Number:    n,
			Name:      fmt.Sprintf("Person %d", n),
			CheckedIn: checked,
			Disabled:  checked,
			Label:     label,
		})
	}
	return slots
}

// CanCheckIn reports why guest cannot be checked in, or nil if it can. Slot
// state is derived from the count, so only the next slot, CheckedInGuests+1,
// is accepted; any other slot would flip a different row.
func (b *Booking) CanCheckIn(guest int) error {
	if guest < 1 || guest > b.NumberOfGuests {
		return ErrInvalidGuestNumber
	}
	if b.CheckedInGuests >= b.NumberOfGuests {
		return ErrBookingFull
	}
	if guest <= b.CheckedInGuests {
		return ErrGuestAlreadyCheckedIn
	}
	if guest != b.CheckedInGuests+1 {
		return ErrGuestOutOfOrder
	}
	return nil
}

// MarkCheckedIn applies a confirmed check-in. The count never passes NumberOfGuests.
func (b *Booking) MarkCheckedIn() {
	if b.CheckedInGuests < b.NumberOfGuests {
		b.CheckedInGuests++
	}
}

// BookingView is the kiosk's read-through copy of a booking for one page view.
type BookingView struct {
	ID        string    `json:"viewId"`
	Booking   Booking   `json:"booking"`
	KioskID   string    `json:"kioskId,omitempty"`
	OpenedAt  time.Time `json:"openedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CheckInRequest is the body the booking service expects on PATCH /check-in/{id}.
type CheckInRequest struct {
	GuestNumber int `json:"guestNumber"`
}

// CheckInRecord is the audit row written for every confirmed check-in.
type CheckInRecord struct {
	ID              int64     `json:"id"`
	BookingID       BookingID `json:"bookingId"`
	GuestNumber     int       `json:"guestNumber"`
	CheckedInGuests int       `json:"checkedInGuests"`
	NumberOfGuests  int       `json:"numberOfGuests"`
	KioskID         string    `json:"kioskId"`
	RequestID       string    `json:"requestId,omitempty"`
	CheckedInAt     time.Time `json:"checkedInAt"`
}
