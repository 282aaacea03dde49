package domain

import "errors"

var (
	ErrInvalidQRPayload      = errors.New("qr payload is not a valid id")
	ErrNoQRCode              = errors.New("no qr code found in image")
	ErrInvalidImage          = errors.New("invalid image data")
	ErrNoCamera              = errors.New("no video input devices")
	ErrInvalidBookingID      = errors.New("invalid booking id")
	ErrInvalidPersonID       = errors.New("invalid person id")
	ErrInvalidBooking        = errors.New("invalid booking record")
	ErrInvalidGuestNumber    = errors.New("guest number out of range")
	ErrGuestAlreadyCheckedIn = errors.New("guest already checked in")
	ErrBookingFull           = errors.New("all guests already checked in")
	ErrGuestOutOfOrder       = errors.New("guests check in in order")
	ErrSessionNotFound       = errors.New("session not found or expired")
	ErrSessionClosed         = errors.New("scan session already finished")
	ErrEmptyEmbedding        = errors.New("embedding service returned no embedding")
)
