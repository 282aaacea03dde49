package domain

import (
	"math"
	"time"
	"unicode"
)

type ScanSource string

const (
	SourceVideo ScanSource = "video"
	SourceImage ScanSource = "image"
)

type ScanResult struct {
	Text      string     `json:"text"`
	Source    ScanSource `json:"source"`
	DecodedAt time.Time  `json:"decodedAt"`
}

type ScanStatus string

const (
	ScanScanning ScanStatus = "scanning"
	ScanDecoded  ScanStatus = "decoded"
	ScanInvalid  ScanStatus = "invalid"
	ScanFailed   ScanStatus = "failed"
)

const (
	MsgNoResult       = "No result"
	MsgInvalidQR      = "Invalid QR Code. Please scan a valid ID."
	MsgFileScanFailed = "Failed to scan QR Code from the file."
	MsgCameraDenied   = "Unable to access the camera. Please check permissions."
)

// ScanSession is the server-held state of one scanner page.
type ScanSession struct {
	ID              string      `json:"sessionId"`
	DeviceID        string      `json:"deviceId,omitempty"`
	Status          ScanStatus  `json:"status"`
	Message         string      `json:"message"`
	PersonID        *int64      `json:"personId,omitempty"`
	Route           string      `json:"route,omitempty"`
	RedirectAfterMs int64       `json:"redirectAfterMs,omitempty"`
	Result          *ScanResult `json:"result,omitempty"`
	Frames          int         `json:"frames"`
	StartedAt       time.Time   `json:"startedAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Done reports whether the decoder has been stopped for this session.
func (s *ScanSession) Done() bool {
	return s.Status == ScanDecoded || s.Status == ScanFailed
}

// ParseGuestID reads a person id from a decoded QR payload with the same rules
// as the browser's parseInt(text, 10): leading whitespace and an optional sign
// are skipped, the leading run of decimal digits is the value and any trailing
// text is ignored. A payload without leading digits is invalid.
func ParseGuestID(text string) (int64, error) {
	runes := []rune(text)
	i := 0
	for i < len(runes) && (unicode.IsSpace(runes[i]) || runes[i] == '\uFEFF') {
		i++
	}
	negative := false
	if i < len(runes) && (runes[i] == '+' || runes[i] == '-') {
		negative = runes[i] == '-'
		i++
	}
	start := i
	var value int64
	for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
		d := int64(runes[i] - '0')
		if value > (math.MaxInt64-d)/10 {
			return 0, ErrInvalidQRPayload
		}
		value = value*10 + d
		i++
	}
	if i == start {
		return 0, ErrInvalidQRPayload
	}
	if negative {
		value = -value
	}
	return value, nil
}
