// Package dataurl parses the base64 data URLs produced by canvas.toDataURL and FileReader.
package dataurl

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrMalformed = errors.New("malformed data url")

type DataURL struct {
	MediaType string
	Data      []byte
}

// Parse accepts "data:<mediatype>;base64,<payload>". A bare base64 payload is
// accepted too and assumed to be a PNG, which is what the capture page sends.
func Parse(s string) (*DataURL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMalformed
	}

	mediaType := "image/png"
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return nil, ErrMalformed
		}
		params := strings.Split(header, ";")
		if !containsFold(params[1:], "base64") {
			return nil, ErrMalformed
		}
		if params[0] != "" {
			mediaType = strings.ToLower(params[0])
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some encoders drop the padding
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, ErrMalformed
		}
	}
	if len(data) == 0 {
		return nil, ErrMalformed
	}
	return &DataURL{MediaType: mediaType, Data: data}, nil
}

// Encode renders data as a base64 data URL.
func Encode(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Extension maps the media type to a file extension for uploads.
func (d *DataURL) Extension() string {
	switch d.MediaType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func containsFold(items []string, want string) bool {
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item), want) {
			return true
		}
	}
	return false
}
