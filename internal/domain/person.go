package domain

import (
	"bytes"
	"encoding/json"
)

const MsgPersonFetchFailed = "Failed to fetch data. Please try again."

// Person is the person service record. Its shape is owned upstream, so the kiosk keeps the raw document.
type Person struct {
	ID       int64           `json:"id"`
	Document json.RawMessage `json:"document"`
}

// Pretty renders the document with two-space indentation, as the detail page shows it.
func (p *Person) Pretty() (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, p.Document, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
