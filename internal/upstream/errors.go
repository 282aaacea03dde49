package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrInvalidResponse = errors.New("invalid upstream response")

// StatusError is returned for any non-2xx upstream response.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s request failed, status=%d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed, status=%d body=%s", e.Service, e.StatusCode, truncate(e.Body, 256))
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
