package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 4 << 20

// HTTPClient is satisfied by *http.Client; tests swap in a server client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ServiceProxy issues requests against one remote service rooted at baseURL.
type ServiceProxy struct {
	name    string
	baseURL string
	client  HTTPClient
}

func NewServiceProxy(name, baseURL string, timeout time.Duration) *ServiceProxy {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ServiceProxy{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithClient replaces the HTTP client.
func (p *ServiceProxy) WithClient(client HTTPClient) *ServiceProxy {
	p.client = client
	return p
}

func (p *ServiceProxy) ProxyRequest(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	url := p.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// Add request ID for tracing
	if requestID := logger.RequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if kioskID := logger.KioskID(ctx); kioskID != "" {
		req.Header.Set("X-Kiosk-ID", kioskID)
	}

	logger.DebugContext(ctx, "Calling upstream",
		"service", p.name,
		"method", method,
		"url", url,
	)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}

	return resp, nil
}

// DoJSON sends payload (if any) as JSON and decodes a 2xx response into out
// (if non-nil). Non-2xx responses become a *StatusError. Nothing is retried.
func (p *ServiceProxy) DoJSON(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	headers := map[string]string{"Accept": "application/json"}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", p.name, err)
		}
		body = b
		headers["Content-Type"] = "application/json"
	}

	resp, err := p.ProxyRequest(ctx, method, path, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", p.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Service: p.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, p.name, err)
	}
	return nil
}

func (p *ServiceProxy) Get(ctx context.Context, path string, out any) error {
	return p.DoJSON(ctx, http.MethodGet, path, nil, out)
}

func (p *ServiceProxy) Post(ctx context.Context, path string, payload, out any) error {
	return p.DoJSON(ctx, http.MethodPost, path, payload, out)
}

func (p *ServiceProxy) Patch(ctx context.Context, path string, payload, out any) error {
	return p.DoJSON(ctx, http.MethodPatch, path, payload, out)
}
