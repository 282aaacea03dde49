package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/dataurl"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

var ErrEmbeddingFailed = errors.New("embedding space reported an error")

type GradioConfig struct {
	SpaceURL string
	APIName  string
	Token    string
	Timeout  time.Duration
}

// GradioClient runs a prediction on a Gradio space through its HTTP API:
// upload the image, queue the call, then read the event stream until the
// "complete" event carries the output list.
type GradioClient struct {
	baseURL    string
	apiName    string
	token      string
	timeout    time.Duration
	httpClient HTTPClient
}

func NewGradioClient(cfg GradioConfig) (*GradioClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.SpaceURL), "/")
	if baseURL == "" {
		return nil, errors.New("embedding space url is required")
	}
	apiName := strings.Trim(strings.TrimSpace(cfg.APIName), "/")
	if apiName == "" {
		apiName = "predict"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &GradioClient{
		baseURL:    baseURL,
		apiName:    apiName,
		token:      strings.TrimSpace(cfg.Token),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}, nil
}

// WithHTTPClient replaces the HTTP client.
func (c *GradioClient) WithHTTPClient(client HTTPClient) *GradioClient {
	c.httpClient = client
	return c
}

type gradioFileData struct {
	Path     string            `json:"path"`
	OrigName string            `json:"orig_name,omitempty"`
	MimeType string            `json:"mime_type,omitempty"`
	Meta     map[string]string `json:"meta"`
}

type gradioCallResponse struct {
	EventID string `json:"event_id"`
}

// Embed sends an image data URL to the space and returns the first output
// element as-is.
func (c *GradioClient) Embed(ctx context.Context, image string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	img, err := dataurl.Parse(image)
	if err != nil {
		return nil, err
	}

	path, err := c.upload(ctx, img)
	if err != nil {
		return nil, err
	}

	file := gradioFileData{
		Path:     path,
		OrigName: "frame" + img.Extension(),
		MimeType: img.MediaType,
		Meta:     map[string]string{"_type": "gradio.FileData"},
	}
	eventID, err := c.call(ctx, []any{file})
	if err != nil {
		return nil, err
	}

	data, err := c.result(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var outputs []json.RawMessage
	if err := json.Unmarshal(data, &outputs); err != nil || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: gradio output is not a non-empty list", ErrInvalidResponse)
	}
	return outputs[0], nil
}

func (c *GradioClient) upload(ctx context.Context, img *dataurl.DataURL) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="frame%s"`, img.Extension()))
	header.Set("Content-Type", img.MediaType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	raw, err := c.do(ctx, http.MethodPost, "/gradio_api/upload", &body, mw.FormDataContentType())
	if err != nil {
		return "", err
	}
	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil || len(paths) == 0 {
		return "", fmt.Errorf("%w: gradio upload returned no path", ErrInvalidResponse)
	}
	return paths[0], nil
}

func (c *GradioClient) call(ctx context.Context, inputs []any) (string, error) {
	payload, err := json.Marshal(map[string]any{"data": inputs})
	if err != nil {
		return "", err
	}
	raw, err := c.do(ctx, http.MethodPost, "/gradio_api/call/"+url.PathEscape(c.apiName), bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}
	var resp gradioCallResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.EventID == "" {
		return "", fmt.Errorf("%w: gradio call returned no event id", ErrInvalidResponse)
	}
	return resp.EventID, nil
}

func (c *GradioClient) result(ctx context.Context, eventID string) (json.RawMessage, error) {
	path := "/gradio_api/call/" + url.PathEscape(c.apiName) + "/" + url.PathEscape(eventID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Service: "embedding", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return readCompleteEvent(resp.Body)
}

// readCompleteEvent scans a server-sent event stream for the terminal event.
func readCompleteEvent(r io.Reader) (json.RawMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)

	var event string
	var data strings.Builder
	flush := func() (json.RawMessage, bool, error) {
		defer func() {
			event = ""
			data.Reset()
		}()
		switch event {
		case "complete":
			return json.RawMessage(data.String()), true, nil
		case "error":
			msg := strings.TrimSpace(data.String())
			if msg == "" || msg == "null" {
				return nil, true, ErrEmbeddingFailed
			}
			return nil, true, fmt.Errorf("%w: %s", ErrEmbeddingFailed, msg)
		}
		return nil, false, nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if out, done, err := flush(); done {
				return out, err
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading embedding stream: %w", err)
	}
	if out, done, err := flush(); done {
		return out, err
	}
	return nil, fmt.Errorf("%w: event stream ended without a result", ErrInvalidResponse)
}

func (c *GradioClient) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if requestID := logger.RequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	return req, nil
}

func (c *GradioClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Service: "embedding", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}
