package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/dataurl"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGradioServer(t *testing.T, stream string) *httptest.Server {
	t.Helper()
	mux := chi.NewRouter()
	mux.Post("/gradio_api/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-test", r.Header.Get("Authorization"))
		f, hdr, err := r.FormFile("files")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, []byte("png-bytes"), b)
		assert.Equal(t, "frame.png", hdr.Filename)
		_, _ = w.Write([]byte(`["/tmp/gradio/abc/frame.png"]`))
	})
	mux.Post("/gradio_api/call/predict_1", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data []gradioFileData `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "/tmp/gradio/abc/frame.png", body.Data[0].Path)
		assert.Equal(t, "gradio.FileData", body.Data[0].Meta["_type"])
		_, _ = w.Write([]byte(`{"event_id":"evt-1"}`))
	})
	mux.Get("/gradio_api/call/predict_1/evt-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(stream))
	})
	return httptest.NewServer(mux)
}

func newTestGradioClient(t *testing.T, url string) *GradioClient {
	t.Helper()
	c, err := NewGradioClient(GradioConfig{SpaceURL: url + "/", APIName: "predict_1", Token: "hf-test", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestGradioClient_Embed(t *testing.T) {
	stream := "event: generating\ndata: null\n\n" +
		"event: heartbeat\ndata: null\n\n" +
		"event: complete\ndata: [{\"embedding\":[0.5,0.25]}, \"ignored\"]\n\n"
	srv := newGradioServer(t, stream)
	defer srv.Close()

	out, err := newTestGradioClient(t, srv.URL).Embed(context.Background(), dataurl.Encode("image/png", []byte("png-bytes")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"embedding":[0.5,0.25]}`, string(out))
}

func TestGradioClient_EmbedErrorEvent(t *testing.T) {
	srv := newGradioServer(t, "event: error\ndata: \"no face detected\"\n\n")
	defer srv.Close()

	_, err := newTestGradioClient(t, srv.URL).Embed(context.Background(), dataurl.Encode("image/png", []byte("png-bytes")))
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "no face detected")
}

func TestGradioClient_EmbedEmptyOutput(t *testing.T) {
	srv := newGradioServer(t, "event: complete\ndata: []\n\n")
	defer srv.Close()

	_, err := newTestGradioClient(t, srv.URL).Embed(context.Background(), dataurl.Encode("image/png", []byte("png-bytes")))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGradioClient_EmbedRejectsBadDataURL(t *testing.T) {
	c, err := NewGradioClient(GradioConfig{SpaceURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "data:image/png,notbase64")
	assert.ErrorIs(t, err, dataurl.ErrMalformed)
}

func TestGradioClient_UploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "space sleeping", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestGradioClient(t, srv.URL).Embed(context.Background(), dataurl.Encode("image/png", []byte("x")))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "embedding", se.Service)
}

func TestReadCompleteEvent_StreamEndsWithoutResult(t *testing.T) {
	_, err := readCompleteEvent(strings.NewReader("event: generating\ndata: null\n\n"))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestReadCompleteEvent_NoTrailingBlankLine(t *testing.T) {
	out, err := readCompleteEvent(strings.NewReader("event: complete\ndata: [1]"))
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(out))
}

func TestNewGradioClient_RequiresURL(t *testing.T) {
	_, err := NewGradioClient(GradioConfig{})
	assert.Error(t, err)
}
