package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/checkin-kiosk/internal/dataurl"
	"github.com/diagnosis/checkin-kiosk/internal/http/middleware"
	"github.com/diagnosis/checkin-kiosk/internal/repository"
	"github.com/diagnosis/checkin-kiosk/internal/scanner"
	"github.com/diagnosis/checkin-kiosk/internal/service"
	"github.com/diagnosis/checkin-kiosk/internal/upstream"
	"github.com/diagnosis/checkin-kiosk/pkg/auth"
	"github.com/diagnosis/checkin-kiosk/pkg/config"
	"github.com/diagnosis/checkin-kiosk/pkg/events"
)

const testSecret = "handler-test-secret"

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, image string) (json.RawMessage, error) {
	if strings.Contains(image, "bad") {
		return nil, errors.New("Invalid response from Hugging Face API")
	}
	return json.RawMessage(`{"embedding":[0.1,0.2]}`), nil
}

type testEnv struct {
	router       http.Handler
	checkInCalls atomic.Int32
	faceCalls    atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}

	bookingSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/42":
			_, _ = w.Write([]byte(`{"bookingDetails":{"firstName":"ada","lastName":"lovelace","numberOfGuests":3,"checkedInGuests":1}}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/check-in/42":
			env.checkInCalls.Add(1)
			_, _ = w.Write([]byte(`{"ok":true}`))
		case r.Method == http.MethodPost && r.URL.Path == "/face":
			env.faceCalls.Add(1)
			_, _ = w.Write([]byte(`{"id":42}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(bookingSrv.Close)

	personSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/5" {
			_, _ = w.Write([]byte(`{"id":"5","name":"Grace"}`))
			return
		}
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(personSrv.Close)

	cfg := &config.Config{
		Kiosk: config.KioskConfig{ID: "kiosk-test", MaxUploadBytes: 4 << 20},
		Auth:  config.AuthConfig{Required: true, JWTSecret: testSecret},
	}

	pinHash, err := service.HashPIN("2468")
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	bookingAPI := upstream.NewBookingClient(bookingSrv.URL, time.Second)
	pub := events.NoopPublisher{}
	audit := repository.NoopCheckInRepository{}

	h := New(
		service.NewScanService(
			scanner.NewMachine(scanner.NewDecoder(), 300*time.Millisecond),
			repository.NewScanSessionRepository(store, time.Minute), pub, "kiosk-test"),
		service.NewFaceService(fakeEmbedder{}, bookingAPI, pub, "kiosk-test"),
		service.NewBookingService(bookingAPI, repository.NewBookingViewRepository(store, time.Minute), audit, pub, "kiosk-test"),
		service.NewPersonService(upstream.NewPersonClient(personSrv.URL, time.Second), 128),
		service.NewKioskAuthService(pinHash, testSecret, "kiosk-test", time.Hour),
		service.NewAuditService(audit),
		cfg,
	)

	r := chi.NewRouter()
	limiter := middleware.NewRateLimiter(repository.NewMemoryRateLimitRepository(), middleware.RateLimitConfig{Requests: 3, Window: time.Minute})
	h.Routes(r, limiter, nil)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func staffToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.NewStaffToken("kiosk-test", testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestHuggingFace(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/huggingface", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/huggingface", `{"image":"data:image/png;base64,aGk="}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"embedding":[0.1,0.2]}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/huggingface", `{"image":"bad"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Invalid response from Hugging Face API", decode(t, rec)["error"])
}

func TestScanFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/scan/sessions", `{"deviceId":"cam-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["sessionId"].(string)

	png, err := qrcode.Encode("5", qrcode.Medium, 256)
	require.NoError(t, err)
	body, _ := json.Marshal(map[string]string{"frame": dataurl.Encode("image/png", png)})

	rec = env.do(t, http.MethodPost, "/v1/scan/sessions/"+id+"/frames", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "decoded", out["status"])
	assert.Equal(t, "/person/5", out["route"])
	assert.EqualValues(t, 300, out["redirectAfterMs"])

	rec = env.do(t, http.MethodPost, "/v1/scan/sessions/missing/frames", string(body))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/scan/sessions/"+id+"/frames", `{"frame":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/scan/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/v1/scan/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScanCameraError(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/scan/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["sessionId"].(string)

	rec = env.do(t, http.MethodPost, "/v1/scan/sessions/"+id+"/error", `{"name":"NotAllowedError","message":"denied"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed", decode(t, rec)["status"])

	rec = env.do(t, http.MethodPost, "/v1/scan/sessions/"+id+"/error", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScanImage(t *testing.T) {
	env := newTestEnv(t)

	upload := func(content []byte) map[string]interface{} {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "badge.png")
		require.NoError(t, err)
		_, _ = part.Write(content)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/scan/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return decode(t, rec)
	}

	png, err := qrcode.Encode("77", qrcode.Medium, 256)
	require.NoError(t, err)
	out := upload(png)
	assert.Equal(t, "/person/77", out["route"])
	assert.Equal(t, "badge.png", out["fileName"])

	out = upload([]byte("not an image"))
	assert.Equal(t, "Failed to scan QR Code from the file.", out["message"])
}

func TestDefaultDevice(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/devices/default",
		`{"devices":[{"deviceId":"a","label":"Front","kind":"videoinput"},{"deviceId":"b","label":"Back Camera","kind":"videoinput"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b", decode(t, rec)["selected"].(map[string]interface{})["deviceId"])

	rec = env.do(t, http.MethodPost, "/v1/devices/default", `{"devices":[]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFaceIdentify(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/face/identify", `{"image":"data:image/png;base64,aGk="}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/booking/42", decode(t, rec)["route"])

	rec = env.do(t, http.MethodPost, "/v1/face/identify", `{"image":"bad"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to process image.", decode(t, rec)["error"])
	assert.EqualValues(t, 1, env.faceCalls.Load())
}

func TestBookingCheckIn(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/bookings/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.Equal(t, "Ada Lovelace", page["name"])
	assert.Len(t, page["guests"], 3)
	viewID := page["viewId"].(string)
	path := "/v1/views/" + viewID + "/check-in"

	rec = env.do(t, http.MethodPatch, path, `{"guestNumber":2}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPatch, path, `{"guestNumber":3}`, "Authorization", staffToken(t))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "GUEST_OUT_OF_ORDER", decode(t, rec)["code"])
	assert.EqualValues(t, 0, env.checkInCalls.Load())

	rec = env.do(t, http.MethodPatch, path, `{"guestNumber":2}`, "Authorization", staffToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["checkedInGuests"])

	rec = env.do(t, http.MethodPatch, path, `{"guestNumber":2}`, "Authorization", staffToken(t))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.EqualValues(t, 1, env.checkInCalls.Load())

	rec = env.do(t, http.MethodPatch, path, `{"guestNumber":9}`, "Authorization", staffToken(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/views/"+viewID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["checkedInGuests"])
}

func TestBookingNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/bookings/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Sorry, data not found", decode(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/v1/bookings/undefined", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/views/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPerson(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/persons/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{\n  \"id\": \"5\",\n  \"name\": \"Grace\"\n}", decode(t, rec)["pretty"])

	rec = env.do(t, http.MethodGet, "/v1/persons/6", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to fetch data. Please try again.", decode(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/v1/persons/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/persons/5/qrcode", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestUnlockAndAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/admin/checkins", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/kiosk/unlock", `{"pin":"0000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/kiosk/unlock", `{"pin":"2468"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)

	rec = env.do(t, http.MethodGet, "/v1/admin/checkins?limit=5", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.EqualValues(t, 5, out["limit"])
	assert.Empty(t, out["checkins"])

	// third unlock attempt from the same client is still allowed, the fourth is not
	env.do(t, http.MethodPost, "/v1/kiosk/unlock", `{"pin":"1"}`)
	rec = env.do(t, http.MethodPost, "/v1/kiosk/unlock", `{"pin":"1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
