package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingClient_GetBooking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"bookingDetails":{"firstName":"Ada","lastName":"Lovelace","numberOfGuests":3,"checkedInGuests":1}}`))
	}))
	defer srv.Close()

	c := NewBookingClient(srv.URL, time.Second)
	b, err := c.GetBooking(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingID("42"), b.ID)
	assert.Equal(t, "Ada", b.FirstName)
	assert.Equal(t, 3, b.NumberOfGuests)
	assert.Equal(t, 1, b.CheckedInGuests)
}

func TestBookingClient_GetBookingNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewBookingClient(srv.URL, time.Second).GetBooking(context.Background(), "7")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestBookingClient_GetBookingMissingEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"firstName":"Ada"}`))
	}))
	defer srv.Close()

	_, err := NewBookingClient(srv.URL, time.Second).GetBooking(context.Background(), "7")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestBookingClient_LookupByFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/face", r.URL.Path)
		var req domain.FaceLookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, domain.FaceEmbedding{0.1, 0.2, 0.3}, req.Embedding)
		_, _ = w.Write([]byte(`{"id":17}`))
	}))
	defer srv.Close()

	id, err := NewBookingClient(srv.URL, time.Second).LookupByFace(context.Background(), domain.FaceEmbedding{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingID("17"), id)
}

func TestBookingClient_LookupByFaceNoID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewBookingClient(srv.URL, time.Second).LookupByFace(context.Background(), domain.FaceEmbedding{1})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestBookingClient_CheckIn(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/check-in/42", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewBookingClient(srv.URL, time.Second).CheckIn(context.Background(), "42", 2)
	require.NoError(t, err)
	assert.JSONEq(t, `{"guestNumber":2}`, gotBody)
}

func TestBookingClient_CheckInServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewBookingClient(srv.URL, time.Second).CheckIn(context.Background(), "42", 2)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "booking", se.Service)
}

func TestPersonClient_GetPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/5", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"5","name":"Grace"}`))
	}))
	defer srv.Close()

	p, err := NewPersonClient(srv.URL, time.Second).GetPerson(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID)
	pretty, err := p.Pretty()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"id\": \"5\",\n  \"name\": \"Grace\"\n}", pretty)
}

func TestPersonClient_GetPersonFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewPersonClient(srv.URL, time.Second).GetPerson(context.Background(), 5)
	assert.Error(t, err)
}
