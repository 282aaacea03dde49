package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/internal/service"
)

// OpenBooking fetches the booking once and returns the page with a view id
// for later check-ins.
func (h *Handlers) OpenBooking(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBookingID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	view, err := h.bookingService.OpenView(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewBookingPage(view))
}

func (h *Handlers) GetBookingView(w http.ResponseWriter, r *http.Request) {
	view, err := h.bookingService.GetView(r.Context(), chi.URLParam(r, "viewID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewBookingPage(view))
}

func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckInRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		invalidJSON(w, err)
		return
	}
	view, err := h.bookingService.CheckIn(r.Context(), chi.URLParam(r, "viewID"), req.GuestNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewBookingPage(view))
}
