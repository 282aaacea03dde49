package handlers

import (
	"net/http"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/internal/http/response"
)

type unlockRequest struct {
	PIN string `json:"pin"`
}

// Unlock exchanges the staff PIN for a bearer token.
func (h *Handlers) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		invalidJSON(w, err)
		return
	}
	res, err := h.authService.Unlock(r.Context(), req.PIN)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListCheckIns lists audit records, newest first, or every record of one
// booking when booking_id is given.
func (h *Handlers) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("booking_id"); raw != "" {
		id, err := domain.ParseBookingID(raw)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		records, err := h.auditService.ListBookingCheckIns(r.Context(), id)
		if err != nil {
			response.InternalError(w, "Failed to retrieve check-ins")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"checkins": records})
		return
	}

	limit, offset := parsePagination(r)
	records, err := h.auditService.ListCheckIns(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to retrieve check-ins")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"checkins": records,
		"limit":    limit,
		"offset":   offset,
	})
}
