package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/checkin-kiosk/internal/service"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

func (h *Handlers) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParsePersonID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := h.personService.GetPerson(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PersonBadge serves the QR code the scanner page reads for this person.
func (h *Handlers) PersonBadge(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParsePersonID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	png, err := h.personService.Badge(id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to render badge", "person_id", id, "error", err)
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
