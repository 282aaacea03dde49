package handlers

import (
	"net/http"

	"github.com/diagnosis/checkin-kiosk/internal/http/response"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

type imageRequest struct {
	Image string `json:"image"`
}

// HuggingFace proxies a captured frame to the embedding space and returns the
// first model output unchanged.
func (h *Handlers) HuggingFace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req imageRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusInternalServerError, "image is required")
		return
	}

	out, err := h.faceService.Embed(r.Context(), req.Image)
	if err != nil {
		logger.ErrorContext(r.Context(), "Embedding proxy failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// IdentifyFace runs embedding then booking lookup and answers with the route.
func (h *Handlers) IdentifyFace(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := h.decodeJSON(w, r, &req); err != nil || req.Image == "" {
		response.BadRequest(w, "image is required")
		return
	}
	res, err := h.faceService.Identify(r.Context(), req.Image)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
