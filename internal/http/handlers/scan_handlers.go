package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/internal/http/response"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

type devicesRequest struct {
	Devices []domain.Device `json:"devices"`
}

type openSessionRequest struct {
	DeviceID string `json:"deviceId"`
}

type frameRequest struct {
	Frame string `json:"frame"`
}

type cameraErrorRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// DefaultDevice picks the camera to open from the browser's enumerated devices.
func (h *Handlers) DefaultDevice(w http.ResponseWriter, r *http.Request) {
	var req devicesRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		invalidJSON(w, err)
		return
	}
	sel, err := h.scanService.DefaultDevice(req.Devices)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (h *Handlers) OpenScanSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if r.ContentLength != 0 {
		if err := h.decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			invalidJSON(w, err)
			return
		}
	}
	sess, err := h.scanService.OpenSession(r.Context(), req.DeviceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handlers) GetScanSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.scanService.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// CloseScanSession is sent when the scanner page unmounts.
func (h *Handlers) CloseScanSession(w http.ResponseWriter, r *http.Request) {
	if err := h.scanService.CloseSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FeedFrame decodes one captured video frame against the session.
func (h *Handlers) FeedFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := h.decodeJSON(w, r, &req); err != nil || req.Frame == "" {
		response.BadRequest(w, "frame is required")
		return
	}
	sess, err := h.scanService.FeedFrame(r.Context(), chi.URLParam(r, "id"), req.Frame)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ReportCameraError records a getUserMedia or decoder start failure.
func (h *Handlers) ReportCameraError(w http.ResponseWriter, r *http.Request) {
	var req cameraErrorRequest
	if err := h.decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		invalidJSON(w, err)
		return
	}
	message := req.Message
	if req.Name != "" {
		message = req.Name + ": " + message
	}
	sess, err := h.scanService.ReportError(r.Context(), chi.URLParam(r, "id"), message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ScanImage decodes an uploaded image (multipart field "file").
func (h *Handlers) ScanImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Kiosk.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "Failed to read file")
		return
	}
	logger.DebugContext(r.Context(), "Scanning uploaded image", "file_name", header.Filename, "bytes", len(data))

	sess := h.scanService.DecodeImage(r.Context(), data)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileName": header.Filename,
		"status":   sess.Status,
		"message":  sess.Message,
		"personId": sess.PersonID,
		"route":    sess.Route,
	})
}
