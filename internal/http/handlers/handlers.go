package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/internal/http/middleware"
	"github.com/diagnosis/checkin-kiosk/internal/http/response"
	"github.com/diagnosis/checkin-kiosk/internal/service"
	"github.com/diagnosis/checkin-kiosk/pkg/auth"
	"github.com/diagnosis/checkin-kiosk/pkg/config"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

type Handlers struct {
	scanService    service.ScanService
	faceService    service.FaceService
	bookingService service.BookingService
	personService  service.PersonService
	authService    service.KioskAuthService
	auditService   service.AuditService
	config         *config.Config
}

func New(
	scanService service.ScanService,
	faceService service.FaceService,
	bookingService service.BookingService,
	personService service.PersonService,
	authService service.KioskAuthService,
	auditService service.AuditService,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		scanService:    scanService,
		faceService:    faceService,
		bookingService: bookingService,
		personService:  personService,
		authService:    authService,
		auditService:   auditService,
		config:         cfg,
	}
}

// Routes mounts the kiosk API. unlockLimiter guards the PIN endpoint and
// idempotency wraps the state-changing routes; either may be nil.
func (h *Handlers) Routes(r chi.Router, unlockLimiter *middleware.RateLimiter, idempotency func(http.Handler) http.Handler) {
	requireStaff := middleware.RequireJWT(h.config.Auth.JWTSecret, auth.RoleStaff, h.config.Auth.Required)
	if idempotency == nil {
		idempotency = func(next http.Handler) http.Handler { return next }
	}

	r.HandleFunc("/api/huggingface", h.HuggingFace)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/devices/default", h.DefaultDevice)

		r.Route("/scan", func(r chi.Router) {
			r.Post("/sessions", h.OpenScanSession)
			r.Get("/sessions/{id}", h.GetScanSession)
			r.Delete("/sessions/{id}", h.CloseScanSession)
			r.Post("/sessions/{id}/frames", h.FeedFrame)
			r.Post("/sessions/{id}/error", h.ReportCameraError)
			r.Post("/image", h.ScanImage)
		})

		r.Post("/face/identify", h.IdentifyFace)

		r.Get("/bookings/{id}", h.OpenBooking)
		r.Get("/views/{viewID}", h.GetBookingView)
		r.With(requireStaff, idempotency).Patch("/views/{viewID}/check-in", h.CheckIn)

		r.Get("/persons/{id}", h.GetPerson)
		r.Get("/persons/{id}/qrcode", h.PersonBadge)

		r.Group(func(r chi.Router) {
			if unlockLimiter != nil {
				r.Use(unlockLimiter.Middleware())
			}
			r.Post("/kiosk/unlock", h.Unlock)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireStaff)
			r.Get("/checkins", h.ListCheckIns)
		})
	})
}

// Helper functions for common response patterns
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into v.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Kiosk.MaxUploadBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func invalidJSON(w http.ResponseWriter, err error) {
	response.WriteErrorWithDetails(w, http.StatusBadRequest, "Invalid JSON", response.CodeInvalidInput, err.Error())
}

// writeServiceError maps domain and service errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		response.WriteError(w, http.StatusNotFound, "Session not found or expired", response.CodeSessionExpired)
	case errors.Is(err, domain.ErrSessionClosed):
		response.Conflict(w, "Scan session already finished")
	case errors.Is(err, domain.ErrInvalidImage):
		response.WriteError(w, http.StatusBadRequest, "Invalid image data", response.CodeInvalidImage)
	case errors.Is(err, domain.ErrNoCamera):
		response.WriteError(w, http.StatusNotFound, "No camera available", response.CodeNoCamera)
	case errors.Is(err, domain.ErrInvalidBookingID):
		response.BadRequest(w, "Invalid booking ID")
	case errors.Is(err, domain.ErrInvalidPersonID):
		response.BadRequest(w, "Invalid person ID")
	case errors.Is(err, domain.ErrInvalidGuestNumber):
		response.BadRequest(w, "Invalid guest number")
	case errors.Is(err, domain.ErrGuestAlreadyCheckedIn):
		response.WriteError(w, http.StatusConflict, "Guest already checked in", response.CodeGuestCheckedIn)
	case errors.Is(err, domain.ErrGuestOutOfOrder):
		response.WriteError(w, http.StatusConflict, "Guests must be checked in in order", response.CodeGuestOutOfOrder)
	case errors.Is(err, domain.ErrBookingFull):
		response.WriteError(w, http.StatusConflict, "All guests already checked in", response.CodeBookingFull)
	case errors.Is(err, service.ErrBookingUnavailable):
		response.NotFound(w, service.ErrBookingUnavailable.Error())
	case errors.Is(err, service.ErrCheckInFailed):
		response.BadGateway(w, service.ErrCheckInFailed.Error())
	case errors.Is(err, service.ErrPersonUnavailable):
		response.BadGateway(w, service.ErrPersonUnavailable.Error())
	case errors.Is(err, service.ErrFaceProcess):
		response.BadGateway(w, service.ErrFaceProcess.Error())
	case errors.Is(err, service.ErrFaceSubmit):
		response.BadGateway(w, service.ErrFaceSubmit.Error())
	case errors.Is(err, service.ErrInvalidPIN):
		response.Unauthorized(w, "Invalid PIN")
	case errors.Is(err, service.ErrUnlockDisabled):
		response.ServiceUnavailable(w, "Kiosk unlock is not configured")
	default:
		logger.ErrorContext(r.Context(), "Unhandled error", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
	}
}

// Helper to parse pagination parameters
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
