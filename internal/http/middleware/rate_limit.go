package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/checkin-kiosk/internal/http/response"
	"github.com/diagnosis/checkin-kiosk/internal/repository"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int                            // Max requests per window
	Window   time.Duration                  // Time window duration
	KeyFunc  func(r *http.Request) []string // Function to generate rate limit keys
	SkipFunc func(r *http.Request) bool     // Function to skip rate limiting
}

// RateLimiter provides rate limiting functionality
type RateLimiter struct {
	repo   repository.RateLimitRepository
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(repo repository.RateLimitRepository, config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKeyFunc
	}
	return &RateLimiter{
		repo:   repo,
		config: config,
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.config.SkipFunc != nil && rl.config.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			for _, key := range rl.config.KeyFunc(r) {
				allowed, err := rl.repo.CheckRateLimit(r.Context(), key, rl.config.Requests, rl.config.Window)
				if err != nil {
					// fail open
					logger.WarnContext(r.Context(), "Rate limit check failed", "error", err)
					continue
				}
				if !allowed {
					response.RateLimit(w, "Too many requests. Try again later.")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPKeyFunc limits by client IP and route.
func ClientIPKeyFunc(r *http.Request) []string {
	ip := getClientIP(r)
	if ip == "" {
		return nil
	}
	return []string{"ip:" + ip + ":" + r.URL.Path}
}

// getClientIP extracts the real client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP if there are multiple
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
