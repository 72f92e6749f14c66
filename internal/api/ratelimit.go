package api

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/guidepostapp/guidepost-server/internal/ratelimit"
)

// RateLimiter wraps KeyedRateLimiter for API use.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a new rate limiter.
// rate: number of requests allowed per interval
// interval: time period for rate (e.g., time.Minute)
// burst: maximum burst size
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst)
}

// rateLimitMiddleware throttles credential endpoints and share-token
// redemption by client IP. Both are unauthenticated guessing surfaces:
// credentials for passwords, redemption for share tokens. All other
// paths pass through untouched.
func rateLimitMiddleware(authLimiter, shareLimiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := limiterForPath(r.URL.Path, authLimiter, shareLimiter)
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				writeTooManyRequests(w, logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limiterForPath picks the limiter guarding a path, or nil for unthrottled paths.
func limiterForPath(path string, authLimiter, shareLimiter *RateLimiter) *RateLimiter {
	switch path {
	case "/api/v1/auth/register", "/api/v1/auth/token", "/api/v1/auth/refresh":
		return authLimiter
	}
	if strings.HasPrefix(path, "/api/v1/guides/share/access/") {
		return shareLimiter
	}
	return nil
}

// writeTooManyRequests writes a 429 in the standard envelope. The limiter
// sits in front of huma, so the envelope is written by hand here.
func writeTooManyRequests(w http.ResponseWriter, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)

	envelope := APIEnvelope{
		Version: EnvelopeVersion,
		Success: false,
		Error:   "too many requests, slow down",
	}

	if err := json.MarshalWrite(w, envelope); err != nil {
		if logger != nil {
			logger.Error("failed to encode rate limit response", "error", err)
		}
	}
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For may contain multiple IPs, first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port).
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
