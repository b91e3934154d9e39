package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/ports"
)

// RateLimitMiddleware enforces a per-client request limit in front of the
// API routes. The identity key is the client IP, X-Forwarded-For aware.
type RateLimitMiddleware struct {
	limiter ports.RateLimitService
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates the middleware. limit requests are allowed
// per client per window.
func NewRateLimitMiddleware(limiter ports.RateLimitService, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

// Middleware rejects over-limit clients with 429. A limiter backend failure
// fails open so a Redis outage does not take the API down with it.
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := GetClientIP(r)

		allowed, err := m.limiter.Allow(r.Context(), clientIP, m.limit, m.window)

		if err != nil {
			m.logger.Error("rate limiter failure, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err))

			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			m.logger.Warn("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", r.URL.Path))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", m.window.String())
			w.WriteHeader(http.StatusTooManyRequests)

			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "RATE_LIMIT_EXCEEDED",
				"message": "Too many requests, please slow down",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP resolves the identity the limiter keys on. Webhook traffic
// normally arrives through a proxy or load balancer, so the forwarding
// headers take precedence over RemoteAddr: the first valid address in
// X-Forwarded-For, then X-Real-IP, then the socket peer with its port
// stripped.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])

		if net.ParseIP(first) != nil {
			return first
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		if net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)

	if err != nil {
		return r.RemoteAddr
	}

	return host
}
