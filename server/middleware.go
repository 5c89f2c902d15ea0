package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/giygas/hospital-portal/config"
	"github.com/giygas/hospital-portal/logging"
	"github.com/giygas/hospital-portal/metrics"
	"github.com/juju/ratelimit"
)

// RealIPMiddleware extracts the real IP from X-Forwarded-For header
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Take the first IP from the comma-separated list
			if idx := strings.Index(xff, ","); idx != -1 {
				xff = xff[:idx]
			}
			r.RemoteAddr = strings.TrimSpace(xff)
		}
		next.ServeHTTP(w, r)
	})
}

// BlockDirectAccessMiddleware refuses requests that did not come through the
// reverse proxy. Localhost is always allowed.
func BlockDirectAccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Real-IP") == "" && r.Header.Get("X-Forwarded-For") == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if host == "127.0.0.1" || host == "::1" || host == "localhost" {
				next.ServeHTTP(w, r)
				return
			}

			logging.Warn("Direct access blocked", "remote_addr", r.RemoteAddr, "user_agent", r.Header.Get("User-Agent"))
			respondWithError(w, http.StatusForbidden, "Direct access not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestSizeMiddleware limits the size of request headers and body
func RequestSizeMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if length, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					if length > cfg.MaxRequestBody {
						logging.Warn("Request body too large",
							"content_length", length,
							"max_allowed", cfg.MaxRequestBody,
							"remote_addr", r.RemoteAddr,
							"user_agent", r.UserAgent())

						respondWithError(w, http.StatusRequestEntityTooLarge,
							fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", cfg.MaxRequestBody))
						return
					}
				}
			}

			// Rough estimate: keys plus values
			headerSize := int64(0)
			for key, values := range r.Header {
				headerSize += int64(len(key))
				for _, value := range values {
					headerSize += int64(len(value))
				}
			}

			if headerSize > cfg.MaxHeaderSize {
				logging.Warn("Request headers too large",
					"header_size", headerSize,
					"max_allowed", cfg.MaxHeaderSize,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent())

				respondWithError(w, http.StatusRequestHeaderFieldsTooLarge,
					fmt.Sprintf("Request headers too large. Maximum allowed size is %d bytes", cfg.MaxHeaderSize))
				return
			}

			// Bodies without Content-Length are capped while being read
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBody)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter manages per-client token buckets. The cost of a request is
// decided by the limiter's cost function.
type RateLimiter struct {
	name     string
	rate     float64
	capacity int64
	cost     func(*http.Request) int64

	clients map[string]*ratelimit.Bucket
	mu      sync.RWMutex
}

// NewRateLimiter creates a limiter refilling rate tokens per second up to
// capacity for every client IP.
func NewRateLimiter(name string, rate float64, capacity int64, cost func(*http.Request) int64) *RateLimiter {
	return &RateLimiter{
		name:     name,
		rate:     rate,
		capacity: capacity,
		cost:     cost,
		clients:  make(map[string]*ratelimit.Bucket),
	}
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientIP]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.clients[clientIP]; !exists {
			bucket = ratelimit.NewBucketWithRate(rl.rate, rl.capacity)
			rl.clients[clientIP] = bucket
			metrics.RateLimiterBucketsTotal.WithLabelValues(rl.name).Set(float64(len(rl.clients)))
		}
		rl.mu.Unlock()
	}

	return bucket
}

// Cleanup removes clients whose bucket has refilled completely. It runs as
// a scheduler job.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, bucket := range rl.clients {
		if bucket.Available() == bucket.Capacity() {
			delete(rl.clients, ip)
			removed++
		}
	}
	metrics.RateLimiterBucketsTotal.WithLabelValues(rl.name).Set(float64(len(rl.clients)))

	if removed > 0 {
		logging.Debug("Rate limiter buckets removed", "limiter", rl.name, "removed", removed, "remaining", len(rl.clients))
	}
}

// Len reports how many clients currently hold a bucket.
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.clients)
}

// Handler rejects requests once the client's bucket cannot pay their cost.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	limit := strconv.FormatInt(rl.capacity, 10)
	rate := strconv.FormatFloat(rl.rate, 'f', -1, 64)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCost := rl.cost(r)
		if tokenCost == 0 {
			next.ServeHTTP(w, r)
			return
		}

		bucket := rl.getBucket(r.RemoteAddr)

		w.Header().Set("X-RateLimit-Limit", limit)
		w.Header().Set("X-RateLimit-Rate", rate)

		if bucket.TakeAvailable(tokenCost) < tokenCost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			logging.Warn("Rate limit exceeded", "limiter", rl.name, "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}

// getTokenCost prices a request for the general limiter. Pages that only
// render from the session are free, dashboards that fan out to the hospital
// API cost more, and mutations cost the most.
func getTokenCost(r *http.Request) int64 {
	path := r.URL.Path

	if path == "/login" && r.Method == http.MethodPost {
		return 50 // Login calls the hospital API
	}

	switch path {
	case "/", "/login", "/logout", "/favicon.ico":
		return 0
	case "/health", "/metrics":
		return 5
	case "/ws/queue":
		return 20
	case "/patient", "/pharmacy", "/doctor":
		return 10 // Dashboard batch fetch
	}

	if r.Method == http.MethodPost {
		return 30
	}

	return 5
}

// loginCost charges one attempt per login submission.
func loginCost(r *http.Request) int64 {
	if r.Method == http.MethodPost && r.URL.Path == "/login" {
		return 1
	}
	return 0
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logging.Error("Failed to encode JSON response", "error", err)
		}
	}
}
