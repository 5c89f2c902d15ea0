package server

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/giygas/hospital-portal/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		expectedCost int64
	}{
		{"Root", "GET", "/", 0},
		{"Login form", "GET", "/login", 0},
		{"Login submission", "POST", "/login", 50},
		{"Logout", "POST", "/logout", 0},
		{"Health endpoint", "GET", "/health", 5},
		{"Metrics endpoint", "GET", "/metrics", 5},
		{"Queue websocket", "GET", "/ws/queue", 20},
		{"Patient dashboard", "GET", "/patient", 10},
		{"Pharmacy dashboard", "GET", "/pharmacy", 10},
		{"Doctor dashboard", "GET", "/doctor", 10},
		{"Booking", "POST", "/patient/appointments", 30},
		{"Prescription status", "POST", "/pharmacy/prescriptions/7/status", 30},
		{"Call next", "POST", "/doctor/call-next", 30},
		{"Queue status", "GET", "/patient/appointments/12/queue", 5},
		{"Admin", "GET", "/admin", 5},
		{"Unknown", "GET", "/unknown", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("Expected cost %d for %s %s, got %d", tt.expectedCost, tt.method, tt.path, cost)
			}
		})
	}
}

func TestLoginCost(t *testing.T) {
	if cost := loginCost(httptest.NewRequest("POST", "/login", nil)); cost != 1 {
		t.Errorf("Expected login submission to cost 1, got %d", cost)
	}
	if cost := loginCost(httptest.NewRequest("GET", "/login", nil)); cost != 0 {
		t.Errorf("Expected login form to be free, got %d", cost)
	}
}

func TestRateLimiterRejectsWhenExhausted(t *testing.T) {
	limiter := NewRateLimiter("test", 0.001, 2, func(*http.Request) int64 { return 1 })
	handler := limiter.Handler(okHandler)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "10.0.0.1"
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("Expected X-RateLimit-Limit 2, got %q", rr.Header().Get("X-RateLimit-Limit"))
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.1"
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}
	if !strings.Contains(rr.Body.String(), "Rate limit exceeded") {
		t.Errorf("Expected rate limit message, got %s", rr.Body.String())
	}

	// Another client has its own bucket
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.2"
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected a different client to pass, got %d", rr.Code)
	}
}

func TestRateLimiterFreeRequestsSkipBuckets(t *testing.T) {
	limiter := NewRateLimiter("test", 1, 1, func(*http.Request) int64 { return 0 })
	handler := limiter.Handler(okHandler)

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected free request to pass, got %d", rr.Code)
		}
	}
	if limiter.Len() != 0 {
		t.Errorf("Expected no buckets for free requests, got %d", limiter.Len())
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter("test", 0.001, 10, func(*http.Request) int64 { return 1 })

	full := limiter.getBucket("10.0.0.1")
	drained := limiter.getBucket("10.0.0.2")
	drained.TakeAvailable(5)

	if full.Available() != full.Capacity() {
		t.Fatal("Expected untouched bucket to be full")
	}

	limiter.Cleanup()

	if limiter.Len() != 1 {
		t.Fatalf("Expected only the drained bucket to remain, got %d", limiter.Len())
	}
	if _, ok := limiter.clients["10.0.0.2"]; !ok {
		t.Error("Expected drained bucket to be kept")
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 100, MaxHeaderSize: 200}
	handler := RequestSizeMiddleware(cfg)(okHandler)

	tests := []struct {
		name     string
		body     string
		header   string
		expected int
	}{
		{"small request", "username=a", "", http.StatusOK},
		{"body too large", strings.Repeat("a", 101), "", http.StatusRequestEntityTooLarge},
		{"headers too large", "", strings.Repeat("h", 201), http.StatusRequestHeaderFieldsTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Length", strconv.Itoa(len(tt.body)))
			if tt.header != "" {
				req.Header.Set("X-Large", tt.header)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestRealIPMiddleware(t *testing.T) {
	var seen string
	handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "203.0.113.7" {
		t.Errorf("Expected first forwarded address, got %q", seen)
	}
}

func TestBlockDirectAccessMiddleware(t *testing.T) {
	handler := BlockDirectAccessMiddleware(okHandler)

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		expected   int
	}{
		{"localhost allowed", "127.0.0.1:5000", "", http.StatusOK},
		{"ipv6 localhost allowed", "[::1]:5000", "", http.StatusOK},
		{"proxied request allowed", "198.51.100.4:5000", "203.0.113.7", http.StatusOK},
		{"direct request blocked", "198.51.100.4:5000", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}
