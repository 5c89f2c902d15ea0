package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestLoggingMiddlewareSkipsHealthCheck(t *testing.T) {
	var logOutput strings.Builder
	logger := slog.New(slog.NewTextHandler(&logOutput, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			logOutput.Reset()
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			if rr.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rr.Code)
			}
			if logs := logOutput.String(); logs != "" {
				t.Errorf("expected no logs for %s, got: %s", path, logs)
			}
		})
	}
}

func TestLoggingMiddlewareLogsRequest(t *testing.T) {
	var logOutput strings.Builder
	logger := slog.New(slog.NewTextHandler(&logOutput, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Annotate(r.Context(), "role", "pharmacy", "user_id", "42")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/pharmacy?tab=inventory", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-1"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	logs := logOutput.String()
	for _, want := range []string{
		"request_id=req-1",
		"method=POST",
		"path=/pharmacy",
		"query=tab=inventory",
		"status_code=201",
		"bytes_written=7",
		"role=pharmacy",
		"user_id=42",
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("expected log to contain %q, got: %s", want, logs)
		}
	}
}

func TestLoggingMiddlewareUnknownRequestID(t *testing.T) {
	var logOutput strings.Builder
	logger := slog.New(slog.NewTextHandler(&logOutput, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil))

	if !strings.Contains(logOutput.String(), "request_id=unknown") {
		t.Errorf("expected request_id=unknown, got: %s", logOutput.String())
	}
	if strings.Contains(logOutput.String(), "query=") {
		t.Errorf("expected no query attribute, got: %s", logOutput.String())
	}
}

func TestAnnotateOutsideMiddleware(t *testing.T) {
	// Must not panic.
	Annotate(context.Background(), "role", "admin")
}
