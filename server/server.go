// Package server provides HTTP server management and lifecycle handling for the hospital portal.
// It includes server setup, middleware configuration, route management, and graceful shutdown
// capabilities with proper error handling and logging.
package server

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/giygas/hospital-portal/config"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/logging"
	"github.com/giygas/hospital-portal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// General limiter: 3 tokens per second, bursts up to 1000
	generalRate     = 3
	generalCapacity = 1000
)

// Server represents the HTTP server
type Server struct {
	server       *http.Server
	router       chi.Router
	config       *config.Config
	handler      interfaces.HTTPHandler
	sessions     func(http.Handler) http.Handler
	limiter      *RateLimiter
	loginLimiter *RateLimiter
}

// NewServer creates a new server instance. sessions resolves the session
// cookie and runs before every handler.
func NewServer(cfg *config.Config, handler interfaces.HTTPHandler, sessions func(http.Handler) http.Handler) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:       router,
		config:       cfg,
		handler:      handler,
		sessions:     sessions,
		limiter:      NewRateLimiter("general", generalRate, generalCapacity, getTokenCost),
		loginLimiter: NewRateLimiter("login", cfg.LoginRate, cfg.LoginBurst, loginCost),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.Env == config.EnvProduction {
		s.router.Use(BlockDirectAccessMiddleware) // Before RealIPMiddleware to see the original RemoteAddr
	}
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Current()))
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.limiter.Handler)
	s.router.Use(s.sessions)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	h := s.handler

	s.router.NotFound(h.NotFound)

	// Operations
	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	// Authentication
	s.router.Get("/", h.Root)
	s.router.Get("/login", h.LoginForm)
	s.router.With(s.loginLimiter.Handler).Post("/login", h.Login)
	s.router.Post("/logout", h.Logout)

	s.router.Route("/patient", func(r chi.Router) {
		r.Use(h.RequireRole(entities.RolePatient))
		r.Get("/", h.PatientDashboard)
		r.Post("/appointments", h.BookAppointment)
		r.Post("/appointments/{id}/cancel", h.CancelAppointment)
		r.Get("/appointments/{id}/queue", h.QueueStatus)
	})

	s.router.Route("/pharmacy", func(r chi.Router) {
		r.Use(h.RequireRole(entities.RolePharmacy))
		r.Get("/", h.PharmacyDashboard)
		r.Post("/prescriptions/{id}/status", h.UpdatePrescriptionStatus)
	})

	s.router.Route("/doctor", func(r chi.Router) {
		r.Use(h.RequireRole(entities.RoleDoctor))
		r.Get("/", h.DoctorDashboard)
		r.Post("/call-next", h.CallNext)
		r.Post("/appointments/{id}/complete", h.CompleteConsultation)
	})

	s.router.With(h.RequireRole(entities.RoleAdmin)).Get("/admin", h.AdminDashboard)

	s.router.With(h.RequireRole(entities.RoleDoctor, entities.RolePatient)).Get("/ws/queue", h.QueueFeed)
}

// RateLimiters returns the limiters so their buckets can be cleaned up on
// a schedule.
func (s *Server) RateLimiters() []*RateLimiter {
	return []*RateLimiter{s.limiter, s.loginLimiter}
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
