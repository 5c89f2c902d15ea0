package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/auth"
	"github.com/giygas/hospital-portal/config"
	"github.com/giygas/hospital-portal/handlers"
	"github.com/giygas/hospital-portal/health"
	"github.com/giygas/hospital-portal/logging"
	"github.com/giygas/hospital-portal/scheduler"
	"github.com/giygas/hospital-portal/server"
	"github.com/giygas/hospital-portal/session"
	"github.com/giygas/hospital-portal/validation"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env.String(),
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.Error("Portal stopped with error", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	endpoints, err := apiclient.LoadEndpoints(cfg.EndpointsFile)
	if err != nil {
		return err
	}
	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, endpoints)

	store := session.NewMemoryStore(cfg.SessionTTL)
	codec := session.NewCookieCodec(cfg.SessionSecret, cfg.Env != config.EnvDevelopment && cfg.Env != config.EnvTest)
	healthChecker := health.NewHealthChecker(api, store)

	handler := handlers.NewHTTPHandler(handlers.Dependencies{
		API:       api,
		Auth:      auth.NewAuthenticator(api, store, cfg.SessionTTL),
		Store:     store,
		Codec:     codec,
		Validator: validation.NewFormValidator(),
		Health:    healthChecker,
		QueuePoll: cfg.QueuePollInterval,
	})

	srv := server.NewServer(cfg, handler, session.Middleware(store, codec))

	var cleaners []scheduler.Cleaner
	for _, limiter := range srv.RateLimiters() {
		cleaners = append(cleaners, limiter)
	}
	jobs := scheduler.NewScheduler(store, healthChecker, cfg.SessionSweepInterval, cleaners...)
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	logging.Info("Hospital portal configured",
		"env", cfg.Env.String(),
		"api_base_url", cfg.APIBaseURL,
		"session_ttl", cfg.SessionTTL.String(),
	)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		logging.Info("Signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
