// Package scheduler runs the portal's background maintenance: session
// sweeping, upstream health probes and rate limiter cleanup.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/logging"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	probeInterval   = time.Minute
	probeTimeout    = 10 * time.Second
	cleanupInterval = 5 * time.Minute
)

// Cleaner is anything with periodic housekeeping, e.g. the rate limiter.
type Cleaner interface {
	Cleanup()
}

// Scheduler runs maintenance jobs using injected dependencies
type Scheduler struct {
	store         interfaces.SessionStore
	health        interfaces.HealthChecker
	cleaners      []Cleaner
	sweepInterval time.Duration
	scheduler     *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(store interfaces.SessionStore, health interfaces.HealthChecker, sweepInterval time.Duration, cleaners ...Cleaner) *Scheduler {
	return &Scheduler{
		store:         store,
		health:        health,
		cleaners:      cleaners,
		sweepInterval: sweepInterval,
		scheduler:     gocron.NewScheduler(time.Local),
	}
}

// Start probes the hospital API once and schedules the recurring jobs. An
// unreachable API at startup is logged, not fatal.
func (s *Scheduler) Start() error {
	if err := s.probe(); err != nil {
		logging.Warn("Hospital API unreachable at startup", "error", err)
	}

	if _, err := s.scheduler.Every(s.sweepInterval).SingletonMode().Do(s.sweepSessions); err != nil {
		logging.Error("Failed to schedule session sweep", "error", err)
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	if _, err := s.scheduler.Every(probeInterval).SingletonMode().Do(func() { _ = s.probe() }); err != nil {
		logging.Error("Failed to schedule upstream probe", "error", err)
		return fmt.Errorf("failed to schedule upstream probe: %w", err)
	}

	if len(s.cleaners) > 0 {
		if _, err := s.scheduler.Every(cleanupInterval).SingletonMode().Do(s.cleanup); err != nil {
			logging.Error("Failed to schedule cleanup", "error", err)
			return fmt.Errorf("failed to schedule cleanup: %w", err)
		}
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started", "jobs", len(s.scheduler.Jobs()), "session_sweep_interval", s.sweepInterval.String())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sweepSessions() {
	if removed := s.store.Sweep(time.Now()); removed > 0 {
		logging.Info("Expired sessions removed", "count", removed, "remaining", s.store.Count())
	}
}

func (s *Scheduler) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return s.health.ProbeUpstream(ctx)
}

func (s *Scheduler) cleanup() {
	for _, c := range s.cleaners {
		c.Cleanup()
	}
}
