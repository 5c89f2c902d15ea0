// Package health reports the portal's own health and that of the hospital
// API behind it.
package health

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/logging"
)

// UnhealthyAfter is how long the portal may go without a successful
// upstream probe before it reports itself unhealthy.
const UnhealthyAfter = 5 * time.Minute

var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	api     interfaces.APIClient
	store   interfaces.SessionStore
	started time.Time
	now     func() time.Time

	mu          sync.RWMutex
	lastProbe   time.Time
	lastSuccess time.Time
	lastErr     error
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(api interfaces.APIClient, store interfaces.SessionStore) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		api:     api,
		store:   store,
		started: time.Now(),
		now:     time.Now,
	}
}

// ProbeUpstream pings the hospital API and records the outcome.
func (h *HealthCheckerImpl) ProbeUpstream(ctx context.Context) error {
	err := h.api.Health(ctx)
	now := h.now()

	h.mu.Lock()
	wasDown := h.lastErr != nil
	h.lastProbe = now
	h.lastErr = err
	if err == nil {
		h.lastSuccess = now
	}
	h.mu.Unlock()

	switch {
	case err != nil && !wasDown:
		logging.Warn("hospital API is unreachable", "error", err)
	case err == nil && wasDown:
		logging.Info("hospital API is reachable again")
	}
	return err
}

// HealthCheck returns HTTP-specific health data. An unreachable upstream
// degrades the portal; no successful probe for UnhealthyAfter makes it
// unhealthy.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	h.mu.RLock()
	lastProbe, lastSuccess, lastErr := h.lastProbe, h.lastSuccess, h.lastErr
	h.mu.RUnlock()

	now := h.now()
	reference := lastSuccess
	if reference.IsZero() {
		reference = h.started
	}

	upstream := "up"
	switch {
	case lastProbe.IsZero():
		upstream = "unknown"
	case lastErr != nil:
		upstream = "down"
	}

	switch {
	case now.Sub(reference) > UnhealthyAfter:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case upstream != "up":
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"uptime_seconds":  math.Round(now.Sub(h.started).Seconds()),
		"active_sessions": h.store.Count(),
		"upstream":        upstream,
	}
	if !lastProbe.IsZero() {
		data["last_probe"] = lastProbe.Format(time.RFC3339)
		data["probe_age_seconds"] = math.Round(now.Sub(lastProbe).Seconds())
	}
	if !lastSuccess.IsZero() {
		data["last_success"] = lastSuccess.Format(time.RFC3339)
	}
	if lastErr != nil {
		data["last_error"] = lastErr.Error()
	}

	return status, data, httpStatus
}
