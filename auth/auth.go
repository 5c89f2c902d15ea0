// Package auth turns login credentials into a stored portal session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/logging"
	"github.com/giygas/hospital-portal/metrics"
	"github.com/giygas/hospital-portal/session"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrUnreachable        = errors.New("authentication service unreachable")
	ErrServer             = errors.New("authentication service error")
)

// Message returns the text shown on the login form for a Login error.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "Please enter your username and password."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrAccountLocked):
		return "Your account is locked. Please contact the hospital administrator."
	case errors.Is(err, ErrRateLimited):
		return "Too many login attempts. Please wait a moment and try again."
	case errors.Is(err, ErrUnreachable):
		return "Unable to reach the hospital service. Please try again later."
	default:
		return "Login failed due to a server error. Please try again later."
	}
}

var _ interfaces.Authenticator = (*Authenticator)(nil)

type Authenticator struct {
	api   interfaces.APIClient
	store interfaces.SessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewAuthenticator(api interfaces.APIClient, store interfaces.SessionStore, ttl time.Duration) *Authenticator {
	return &Authenticator{api: api, store: store, ttl: ttl, now: time.Now}
}

// Login authenticates against the hospital API and saves a complete
// session. Nothing is stored when any step fails, and there is no retry.
func (a *Authenticator) Login(ctx context.Context, username, password string) (entities.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.LoginTotals.WithLabelValues("missing_credentials").Inc()
		return entities.Session{}, ErrMissingCredentials
	}

	result, err := a.api.Login(ctx, entities.Credentials{Username: username, Password: password})
	if err != nil {
		err = classify(err)
		metrics.LoginTotals.WithLabelValues(resultLabel(err)).Inc()
		logging.Warn("login failed", "username", username, "error", err)
		return entities.Session{}, err
	}

	if result.Token == "" || result.UserID == "" {
		metrics.LoginTotals.WithLabelValues("server_error").Inc()
		logging.Error("login response is missing identity", "username", username, "user_id", result.UserID)
		return entities.Session{}, fmt.Errorf("%w: response is missing token or user id", ErrServer)
	}
	if !result.Role.Valid() {
		logging.Warn("login with a role the portal has no dashboard for", "username", username, "user_id", result.UserID)
	}

	now := a.now()
	s := entities.Session{
		ID:          session.NewID(),
		Token:       result.Token,
		UserID:      result.UserID,
		Role:        result.Role,
		DisplayName: result.DisplayName,
		CreatedAt:   now,
	}
	if a.ttl > 0 {
		s.ExpiresAt = now.Add(a.ttl)
	}

	if err := a.store.Save(ctx, s); err != nil {
		metrics.LoginTotals.WithLabelValues("server_error").Inc()
		return entities.Session{}, fmt.Errorf("%w: %v", ErrServer, err)
	}

	metrics.LoginTotals.WithLabelValues("success").Inc()
	logging.Info("user logged in", "user_id", s.UserID, "role", s.Role.String())
	return s, nil
}

// Logout clears the whole session.
func (a *Authenticator) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	a.store.Clear(ctx, sessionID)
}

// classify maps an API client error onto the login failure taxonomy.
func classify(err error) error {
	if errors.Is(err, apiclient.ErrNetwork) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	switch status := apiclient.StatusOf(err); {
	case status == http.StatusBadRequest, status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrInvalidCredentials
	case status == http.StatusLocked:
		return ErrAccountLocked
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountLocked):
		return "locked"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	default:
		return "server_error"
	}
}
