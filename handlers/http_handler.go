// Package handlers provides the portal's HTTP request handlers.
// This file holds the handler type, its dependencies and the response helpers
// shared by every dashboard.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/dashboard"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/logging"
	"github.com/giygas/hospital-portal/session"
	"github.com/gorilla/websocket"
)

const defaultQueuePoll = 5 * time.Second

// Dependencies are the collaborators the handlers are built from.
type Dependencies struct {
	API       interfaces.APIClient
	Auth      interfaces.Authenticator
	Store     interfaces.SessionStore
	Codec     *session.CookieCodec
	Validator interfaces.FormValidator
	Health    interfaces.HealthChecker

	// QueuePoll is how often the live queue feed refreshes.
	QueuePoll time.Duration
}

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	api       interfaces.APIClient
	auth      interfaces.Authenticator
	store     interfaces.SessionStore
	codec     *session.CookieCodec
	validator interfaces.FormValidator
	health    interfaces.HealthChecker

	loader    *dashboard.Loader
	inflight  *session.InFlight
	templates map[string]*template.Template
	upgrader  websocket.Upgrader
	queuePoll time.Duration
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(deps Dependencies) interfaces.HTTPHandler {
	poll := deps.QueuePoll
	if poll <= 0 {
		poll = defaultQueuePoll
	}

	return &HTTPHandlerImpl{
		api:       deps.API,
		auth:      deps.Auth,
		store:     deps.Store,
		codec:     deps.Codec,
		validator: deps.Validator,
		health:    deps.Health,
		loader:    dashboard.NewLoader(deps.API),
		inflight:  session.NewInFlight(),
		templates: mustParseTemplates(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		queuePoll: poll,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// pageData is what every template receives.
type pageData struct {
	Title  string
	User   *entities.Session
	Notice string
	Error  string
	Page   any
}

// Notices shown after a redirect, keyed by the "notice" query parameter.
// Only known keys are rendered so the query string cannot inject text.
var flashNotices = map[string]string{
	"booked":     "Appointment booked successfully.",
	"cancelled":  "Appointment cancelled.",
	"updated":    "Prescription status updated.",
	"called":     "Next patient called.",
	"completed":  "Consultation completed.",
	"expired":    "Your session has expired. Please log in again.",
	"logged_out": "You have been logged out.",
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// wantsJSON reports whether the client asked for JSON instead of HTML.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// render writes the named page as HTML, or its Page as JSON when the client
// asked for JSON. Error statuses become the JSON error shape.
func (h *HTTPHandlerImpl) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if wantsJSON(r) {
		if status >= http.StatusBadRequest {
			h.RespondWithError(w, status, data.Error)
			return
		}
		h.RespondWithJSON(w, status, data.Page)
		return
	}

	if data.Notice == "" {
		data.Notice = flashNotices[r.URL.Query().Get("notice")]
	}

	tmpl, ok := h.templates[name]
	if !ok {
		logging.Error("Unknown template", "template", name)
		h.RespondWithError(w, http.StatusInternalServerError, "Page not available")
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.Error("Failed to render template", "template", name, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Page not available")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// redirect finishes a successful POST: browsers follow a 303 to location,
// JSON clients get payload with a Location header.
func (h *HTTPHandlerImpl) redirect(w http.ResponseWriter, r *http.Request, location string, status int, payload any) {
	if wantsJSON(r) {
		w.Header().Set("Location", location)
		h.RespondWithJSON(w, status, payload)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// expireSession clears the whole session and sends the user back to the
// login page.
func (h *HTTPHandlerImpl) expireSession(w http.ResponseWriter, r *http.Request, s entities.Session) {
	h.auth.Logout(r.Context(), s.ID)
	http.SetCookie(w, h.codec.Expired())
	logging.Info("Session expired by hospital API", "user_id", s.UserID, "role", s.Role.String())

	if wantsJSON(r) {
		h.RespondWithError(w, http.StatusUnauthorized, flashNotices["expired"])
		return
	}
	http.Redirect(w, r, "/login?notice=expired", http.StatusSeeOther)
}

// sessionExpired reports whether err means the hospital API rejected the
// session token.
func sessionExpired(err error) bool {
	return errors.Is(err, dashboard.ErrSessionExpired) || apiclient.IsUnauthorized(err)
}

// actionStatus maps a failed API action to the portal's response status.
func actionStatus(err error) int {
	switch status := apiclient.StatusOf(err); {
	case status >= 400 && status < 500:
		return status
	case errors.Is(err, apiclient.ErrNetwork):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// RequireRole lets through only sessions whose role is one of roles.
// Without a session browsers go to the login page; a session with another
// role goes to its own dashboard.
func (h *HTTPHandlerImpl) RequireRole(roles ...entities.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := session.FromContext(r.Context())
			if !ok {
				if wantsJSON(r) {
					h.RespondWithError(w, http.StatusUnauthorized, "Please log in")
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if !slices.Contains(roles, s.Role) {
				if wantsJSON(r) {
					h.RespondWithError(w, http.StatusForbidden, "This page is not available for your role")
					return
				}
				http.Redirect(w, r, dashboard.Route(s.Role).Path(), http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// currentSession returns the session RequireRole already checked.
func currentSession(r *http.Request) entities.Session {
	s, _ := session.FromContext(r.Context())
	return s
}

// NotFound answers unknown routes in the JSON error shape.
func (h *HTTPHandlerImpl) NotFound(w http.ResponseWriter, r *http.Request) {
	h.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path))
}

// HealthCheck returns portal and upstream health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.health.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := "unknown"
	if seconds, ok := details["uptime_seconds"].(float64); ok {
		uptime = formatUptimeHuman(time.Duration(seconds * float64(time.Second)))
	}

	response := HealthResponse{
		Status: status,
		Uptime: uptime,
		Data:   details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory_mb":  m.Alloc / 1024 / 1024,
			"in_flight":  h.inflight.Len(),
			"go_version": runtime.Version(),
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
