package handlers

import (
	"errors"
	"net/http"

	"github.com/giygas/hospital-portal/auth"
	"github.com/giygas/hospital-portal/dashboard"
	"github.com/giygas/hospital-portal/logging"
	"github.com/giygas/hospital-portal/session"
)

type loginView struct {
	Username string `json:"username,omitempty"`
}

// loginResponse is what JSON clients get after signing in.
type loginResponse struct {
	Redirect    string `json:"redirect"`
	Role        string `json:"role"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Root sends a signed-in user to their dashboard and everyone else to the
// login page.
func (h *HTTPHandlerImpl) Root(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	view := dashboard.Route(s.Role)
	if view == dashboard.ViewLanding {
		h.render(w, r, http.StatusOK, "landing", pageData{Title: "Welcome", User: &s})
		return
	}
	http.Redirect(w, r, view.Path(), http.StatusSeeOther)
}

// LoginForm shows the login form, or redirects a signed-in user away.
func (h *HTTPHandlerImpl) LoginForm(w http.ResponseWriter, r *http.Request) {
	if s, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, dashboard.Route(s.Role).Path(), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", pageData{Title: "Sign in", Page: loginView{}})
}

// Login authenticates the submitted credentials. On failure the form is
// shown again with the username kept; on success the session cookie is set
// and the user goes to the dashboard of their role.
func (h *HTTPHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		logging.Warn("Unreadable login request", "error", err)
		h.renderLogin(w, r, http.StatusBadRequest, "", "The login request could not be read.")
		return
	}

	if err := h.validator.ValidateLogin(creds.Username, creds.Password); err != nil {
		logging.Warn("Unusual user input", "field", "login", "error", err)
		h.renderLogin(w, r, http.StatusBadRequest, creds.Username, sentence(err))
		return
	}

	s, err := h.auth.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.renderLogin(w, r, loginStatus(err), creds.Username, auth.Message(err))
		return
	}

	cookie, err := h.codec.Encode(s)
	if err != nil {
		logging.Error("Failed to sign session cookie", "error", err)
		h.auth.Logout(r.Context(), s.ID)
		h.renderLogin(w, r, http.StatusInternalServerError, creds.Username, auth.Message(auth.ErrServer))
		return
	}
	http.SetCookie(w, cookie)

	target := dashboard.Route(s.Role).Path()
	h.redirect(w, r, target, http.StatusOK, loginResponse{
		Redirect:    target,
		Role:        s.Role.String(),
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
	})
}

// Logout clears the whole session and the cookie.
func (h *HTTPHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	if s, ok := session.FromContext(r.Context()); ok {
		h.auth.Logout(r.Context(), s.ID)
		logging.Info("user logged out", "user_id", s.UserID, "role", s.Role.String())
	}
	http.SetCookie(w, h.codec.Expired())

	h.redirect(w, r, "/login?notice=logged_out", http.StatusOK, map[string]string{"redirect": "/login"})
}

func (h *HTTPHandlerImpl) renderLogin(w http.ResponseWriter, r *http.Request, status int, username, message string) {
	h.render(w, r, status, "login", pageData{
		Title: "Sign in",
		Error: message,
		Page:  loginView{Username: username},
	})
}

// loginStatus maps a login failure onto the status of the re-rendered form.
func loginStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
