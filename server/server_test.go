package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/giygas/hospital-portal/apiclient/apitest"
	"github.com/giygas/hospital-portal/auth"
	"github.com/giygas/hospital-portal/config"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/handlers"
	"github.com/giygas/hospital-portal/health"
	"github.com/giygas/hospital-portal/session"
	"github.com/giygas/hospital-portal/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8080",
		Address:        "127.0.0.1",
		Env:            config.EnvTest,
		LogLevel:       "info",
		MaxRequestBody: 1048576,
		MaxHeaderSize:  1048576,
		SessionTTL:     time.Hour,
		LoginRate:      100,
		LoginBurst:     100,
	}
}

func newTestServer(t *testing.T, role entities.Role) (*Server, *apitest.Client, *session.MemoryStore) {
	t.Helper()
	return newTestServerWithConfig(t, role, testConfig())
}

func newTestServerWithConfig(t *testing.T, role entities.Role, cfg *config.Config) (*Server, *apitest.Client, *session.MemoryStore) {
	t.Helper()

	api := &apitest.Client{
		LoginResponse: entities.LoginResult{Token: "token-1", UserID: "1", Role: role, DisplayName: "Test User"},
		User:          entities.Profile{ID: "1", Username: "patient1", FullName: "Test User", Role: role},
		AppointmentList: []entities.Appointment{
			{ID: "1", DoctorName: "Dr. Smith", Status: entities.AppointmentScheduled},
			{ID: "2", DoctorName: "Dr. Jones", Status: entities.AppointmentCompleted},
			{ID: "3", DoctorName: "Dr. Lee", Status: entities.AppointmentInQueue},
		},
	}

	store := session.NewMemoryStore(time.Hour)
	codec := session.NewCookieCodec(testSecret, false)

	handler := handlers.NewHTTPHandler(handlers.Dependencies{
		API:       api,
		Auth:      auth.NewAuthenticator(api, store, time.Hour),
		Store:     store,
		Codec:     codec,
		Validator: validation.NewFormValidator(),
		Health:    health.NewHealthChecker(api, store),
	})

	return NewServer(cfg, handler, session.Middleware(store, codec)), api, store
}

func login(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()

	form := url.Values{"username": {"patient1"}, "password": {"password"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected login to redirect, got %d: %s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("Expected a session cookie after login")
	return nil
}

func TestNewServer(t *testing.T) {
	srv, _, _ := newTestServer(t, entities.RolePatient)

	if srv.server.Addr != "127.0.0.1:8080" {
		t.Errorf("Expected address 127.0.0.1:8080, got %s", srv.server.Addr)
	}
	if srv.server.ReadTimeout != 15*time.Second {
		t.Errorf("Expected read timeout 15s, got %s", srv.server.ReadTimeout)
	}
	if len(srv.RateLimiters()) != 2 {
		t.Errorf("Expected general and login limiters, got %d", len(srv.RateLimiters()))
	}
}

func TestLoginRoutesToRoleDashboard(t *testing.T) {
	tests := []struct {
		role     entities.Role
		location string
	}{
		{entities.RolePatient, "/patient"},
		{entities.RolePharmacy, "/pharmacy"},
		{entities.RoleDoctor, "/doctor"},
		{entities.RoleAdmin, "/admin"},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			srv, _, store := newTestServer(t, tt.role)

			form := url.Values{"username": {"user"}, "password": {"password"}}
			req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)

			if rr.Code != http.StatusSeeOther {
				t.Fatalf("Expected 303, got %d", rr.Code)
			}
			if loc := rr.Header().Get("Location"); loc != tt.location {
				t.Errorf("Expected redirect to %s, got %s", tt.location, loc)
			}
			if store.Count() != 1 {
				t.Errorf("Expected one stored session, got %d", store.Count())
			}
		})
	}
}

func TestPatientScenario(t *testing.T) {
	srv, api, _ := newTestServer(t, entities.RolePatient)
	cookie := login(t, srv)

	req := httptest.NewRequest("GET", "/patient", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var page struct {
		AppointmentBadge int `json:"appointment_badge"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to decode dashboard: %v", err)
	}
	if page.AppointmentBadge != len(api.AppointmentList) {
		t.Errorf("Expected badge %d, got %d", len(api.AppointmentList), page.AppointmentBadge)
	}
}

func TestDashboardRendersHTML(t *testing.T) {
	srv, _, _ := newTestServer(t, entities.RolePatient)
	cookie := login(t, srv)

	req := httptest.NewRequest("GET", "/patient?tab=appointments", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML, got %s", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{"Appointments (3)", "Dr. Smith", "Test User"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

func TestAccessControl(t *testing.T) {
	srv, _, _ := newTestServer(t, entities.RolePatient)
	cookie := login(t, srv)

	tests := []struct {
		name     string
		path     string
		cookie   *http.Cookie
		location string
	}{
		{"no session goes to login", "/patient", nil, "/login"},
		{"root without session", "/", nil, "/login"},
		{"root with session", "/", cookie, "/patient"},
		{"other role goes to own dashboard", "/pharmacy", cookie, "/patient"},
		{"admin page refused", "/admin", cookie, "/patient"},
		{"login form with session", "/login", cookie, "/patient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)

			if rr.Code != http.StatusSeeOther {
				t.Fatalf("Expected 303, got %d", rr.Code)
			}
			if loc := rr.Header().Get("Location"); loc != tt.location {
				t.Errorf("Expected redirect to %s, got %s", tt.location, loc)
			}
		})
	}
}

func TestUnknownRoleLandsOnWelcomePage(t *testing.T) {
	srv, _, store := newTestServer(t, entities.ParseRole("receptionist"))

	form := url.Values{"username": {"frontdesk"}, "password": {"password"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("Expected redirect to /, got %d %s: %s", rr.Code, rr.Header().Get("Location"), rr.Body.String())
	}
	if store.Count() != 1 {
		t.Fatalf("Expected a stored session, got %d", store.Count())
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("Expected a session cookie after login")
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected landing page 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "no dashboard in this portal") {
		t.Errorf("Expected the landing page, got %s", rr.Body.String())
	}

	// Dashboards send the user back to the landing page
	for _, path := range []string{"/patient", "/doctor", "/pharmacy", "/admin"} {
		req = httptest.NewRequest("GET", path, nil)
		req.AddCookie(cookie)
		rr = httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
			t.Errorf("%s: expected redirect to /, got %d %s", path, rr.Code, rr.Header().Get("Location"))
		}
	}
}

func TestLogoutClearsSession(t *testing.T) {
	srv, _, store := newTestServer(t, entities.RolePatient)
	cookie := login(t, srv)

	req := httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rr.Code)
	}
	if store.Count() != 0 {
		t.Errorf("Expected no sessions after logout, got %d", store.Count())
	}

	// The old cookie no longer opens the dashboard
	req = httptest.NewRequest("GET", "/patient", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("Expected redirect to /login, got %s", loc)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	srv, _, _ := newTestServer(t, entities.RolePatient)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON error body: %v", err)
	}
	if body["code"] != float64(http.StatusNotFound) {
		t.Errorf("Expected code 404, got %v", body["code"])
	}
}

func TestOperationsEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, entities.RolePatient)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected /health 200 before any probe, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"degraded"`) {
		t.Errorf("Expected degraded before the first probe, got %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected /metrics 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "portal_logins_total") && !strings.Contains(rr.Body.String(), "http_request_in_flight") {
		t.Error("Expected portal metrics in /metrics output")
	}
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRate = 0.001
	cfg.LoginBurst = 1
	srv, _, _ := newTestServerWithConfig(t, entities.RolePatient, cfg)

	for i, expected := range []int{http.StatusSeeOther, http.StatusTooManyRequests} {
		form := url.Values{"username": {"patient1"}, "password": {"password"}}
		req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		if rr.Code != expected {
			t.Errorf("Attempt %d: expected %d, got %d", i+1, expected, rr.Code)
		}
	}

	// The login form itself is never limited
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/login", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected login form 200, got %d", rr.Code)
	}
}
