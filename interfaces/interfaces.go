// Package interfaces defines core abstractions for the hospital portal
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/hospital-portal/entities"
)

// SessionStore defines the contract for server-side session storage.
// A stored session is always complete; Load never returns a partial one.
type SessionStore interface {
	Save(ctx context.Context, s entities.Session) error
	Load(ctx context.Context, id string) (entities.Session, bool)
	Clear(ctx context.Context, id string)

	// Maintenance
	Count() int
	Sweep(now time.Time) int
}

// APIClient is the single typed entry point to the hospital REST API.
// Every method except Login and Health sends the bearer token.
type APIClient interface {
	// Authentication
	Login(ctx context.Context, creds entities.Credentials) (entities.LoginResult, error)
	Profile(ctx context.Context, token string) (entities.Profile, error)

	// Patient
	Appointments(ctx context.Context, token string) ([]entities.Appointment, error)
	PatientPrescriptions(ctx context.Context, token string) ([]entities.Prescription, error)
	Doctors(ctx context.Context, token string) ([]entities.Doctor, error)
	Departments(ctx context.Context, token string) ([]entities.Department, error)
	BookAppointment(ctx context.Context, token string, req entities.BookingRequest) (entities.BookingResult, error)
	CancelAppointment(ctx context.Context, token string, appointmentID string) error
	QueueStatus(ctx context.Context, token string, appointmentID string) (entities.QueueStatus, error)

	// Pharmacy
	PharmacyPrescriptions(ctx context.Context, token string, status string) ([]entities.Prescription, error)
	Medicines(ctx context.Context, token string) ([]entities.Medicine, error)
	UpdatePrescriptionStatus(ctx context.Context, token string, update entities.StatusUpdate) error

	// Doctor
	DoctorQueue(ctx context.Context, token string) ([]entities.Appointment, error)
	CallNext(ctx context.Context, token string) (entities.Appointment, error)
	CompleteConsultation(ctx context.Context, token string, req entities.ConsultationRequest) error

	// Health pings the API without credentials.
	Health(ctx context.Context) error
}

// Authenticator turns credentials into a stored session and back.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (entities.Session, error)
	Logout(ctx context.Context, sessionID string)
}

// FormValidator checks user input before it reaches the hospital API.
type FormValidator interface {
	ValidateLogin(username, password string) error
	ValidateBooking(req entities.BookingRequest) error
	ValidateConsultation(req entities.ConsultationRequest) error
	ValidateSearch(query string) error
	ValidateStatusFilter(status string) (string, error)
	ValidateTargetStatus(status string) (entities.PrescriptionStatus, error)
	ValidateID(id string) error
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current portal health status
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// ProbeUpstream pings the hospital API and records the outcome
	ProbeUpstream(ctx context.Context) error
}

// Scheduler defines the contract for background maintenance jobs.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for the portal's HTTP handlers.
type HTTPHandler interface {
	// Access control
	RequireRole(roles ...entities.Role) func(http.Handler) http.Handler

	// Authentication
	Root(w http.ResponseWriter, r *http.Request)
	LoginForm(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)

	// Patient
	PatientDashboard(w http.ResponseWriter, r *http.Request)
	BookAppointment(w http.ResponseWriter, r *http.Request)
	CancelAppointment(w http.ResponseWriter, r *http.Request)
	QueueStatus(w http.ResponseWriter, r *http.Request)

	// Pharmacy
	PharmacyDashboard(w http.ResponseWriter, r *http.Request)
	UpdatePrescriptionStatus(w http.ResponseWriter, r *http.Request)

	// Doctor
	DoctorDashboard(w http.ResponseWriter, r *http.Request)
	CallNext(w http.ResponseWriter, r *http.Request)
	CompleteConsultation(w http.ResponseWriter, r *http.Request)

	// Admin
	AdminDashboard(w http.ResponseWriter, r *http.Request)

	// Live queue feed over a websocket
	QueueFeed(w http.ResponseWriter, r *http.Request)

	// Operations
	HealthCheck(w http.ResponseWriter, r *http.Request)
	NotFound(w http.ResponseWriter, r *http.Request)

	// Response helpers
	RespondWithJSON(w http.ResponseWriter, code int, payload any)
	RespondWithError(w http.ResponseWriter, code int, message string)
}
