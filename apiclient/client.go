// Package apiclient is the portal's single typed client for the hospital
// REST API. Paths come from one Endpoints table; failures are classified
// into ErrNetwork, *APIError and ErrDecode.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/logging"
	"github.com/giygas/hospital-portal/metrics"
)

// maxResponseBody caps how much of a response is read.
const maxResponseBody = 4 << 20

var _ interfaces.APIClient = (*Client)(nil)

type Client struct {
	baseURL    string
	endpoints  Endpoints
	httpClient *http.Client
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, endpoints Endpoints) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoints returns the path table in use.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// call describes one request. name labels it in metrics and logs.
type call struct {
	name   string
	method string
	path   string
	query  url.Values
	token  string
	body   any
}

// do sends the request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, rc call) ([]byte, error) {
	target := c.baseURL + rc.path
	if len(rc.query) > 0 {
		target += "?" + rc.query.Encode()
	}

	var reader io.Reader
	if rc.body != nil {
		payload, err := json.Marshal(rc.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", rc.name, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", rc.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if rc.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rc.token != "" {
		req.Header.Set("Authorization", "Bearer "+rc.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPICall(rc.name, 0, time.Since(start))
		logging.Warn("hospital API request failed", "endpoint", rc.name, "method", rc.method, "error", err)
		return nil, fmt.Errorf("%s: %w: %v", rc.name, ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	metrics.ObserveAPICall(rc.name, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", rc.name, ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, body)
		logging.Debug("hospital API error response", "endpoint", rc.name, "status", resp.StatusCode, "message", apiErr.Message)
		return nil, fmt.Errorf("%s: %w", rc.name, apiErr)
	}

	return body, nil
}

// loginWire covers both login response shapes the backends produce.
type loginWire struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	User        struct {
		ID       entities.FlexID `json:"id"`
		FullName string          `json:"full_name"`
		Name     string          `json:"name"`
		Username string          `json:"username"`
		Role     string          `json:"role"`
	} `json:"user"`
}

// Login exchanges credentials for a token and the user's identity. A 2xx
// response without a token is ErrDecode.
func (c *Client) Login(ctx context.Context, creds entities.Credentials) (entities.LoginResult, error) {
	body, err := c.do(ctx, call{
		name:   "login",
		method: http.MethodPost,
		path:   c.endpoints.Login,
		body:   creds,
	})
	if err != nil {
		return entities.LoginResult{}, err
	}

	var w loginWire
	if err := json.Unmarshal(body, &w); err != nil {
		return entities.LoginResult{}, fmt.Errorf("login: %w: %v", ErrDecode, err)
	}

	result := entities.LoginResult{
		Token:  w.AccessToken,
		UserID: w.User.ID.String(),
		Role:   entities.ParseRole(w.User.Role),
	}
	if result.Token == "" {
		result.Token = w.Token
	}
	for _, name := range []string{w.User.FullName, w.User.Name, w.User.Username, creds.Username} {
		if name != "" {
			result.DisplayName = name
			break
		}
	}

	if result.Token == "" {
		return entities.LoginResult{}, fmt.Errorf("login: %w: response carries no token", ErrDecode)
	}
	return result, nil
}

func (c *Client) Profile(ctx context.Context, token string) (entities.Profile, error) {
	body, err := c.do(ctx, call{name: "profile", method: http.MethodGet, path: c.endpoints.Profile, token: token})
	if err != nil {
		return entities.Profile{}, err
	}
	return decodeObject[entities.Profile](body, "user")
}

func (c *Client) Appointments(ctx context.Context, token string) ([]entities.Appointment, error) {
	body, err := c.do(ctx, call{name: "appointments", method: http.MethodGet, path: c.endpoints.Appointments, token: token})
	if err != nil {
		return nil, err
	}
	return decodeList[entities.Appointment](body, "appointments")
}

func (c *Client) PatientPrescriptions(ctx context.Context, token string) ([]entities.Prescription, error) {
	body, err := c.do(ctx, call{name: "patient_prescriptions", method: http.MethodGet, path: c.endpoints.PatientPrescriptions, token: token})
	if err != nil {
		return nil, err
	}
	return decodeList[entities.Prescription](body, "prescriptions")
}

func (c *Client) Doctors(ctx context.Context, token string) ([]entities.Doctor, error) {
	body, err := c.do(ctx, call{name: "doctors", method: http.MethodGet, path: c.endpoints.Doctors, token: token})
	if err != nil {
		return nil, err
	}
	return decodeList[entities.Doctor](body, "doctors")
}

func (c *Client) Departments(ctx context.Context, token string) ([]entities.Department, error) {
	body, err := c.do(ctx, call{name: "departments", method: http.MethodGet, path: c.endpoints.Departments, token: token})
	if err != nil {
		return nil, err
	}
	return decodeList[entities.Department](body, "departments")
}

// BookAppointment books a visit. The token number is taken from the
// response root or from the returned appointment.
func (c *Client) BookAppointment(ctx context.Context, token string, req entities.BookingRequest) (entities.BookingResult, error) {
	body, err := c.do(ctx, call{
		name:   "book_appointment",
		method: http.MethodPost,
		path:   c.endpoints.BookAppointment,
		token:  token,
		body:   req,
	})
	if err != nil {
		return entities.BookingResult{}, err
	}

	result, err := decodeObject[entities.BookingResult](body, "")
	if err != nil {
		return entities.BookingResult{}, err
	}
	if result.TokenNumber == 0 {
		result.TokenNumber = result.Appointment.TokenNumber
	}
	return result, nil
}

// CancelAppointment sets the appointment's status to cancelled.
func (c *Client) CancelAppointment(ctx context.Context, token string, appointmentID string) error {
	_, err := c.do(ctx, call{
		name:   "appointment",
		method: http.MethodPut,
		path:   withID(c.endpoints.Appointment, appointmentID),
		token:  token,
		body:   map[string]string{"status": string(entities.AppointmentCancelled)},
	})
	return err
}

func (c *Client) QueueStatus(ctx context.Context, token string, appointmentID string) (entities.QueueStatus, error) {
	body, err := c.do(ctx, call{
		name:   "queue_status",
		method: http.MethodGet,
		path:   withID(c.endpoints.QueueStatus, appointmentID),
		token:  token,
	})
	if err != nil {
		return entities.QueueStatus{}, err
	}

	status, err := decodeObject[entities.QueueStatus](body, "queue_status")
	if err != nil {
		return entities.QueueStatus{}, err
	}
	if status.AppointmentID == "" {
		status.AppointmentID = entities.FlexID(appointmentID)
	}
	return status, nil
}

// PharmacyPrescriptions lists prescriptions, filtered by status unless
// status is empty or "all".
func (c *Client) PharmacyPrescriptions(ctx context.Context, token string, status string) ([]entities.Prescription, error) {
	if status == "" {
		status = "all"
	}
	body, err := c.do(ctx, call{
		name:   "pharmacy_prescriptions",
		method: http.MethodGet,
		path:   c.endpoints.PharmacyPrescriptions,
		query:  url.Values{"status": {status}},
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[entities.Prescription](body, "prescriptions")
}

func (c *Client) Medicines(ctx context.Context, token string) ([]entities.Medicine, error) {
	body, err := c.do(ctx, call{name: "medicines", method: http.MethodGet, path: c.endpoints.Medicines, token: token})
	if err != nil {
		return nil, err
	}
	return decodeList[entities.Medicine](body, "medicines")
}

// UpdatePrescriptionStatus sends a status transition. The id travels both
// in the path and in the body so either backend variant accepts it.
func (c *Client) UpdatePrescriptionStatus(ctx context.Context, token string, update entities.StatusUpdate) error {
	if update.PrescriptionID == "" {
		return errors.New("prescription id is required")
	}
	_, err := c.do(ctx, call{
		name:   "prescription_status",
		method: http.MethodPut,
		path:   withID(c.endpoints.PrescriptionStatus, update.PrescriptionID),
		token:  token,
		body:   update,
	})
	return err
}

func (c *Client) DoctorQueue(ctx context.Context, token string) ([]entities.Appointment, error) {
	body, err := c.do(ctx, call{name: "doctor_queue", method: http.MethodGet, path: c.endpoints.DoctorQueue, token: token})
	if err != nil {
		return nil, err
	}
	return decodeList[entities.Appointment](body, "queue", "appointments")
}

// CallNext calls the next patient in the doctor's queue and returns the
// called appointment.
func (c *Client) CallNext(ctx context.Context, token string) (entities.Appointment, error) {
	body, err := c.do(ctx, call{name: "call_next", method: http.MethodPost, path: c.endpoints.CallNext, token: token})
	if err != nil {
		return entities.Appointment{}, err
	}

	var w struct {
		Appointment *entities.Appointment `json:"appointment"`
		TokenNumber int                   `json:"token_number"`
	}
	if err := json.Unmarshal(body, &w); err != nil {
		return entities.Appointment{}, fmt.Errorf("call_next: %w: %v", ErrDecode, err)
	}
	if w.Appointment == nil {
		return decodeObject[entities.Appointment](body, "")
	}
	if w.Appointment.TokenNumber == 0 {
		w.Appointment.TokenNumber = w.TokenNumber
	}
	return *w.Appointment, nil
}

func (c *Client) CompleteConsultation(ctx context.Context, token string, req entities.ConsultationRequest) error {
	_, err := c.do(ctx, call{
		name:   "complete_consultation",
		method: http.MethodPost,
		path:   c.endpoints.CompleteConsultation,
		token:  token,
		body:   req,
	})
	return err
}

// Health pings the API without credentials.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, call{name: "health", method: http.MethodGet, path: c.endpoints.Health})
	return err
}
