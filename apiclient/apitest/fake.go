// Package apitest provides an in-memory interfaces.APIClient for tests.
package apitest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/interfaces"
)

var _ interfaces.APIClient = (*Client)(nil)

// Client serves canned data. Errors keyed by endpoint name ("appointments",
// "medicines", ...) make that call fail. Calls records every call made.
type Client struct {
	mu sync.Mutex

	LoginResponse    entities.LoginResult
	User             entities.Profile
	AppointmentList  []entities.Appointment
	PrescriptionList []entities.Prescription
	DoctorList       []entities.Doctor
	DepartmentList   []entities.Department
	MedicineList     []entities.Medicine
	QueueList        []entities.Appointment
	Booking          entities.BookingResult
	Position         entities.QueueStatus
	NextPatient      entities.Appointment

	Errors map[string]error
	Calls  []string
	stalls map[string]chan struct{}

	// Last request bodies
	LastBooking      entities.BookingRequest
	LastStatusUpdate entities.StatusUpdate
	LastConsultation entities.ConsultationRequest
	LastCancelled    string
	LastStatusFilter string
}

// Unauthorized is the error the API returns for an expired token.
func Unauthorized() error {
	return fmt.Errorf("fake: %w", &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Token has expired"})
}

// ServerError is a generic 500.
func ServerError() error {
	return fmt.Errorf("fake: %w", &apiclient.APIError{Status: http.StatusInternalServerError, Message: "internal error"})
}

// SetError makes the named endpoint fail with err.
func (c *Client) SetError(endpoint string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Errors == nil {
		c.Errors = make(map[string]error)
	}
	c.Errors[endpoint] = err
}

// CallCount reports how many times endpoint was called.
func (c *Client) CallCount(endpoint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.Calls {
		if call == endpoint {
			n++
		}
	}
	return n
}

// Stall makes calls to endpoint block until their context is done. The
// returned channel receives once per abandoned call.
func (c *Client) Stall(endpoint string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stalls == nil {
		c.stalls = make(map[string]chan struct{})
	}
	ch := make(chan struct{}, 16)
	c.stalls[endpoint] = ch
	return ch
}

func (c *Client) wait(ctx context.Context, endpoint string) error {
	c.mu.Lock()
	ch := c.stalls[endpoint]
	c.mu.Unlock()
	if ch == nil {
		return nil
	}
	<-ctx.Done()
	ch <- struct{}{}
	return ctx.Err()
}

func (c *Client) record(endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, endpoint)
	return c.Errors[endpoint]
}

func (c *Client) Login(_ context.Context, _ entities.Credentials) (entities.LoginResult, error) {
	if err := c.record("login"); err != nil {
		return entities.LoginResult{}, err
	}
	return c.LoginResponse, nil
}

func (c *Client) Profile(_ context.Context, _ string) (entities.Profile, error) {
	if err := c.record("profile"); err != nil {
		return entities.Profile{}, err
	}
	return c.User, nil
}

func (c *Client) Appointments(_ context.Context, _ string) ([]entities.Appointment, error) {
	if err := c.record("appointments"); err != nil {
		return nil, err
	}
	return c.AppointmentList, nil
}

func (c *Client) PatientPrescriptions(_ context.Context, _ string) ([]entities.Prescription, error) {
	if err := c.record("patient_prescriptions"); err != nil {
		return nil, err
	}
	return c.PrescriptionList, nil
}

func (c *Client) Doctors(_ context.Context, _ string) ([]entities.Doctor, error) {
	if err := c.record("doctors"); err != nil {
		return nil, err
	}
	return c.DoctorList, nil
}

func (c *Client) Departments(_ context.Context, _ string) ([]entities.Department, error) {
	if err := c.record("departments"); err != nil {
		return nil, err
	}
	return c.DepartmentList, nil
}

func (c *Client) BookAppointment(_ context.Context, _ string, req entities.BookingRequest) (entities.BookingResult, error) {
	if err := c.record("book_appointment"); err != nil {
		return entities.BookingResult{}, err
	}
	c.mu.Lock()
	c.LastBooking = req
	c.mu.Unlock()
	return c.Booking, nil
}

func (c *Client) CancelAppointment(_ context.Context, _ string, appointmentID string) error {
	if err := c.record("appointment"); err != nil {
		return err
	}
	c.mu.Lock()
	c.LastCancelled = appointmentID
	c.mu.Unlock()
	return nil
}

func (c *Client) QueueStatus(_ context.Context, _ string, appointmentID string) (entities.QueueStatus, error) {
	if err := c.record("queue_status"); err != nil {
		return entities.QueueStatus{}, err
	}
	status := c.Position
	if status.AppointmentID == "" {
		status.AppointmentID = entities.FlexID(appointmentID)
	}
	return status, nil
}

func (c *Client) PharmacyPrescriptions(_ context.Context, _ string, status string) ([]entities.Prescription, error) {
	if err := c.record("pharmacy_prescriptions"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.LastStatusFilter = status
	c.mu.Unlock()
	return c.PrescriptionList, nil
}

func (c *Client) Medicines(_ context.Context, _ string) ([]entities.Medicine, error) {
	if err := c.record("medicines"); err != nil {
		return nil, err
	}
	return c.MedicineList, nil
}

func (c *Client) UpdatePrescriptionStatus(_ context.Context, _ string, update entities.StatusUpdate) error {
	if err := c.record("prescription_status"); err != nil {
		return err
	}
	c.mu.Lock()
	c.LastStatusUpdate = update
	c.mu.Unlock()
	return nil
}

func (c *Client) DoctorQueue(ctx context.Context, _ string) ([]entities.Appointment, error) {
	if err := c.record("doctor_queue"); err != nil {
		return nil, err
	}
	if err := c.wait(ctx, "doctor_queue"); err != nil {
		return nil, err
	}
	return c.QueueList, nil
}

func (c *Client) CallNext(_ context.Context, _ string) (entities.Appointment, error) {
	if err := c.record("call_next"); err != nil {
		return entities.Appointment{}, err
	}
	return c.NextPatient, nil
}

func (c *Client) CompleteConsultation(_ context.Context, _ string, req entities.ConsultationRequest) error {
	if err := c.record("complete_consultation"); err != nil {
		return err
	}
	c.mu.Lock()
	c.LastConsultation = req
	c.mu.Unlock()
	return nil
}

func (c *Client) Health(_ context.Context) error {
	return c.record("health")
}
