package entities

import (
	"encoding/json"
	"strings"
)

// AppointmentStatus is the backend's appointment lifecycle state.
type AppointmentStatus string

const (
	AppointmentScheduled  AppointmentStatus = "scheduled"
	AppointmentBooked     AppointmentStatus = "booked"
	AppointmentInQueue    AppointmentStatus = "in_queue"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentConsulting AppointmentStatus = "consulting"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
)

// Upcoming reports whether the appointment is still waiting to be seen.
func (s AppointmentStatus) Upcoming() bool {
	switch s {
	case AppointmentScheduled, AppointmentBooked, AppointmentInQueue:
		return true
	}
	return false
}

// Cancellable reports whether a cancel action is offered for this status.
func (s AppointmentStatus) Cancellable() bool {
	return s.Upcoming()
}

// Label is the human readable form, "in_progress" -> "IN PROGRESS".
func (s AppointmentStatus) Label() string {
	return strings.ToUpper(strings.ReplaceAll(string(s), "_", " "))
}

// Appointment is a booked visit as returned by the hospital API.
type Appointment struct {
	ID                FlexID            `json:"id"`
	DoctorName        string            `json:"doctor_name"`
	Department        string            `json:"department_name"`
	Date              string            `json:"appointment_date"`
	Time              string            `json:"appointment_time"`
	TokenNumber       int               `json:"token_number"`
	Status            AppointmentStatus `json:"status"`
	Symptoms          string            `json:"symptoms,omitempty"`
	Diagnosis         string            `json:"doctor_notes,omitempty"`
	PatientName       string            `json:"patient_name,omitempty"`
	QueuePosition     int               `json:"queue_position,omitempty"`
	EstimatedWaitTime int               `json:"estimated_wait_time,omitempty"`
}

// BookingRequest is the payload of a booking.
type BookingRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"appointment_date"`
	Time     string `json:"appointment_time"`
	Symptoms string `json:"symptoms"`
}

// BookingResult is what the portal keeps from a successful booking.
type BookingResult struct {
	Message     string      `json:"message"`
	Appointment Appointment `json:"appointment"`
	TokenNumber int         `json:"token_number"`
}

// QueueStatus is the live position of one appointment in a doctor's queue.
type QueueStatus struct {
	AppointmentID     FlexID            `json:"appointment_id"`
	QueuePosition     int               `json:"queue_position"`
	CurrentToken      int               `json:"current_token"`
	EstimatedWaitTime int               `json:"estimated_wait_time"`
	Status            AppointmentStatus `json:"status"`
}

// ConsultationRequest closes an active consultation.
type ConsultationRequest struct {
	AppointmentID string           `json:"appointment_id"`
	DoctorNotes   string           `json:"doctor_notes"`
	Medicines     []PrescribedItem `json:"prescription_data,omitempty"`
}

func (a *Appointment) UnmarshalJSON(data []byte) error {
	type plain Appointment
	var w struct {
		plain
		DepartmentAlt string `json:"department"`
		DiagnosisAlt  string `json:"diagnosis"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*a = Appointment(w.plain)
	a.Department = firstNonEmpty(a.Department, w.DepartmentAlt)
	a.Diagnosis = firstNonEmpty(a.Diagnosis, w.DiagnosisAlt)
	return nil
}
