package dashboard

import (
	"context"
	"strings"

	"github.com/giygas/hospital-portal/entities"
)

// PatientTab is a section of the patient dashboard.
type PatientTab string

const (
	PatientOverview      PatientTab = "overview"
	PatientAppointments  PatientTab = "appointments"
	PatientBook          PatientTab = "book"
	PatientPrescriptions PatientTab = "prescriptions"
)

// PatientTabs lists the tabs in display order.
func PatientTabs() []PatientTab {
	return []PatientTab{PatientOverview, PatientAppointments, PatientBook, PatientPrescriptions}
}

// ParsePatientTab falls back to the overview for unknown tabs.
func ParsePatientTab(s string) PatientTab {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, tab := range PatientTabs() {
		if string(tab) == s {
			return tab
		}
	}
	return PatientOverview
}

// AppointmentItem is an appointment plus what the patient may do with it.
type AppointmentItem struct {
	entities.Appointment
	CanCancel    bool `json:"can_cancel"`
	CanTrackLive bool `json:"can_track_live"`
}

// PatientCounts are the overview figures.
type PatientCounts struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
}

type PatientPage struct {
	Tab              PatientTab              `json:"tab"`
	DisplayName      string                  `json:"display_name"`
	Profile          entities.Profile        `json:"profile"`
	AppointmentBadge int                     `json:"appointment_badge"`
	Counts           PatientCounts           `json:"counts"`
	Appointments     []AppointmentItem       `json:"appointments"`
	Doctors          []entities.Doctor       `json:"doctors"`
	Departments      []entities.Department   `json:"departments"`
	Prescriptions    []entities.Prescription `json:"prescriptions"`
	Notices          []Notice                `json:"notices,omitempty"`
}

// LoadPatient fetches appointments, prescriptions, doctors, departments and
// the profile concurrently.
func (l *Loader) LoadPatient(ctx context.Context, s entities.Session, tab PatientTab) (PatientPage, error) {
	var (
		appointments  []entities.Appointment
		prescriptions []entities.Prescription
		doctors       []entities.Doctor
		departments   []entities.Department
		profile       entities.Profile
	)

	var b batch
	b.fetch("appointments", func() (err error) {
		appointments, err = l.api.Appointments(ctx, s.Token)
		return err
	})
	b.fetch("prescriptions", func() (err error) {
		prescriptions, err = l.api.PatientPrescriptions(ctx, s.Token)
		return err
	})
	b.fetch("doctors", func() (err error) {
		doctors, err = l.api.Doctors(ctx, s.Token)
		return err
	})
	b.fetch("departments", func() (err error) {
		departments, err = l.api.Departments(ctx, s.Token)
		return err
	})
	b.fetch("profile", func() (err error) {
		profile, err = l.api.Profile(ctx, s.Token)
		return err
	})

	notices, err := b.wait()
	if err != nil {
		return PatientPage{}, err
	}

	page := PatientPage{
		Tab:              tab,
		DisplayName:      s.DisplayName,
		Profile:          profile,
		AppointmentBadge: len(appointments),
		Counts:           CountAppointments(appointments),
		Appointments:     make([]AppointmentItem, 0, len(appointments)),
		Doctors:          nonNil(doctors),
		Departments:      nonNil(departments),
		Prescriptions:    nonNil(prescriptions),
		Notices:          notices,
	}
	for _, a := range appointments {
		page.Appointments = append(page.Appointments, AppointmentItem{
			Appointment:  a,
			CanCancel:    a.Status.Cancellable(),
			CanTrackLive: a.Status.Upcoming(),
		})
	}
	return page, nil
}

// CountAppointments computes the overview figures.
func CountAppointments(appointments []entities.Appointment) PatientCounts {
	counts := PatientCounts{Total: len(appointments)}
	for _, a := range appointments {
		switch {
		case a.Status.Upcoming():
			counts.Upcoming++
		case a.Status == entities.AppointmentCompleted:
			counts.Completed++
		}
	}
	return counts
}

// LoadQueueStatus returns the live queue position of one appointment.
func (l *Loader) LoadQueueStatus(ctx context.Context, s entities.Session, appointmentID string) (entities.QueueStatus, error) {
	status, err := l.api.QueueStatus(ctx, s.Token, appointmentID)
	if err != nil {
		return entities.QueueStatus{}, expired(err)
	}
	return status, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
