package dashboard

import (
	"context"
	"errors"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/entities"
)

type DoctorCounts struct {
	Waiting   int `json:"waiting"`
	Completed int `json:"completed"`
}

type DoctorPage struct {
	DisplayName string                 `json:"display_name"`
	Profile     entities.Profile       `json:"profile"`
	Queue       []entities.Appointment `json:"queue"`
	Current     *entities.Appointment  `json:"current,omitempty"`
	Counts      DoctorCounts           `json:"counts"`
	Notices     []Notice               `json:"notices,omitempty"`
}

// LoadDoctor fetches today's queue and the profile.
func (l *Loader) LoadDoctor(ctx context.Context, s entities.Session) (DoctorPage, error) {
	var (
		queue   []entities.Appointment
		profile entities.Profile
	)

	var b batch
	b.fetch("queue", func() (err error) {
		queue, err = l.api.DoctorQueue(ctx, s.Token)
		return err
	})
	b.fetch("profile", func() (err error) {
		profile, err = l.api.Profile(ctx, s.Token)
		return err
	})

	notices, err := b.wait()
	if err != nil {
		return DoctorPage{}, err
	}

	page := DoctorPage{
		DisplayName: s.DisplayName,
		Profile:     profile,
		Queue:       nonNil(queue),
		Counts:      CountQueue(queue),
		Notices:     notices,
	}
	for i := range page.Queue {
		if InConsultation(page.Queue[i].Status) {
			current := page.Queue[i]
			page.Current = &current
			break
		}
	}
	return page, nil
}

// InConsultation reports whether the appointment is with the doctor now.
func InConsultation(status entities.AppointmentStatus) bool {
	return status == entities.AppointmentConsulting || status == entities.AppointmentInProgress
}

func CountQueue(queue []entities.Appointment) DoctorCounts {
	var counts DoctorCounts
	for _, a := range queue {
		switch {
		case a.Status.Upcoming():
			counts.Waiting++
		case a.Status == entities.AppointmentCompleted:
			counts.Completed++
		}
	}
	return counts
}

// expired turns an unauthorized API error into ErrSessionExpired.
func expired(err error) error {
	if apiclient.IsUnauthorized(err) {
		return errors.Join(ErrSessionExpired, err)
	}
	return err
}
