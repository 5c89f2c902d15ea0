package handlers

import (
	"net/http"
	"time"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/dashboard"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/logging"
	"github.com/go-chi/chi/v5"
)

const msgInProgress = "This action is already in progress. Please wait."

// patientView adds what only the HTML page needs to the dashboard.
type patientView struct {
	dashboard.PatientPage
	Tabs  []dashboard.PatientTab  `json:"-"`
	Form  entities.BookingRequest `json:"-"`
	Today string                  `json:"-"`
}

// PatientDashboard shows the patient dashboard on the tab named by ?tab=.
func (h *HTTPHandlerImpl) PatientDashboard(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	tab := dashboard.ParsePatientTab(r.URL.Query().Get("tab"))
	h.showPatient(w, r, s, tab, http.StatusOK, "", entities.BookingRequest{})
}

func (h *HTTPHandlerImpl) showPatient(w http.ResponseWriter, r *http.Request, s entities.Session, tab dashboard.PatientTab, status int, message string, form entities.BookingRequest) {
	page, err := h.loader.LoadPatient(r.Context(), s, tab)
	if err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Error("Failed to load patient dashboard", "user_id", s.UserID, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "The dashboard could not be loaded")
		return
	}

	h.render(w, r, status, "patient", pageData{
		Title: "Patient dashboard",
		User:  &s,
		Error: message,
		Page: patientView{
			PatientPage: page,
			Tabs:        dashboard.PatientTabs(),
			Form:        form,
			Today:       time.Now().Format(time.DateOnly),
		},
	})
}

// BookAppointment books an appointment from the booking form.
func (h *HTTPHandlerImpl) BookAppointment(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)

	req, err := readBooking(r)
	if err != nil {
		logging.Warn("Unreadable booking request", "error", err)
		h.showPatient(w, r, s, dashboard.PatientBook, http.StatusBadRequest, "The booking request could not be read.", req)
		return
	}

	if err := h.validator.ValidateBooking(req); err != nil {
		logging.Warn("Unusual user input", "field", "booking", "error", err)
		h.showPatient(w, r, s, dashboard.PatientBook, http.StatusBadRequest, sentence(err), req)
		return
	}

	done, ok := h.inflight.TryBegin(s.ID, "book")
	if !ok {
		h.showPatient(w, r, s, dashboard.PatientBook, http.StatusConflict, msgInProgress, req)
		return
	}
	defer done()

	result, err := h.api.BookAppointment(r.Context(), s.Token, req)
	if err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Warn("Booking failed", "user_id", s.UserID, "doctor_id", req.DoctorID, "error", err)
		h.showPatient(w, r, s, dashboard.PatientBook, actionStatus(err), apiclient.UserMessage(err), req)
		return
	}

	logging.Info("Appointment booked", "user_id", s.UserID, "doctor_id", req.DoctorID, "token_number", result.TokenNumber)
	h.redirect(w, r, "/patient?tab=appointments&notice=booked", http.StatusCreated, result)
}

// CancelAppointment cancels one of the patient's appointments.
func (h *HTTPHandlerImpl) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	id := chi.URLParam(r, "id")

	if err := h.validator.ValidateID(id); err != nil {
		logging.Warn("Unusual user input", "appointment_id", id, "error", err)
		h.showPatient(w, r, s, dashboard.PatientAppointments, http.StatusBadRequest, "Invalid appointment.", entities.BookingRequest{})
		return
	}

	done, ok := h.inflight.TryBegin(s.ID, "cancel:"+id)
	if !ok {
		h.showPatient(w, r, s, dashboard.PatientAppointments, http.StatusConflict, msgInProgress, entities.BookingRequest{})
		return
	}
	defer done()

	if err := h.api.CancelAppointment(r.Context(), s.Token, id); err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Warn("Cancellation failed", "user_id", s.UserID, "appointment_id", id, "error", err)
		h.showPatient(w, r, s, dashboard.PatientAppointments, actionStatus(err), apiclient.UserMessage(err), entities.BookingRequest{})
		return
	}

	logging.Info("Appointment cancelled", "user_id", s.UserID, "appointment_id", id)
	h.redirect(w, r, "/patient?tab=appointments&notice=cancelled", http.StatusOK, map[string]string{
		"appointment_id": id,
		"status":         string(entities.AppointmentCancelled),
	})
}

// QueueStatus shows the live queue position of one appointment.
func (h *HTTPHandlerImpl) QueueStatus(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	id := chi.URLParam(r, "id")

	if err := h.validator.ValidateID(id); err != nil {
		logging.Warn("Unusual user input", "appointment_id", id, "error", err)
		h.showPatient(w, r, s, dashboard.PatientAppointments, http.StatusBadRequest, "Invalid appointment.", entities.BookingRequest{})
		return
	}

	status, err := h.loader.LoadQueueStatus(r.Context(), s, id)
	if err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Warn("Queue status unavailable", "user_id", s.UserID, "appointment_id", id, "error", err)
		h.showPatient(w, r, s, dashboard.PatientAppointments, actionStatus(err), apiclient.UserMessage(err), entities.BookingRequest{})
		return
	}

	h.render(w, r, http.StatusOK, "queue", pageData{Title: "Queue status", User: &s, Page: status})
}
