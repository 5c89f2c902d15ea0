package handlers

import (
	"net/http"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/logging"
	"github.com/go-chi/chi/v5"
)

// DoctorDashboard shows today's queue.
func (h *HTTPHandlerImpl) DoctorDashboard(w http.ResponseWriter, r *http.Request) {
	h.showDoctor(w, r, currentSession(r), http.StatusOK, "")
}

func (h *HTTPHandlerImpl) showDoctor(w http.ResponseWriter, r *http.Request, s entities.Session, status int, message string) {
	page, err := h.loader.LoadDoctor(r.Context(), s)
	if err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Error("Failed to load doctor dashboard", "user_id", s.UserID, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "The dashboard could not be loaded")
		return
	}

	h.render(w, r, status, "doctor", pageData{
		Title: "Doctor dashboard",
		User:  &s,
		Error: message,
		Page:  page,
	})
}

// CallNext calls the next waiting patient into consultation.
func (h *HTTPHandlerImpl) CallNext(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)

	done, ok := h.inflight.TryBegin(s.ID, "call-next")
	if !ok {
		h.showDoctor(w, r, s, http.StatusConflict, msgInProgress)
		return
	}
	defer done()

	next, err := h.api.CallNext(r.Context(), s.Token)
	if err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Warn("Call next failed", "user_id", s.UserID, "error", err)
		h.showDoctor(w, r, s, actionStatus(err), apiclient.UserMessage(err))
		return
	}

	logging.Info("Next patient called", "user_id", s.UserID, "appointment_id", next.ID, "token_number", next.TokenNumber)
	h.redirect(w, r, "/doctor?notice=called", http.StatusOK, next)
}

// CompleteConsultation closes the consultation of appointment {id} with the
// doctor's notes and an optional prescription.
func (h *HTTPHandlerImpl) CompleteConsultation(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	id := chi.URLParam(r, "id")

	req, err := readConsultation(r)
	if err != nil {
		logging.Warn("Unreadable consultation", "error", err)
		h.showDoctor(w, r, s, http.StatusBadRequest, "The consultation could not be read.")
		return
	}
	req.AppointmentID = id

	if err := h.validator.ValidateConsultation(req); err != nil {
		logging.Warn("Unusual user input", "appointment_id", id, "error", err)
		h.showDoctor(w, r, s, http.StatusBadRequest, sentence(err))
		return
	}

	done, ok := h.inflight.TryBegin(s.ID, "complete:"+id)
	if !ok {
		h.showDoctor(w, r, s, http.StatusConflict, msgInProgress)
		return
	}
	defer done()

	if err := h.api.CompleteConsultation(r.Context(), s.Token, req); err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Warn("Completing consultation failed", "user_id", s.UserID, "appointment_id", id, "error", err)
		h.showDoctor(w, r, s, actionStatus(err), apiclient.UserMessage(err))
		return
	}

	logging.Info("Consultation completed", "user_id", s.UserID, "appointment_id", id, "medicines", len(req.Medicines))
	h.redirect(w, r, "/doctor?notice=completed", http.StatusOK, map[string]string{
		"appointment_id": id,
		"status":         string(entities.AppointmentCompleted),
	})
}

// AdminDashboard shows the admin landing page.
func (h *HTTPHandlerImpl) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)

	page, err := h.loader.LoadAdmin(r.Context(), s)
	if err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Error("Failed to load admin dashboard", "user_id", s.UserID, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "The dashboard could not be loaded")
		return
	}

	h.render(w, r, http.StatusOK, "admin", pageData{Title: "Administration", User: &s, Page: page})
}
