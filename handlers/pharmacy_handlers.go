package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/dashboard"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/logging"
	"github.com/go-chi/chi/v5"
)

const maxStatusNotes = 500

// PharmacyDashboard shows prescriptions or inventory. ?status= filters
// prescriptions and ?q= searches the inventory; an invalid value is
// dropped and reported on the page.
func (h *HTTPHandlerImpl) PharmacyDashboard(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	params := r.URL.Query()

	query := dashboard.PharmacyQuery{Tab: dashboard.ParsePharmacyTab(params.Get("tab"))}
	status, message := http.StatusOK, ""

	filter, err := h.validator.ValidateStatusFilter(params.Get("status"))
	if err != nil {
		logging.Warn("Unusual user input", "status", params.Get("status"), "error", err)
		filter, status, message = "all", http.StatusBadRequest, sentence(err)
	}
	query.Status = filter

	search := strings.TrimSpace(params.Get("q"))
	if err := h.validator.ValidateSearch(search); err != nil {
		logging.Warn("Unusual user input", "search", search, "error", err)
		search, status, message = "", http.StatusBadRequest, sentence(err)
	}
	query.Search = search
	if search != "" {
		query.Tab = dashboard.PharmacyInventory
	}

	h.showPharmacy(w, r, s, query, status, message)
}

func (h *HTTPHandlerImpl) showPharmacy(w http.ResponseWriter, r *http.Request, s entities.Session, query dashboard.PharmacyQuery, status int, message string) {
	page, err := h.loader.LoadPharmacy(r.Context(), s, query)
	if err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Error("Failed to load pharmacy dashboard", "user_id", s.UserID, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "The dashboard could not be loaded")
		return
	}

	h.render(w, r, status, "pharmacy", pageData{
		Title: "Pharmacy dashboard",
		User:  &s,
		Error: message,
		Page:  page,
	})
}

// UpdatePrescriptionStatus advances a prescription by exactly one step.
// The submitted current status must be the one immediately preceding the
// target, so no step can be skipped.
func (h *HTTPHandlerImpl) UpdatePrescriptionStatus(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	id := chi.URLParam(r, "id")
	back := dashboard.PharmacyQuery{Tab: dashboard.PharmacyPrescriptions, Status: "all"}

	if err := h.validator.ValidateID(id); err != nil {
		logging.Warn("Unusual user input", "prescription_id", id, "error", err)
		h.showPharmacy(w, r, s, back, http.StatusBadRequest, "Invalid prescription.")
		return
	}

	form, err := readStatusChange(r)
	if err != nil {
		logging.Warn("Unreadable status change", "error", err)
		h.showPharmacy(w, r, s, back, http.StatusBadRequest, "The status change could not be read.")
		return
	}

	target, err := h.validator.ValidateTargetStatus(form.Status)
	if err != nil {
		logging.Warn("Unusual user input", "status", form.Status, "error", err)
		h.showPharmacy(w, r, s, back, http.StatusBadRequest, sentence(err))
		return
	}

	current := entities.PrescriptionStatus(strings.ToLower(strings.TrimSpace(form.CurrentStatus)))
	if action, ok := dashboard.NextAction(current); !ok || action.Target != target {
		logging.Warn("Prescription transition refused", "prescription_id", id, "from", current, "to", target)
		h.showPharmacy(w, r, s, back, http.StatusBadRequest,
			fmt.Sprintf("A prescription cannot move from %q to %q.", current, target))
		return
	}

	if utf8.RuneCountInString(form.Notes) > maxStatusNotes {
		h.showPharmacy(w, r, s, back, http.StatusBadRequest, fmt.Sprintf("Notes too long: maximum %d characters.", maxStatusNotes))
		return
	}

	done, ok := h.inflight.TryBegin(s.ID, "status:"+id)
	if !ok {
		h.showPharmacy(w, r, s, back, http.StatusConflict, msgInProgress)
		return
	}
	defer done()

	update := entities.StatusUpdate{PrescriptionID: id, Status: target, Notes: strings.TrimSpace(form.Notes)}
	if err := h.api.UpdatePrescriptionStatus(r.Context(), s.Token, update); err != nil {
		if sessionExpired(err) {
			h.expireSession(w, r, s)
			return
		}
		logging.Warn("Prescription update failed", "user_id", s.UserID, "prescription_id", id, "status", target, "error", err)
		h.showPharmacy(w, r, s, back, actionStatus(err), apiclient.UserMessage(err))
		return
	}

	logging.Info("Prescription status updated", "user_id", s.UserID, "prescription_id", id, "from", current, "to", target)
	h.redirect(w, r, "/pharmacy?notice=updated", http.StatusOK, update)
}
