package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/hospital-portal/entities"
)

var errBadBody = errors.New("request body could not be read")

// isJSONBody reports whether the request carries a JSON body.
func isJSONBody(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// decodeBody fills dst from a JSON body, or from the parsed form through
// fromForm. Form and JSON submissions are accepted on every POST route.
func decodeBody(r *http.Request, dst any, fromForm func(r *http.Request)) error {
	if isJSONBody(r) {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("%w: %v", errBadBody, err)
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	fromForm(r)
	return nil
}

func readCredentials(r *http.Request) (entities.Credentials, error) {
	var creds entities.Credentials
	err := decodeBody(r, &creds, func(r *http.Request) {
		creds.Username = r.PostForm.Get("username")
		creds.Password = r.PostForm.Get("password")
	})
	return creds, err
}

func readBooking(r *http.Request) (entities.BookingRequest, error) {
	var req entities.BookingRequest
	err := decodeBody(r, &req, func(r *http.Request) {
		req.DoctorID = r.PostForm.Get("doctor_id")
		req.Date = r.PostForm.Get("appointment_date")
		req.Time = r.PostForm.Get("appointment_time")
		req.Symptoms = r.PostForm.Get("symptoms")
	})
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Symptoms = strings.TrimSpace(req.Symptoms)
	return req, err
}

// statusForm is the pharmacy's transition request. CurrentStatus is the
// status the pharmacist saw when the action was offered.
type statusForm struct {
	CurrentStatus string `json:"current_status"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

func readStatusChange(r *http.Request) (statusForm, error) {
	var form statusForm
	err := decodeBody(r, &form, func(r *http.Request) {
		form.CurrentStatus = r.PostForm.Get("current_status")
		form.Status = r.PostForm.Get("status")
		form.Notes = r.PostForm.Get("notes")
	})
	return form, err
}

// readConsultation reads the completion form. Medicines arrive as parallel
// medicine_name/dosage/frequency/duration fields; rows without a name are
// dropped.
func readConsultation(r *http.Request) (entities.ConsultationRequest, error) {
	var req entities.ConsultationRequest
	err := decodeBody(r, &req, func(r *http.Request) {
		req.DoctorNotes = r.PostForm.Get("doctor_notes")

		names := r.PostForm["medicine_name"]
		for i, name := range names {
			if strings.TrimSpace(name) == "" {
				continue
			}
			req.Medicines = append(req.Medicines, entities.PrescribedItem{
				Name:      strings.TrimSpace(name),
				Dosage:    strings.TrimSpace(nth(r.PostForm["dosage"], i)),
				Frequency: strings.TrimSpace(nth(r.PostForm["frequency"], i)),
				Duration:  strings.TrimSpace(nth(r.PostForm["duration"], i)),
			})
		}
	})
	req.DoctorNotes = strings.TrimSpace(req.DoctorNotes)
	return req, err
}

func nth(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// sentence turns a validation error into text for the page.
func sentence(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	r, size := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
