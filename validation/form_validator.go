// Package validation checks the forms and query parameters the portal
// accepts before anything is sent to the hospital API.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/interfaces"
)

var (
	// Search: letters in any script, digits and safe punctuation
	searchRegex = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\s\-\.\+'/%]+$`)

	idRegex       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9._@+-]{1,100}$`)
	timeRegex     = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

	// Free text (symptoms, notes) is forwarded to the API and shown to
	// staff, so markup is refused.
	markupPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "<iframe", "<object", "<embed", "data:text/html",
	}
)

const (
	maxPasswordLength = 200
	maxFreeText       = 1000
	maxSearchLength   = 50
	maxSearchWords    = 6
	maxMedicineField  = 100
	maxBookingAhead   = 365 * 24 * time.Hour
)

// FormValidatorImpl implements interfaces.FormValidator
type FormValidatorImpl struct {
	now func() time.Time
}

// NewFormValidator creates a new form validator
func NewFormValidator() interfaces.FormValidator {
	return &FormValidatorImpl{now: time.Now}
}

// ValidateLogin checks the login form. Empty fields are left to the
// authenticator, which reports them as missing credentials.
func (v *FormValidatorImpl) ValidateLogin(username, password string) error {
	username = strings.TrimSpace(username)
	if username != "" && !usernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters")
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password too long: maximum %d characters", maxPasswordLength)
	}
	if strings.ContainsRune(password, 0) {
		return fmt.Errorf("password contains invalid characters")
	}
	return nil
}

// ValidateBooking checks a booking form. The date must be today or later
// and within a year.
func (v *FormValidatorImpl) ValidateBooking(req entities.BookingRequest) error {
	if err := v.ValidateID(req.DoctorID); err != nil {
		return fmt.Errorf("please select a doctor")
	}

	date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(req.Date), time.Local)
	if err != nil {
		return fmt.Errorf("appointment date must be in YYYY-MM-DD format")
	}

	now := v.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if date.Before(today) {
		return fmt.Errorf("appointment date cannot be in the past")
	}
	if date.After(today.Add(maxBookingAhead)) {
		return fmt.Errorf("appointment date is too far in the future")
	}

	if t := strings.TrimSpace(req.Time); t != "" && !timeRegex.MatchString(t) {
		return fmt.Errorf("appointment time must be in HH:MM format")
	}

	return v.validateFreeText("symptoms", req.Symptoms)
}

// ValidateConsultation checks the doctor's completion form.
func (v *FormValidatorImpl) ValidateConsultation(req entities.ConsultationRequest) error {
	if err := v.ValidateID(req.AppointmentID); err != nil {
		return fmt.Errorf("invalid appointment: %w", err)
	}
	if err := v.validateFreeText("doctor notes", req.DoctorNotes); err != nil {
		return err
	}

	for i, item := range req.Medicines {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("medicine %d: name is required", i+1)
		}
		for label, value := range map[string]string{
			"name":      item.Name,
			"dosage":    item.Dosage,
			"frequency": item.Frequency,
			"duration":  item.Duration,
		} {
			if utf8.RuneCountInString(value) > maxMedicineField {
				return fmt.Errorf("medicine %d: %s too long", i+1, label)
			}
			if containsMarkup(value) {
				return fmt.Errorf("medicine %d: %s contains invalid content", i+1, label)
			}
		}
	}
	return nil
}

// ValidateSearch checks the inventory search box. An empty query is valid
// and means no filter.
func (v *FormValidatorImpl) ValidateSearch(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if utf8.RuneCountInString(query) > maxSearchLength {
		return fmt.Errorf("search too long: maximum %d characters", maxSearchLength)
	}

	if len(strings.Fields(query)) > maxSearchWords {
		return fmt.Errorf("search query too complex: maximum %d words allowed", maxSearchWords)
	}

	if !searchRegex.MatchString(query) {
		return fmt.Errorf("search contains invalid characters")
	}

	if hasExcessiveRepetition(query) {
		return fmt.Errorf("search contains excessive character repetition")
	}

	return nil
}

// ValidateStatusFilter normalises the pharmacy status filter. Empty means
// "all".
func (v *FormValidatorImpl) ValidateStatusFilter(status string) (string, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || status == "all" {
		return "all", nil
	}
	for _, s := range entities.PrescriptionStatuses() {
		if string(s) == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("status must be one of: all, pending, preparing, ready, dispensed")
}

// ValidateTargetStatus checks a requested prescription transition target.
// Only statuses reachable by a pharmacy action are accepted.
func (v *FormValidatorImpl) ValidateTargetStatus(status string) (entities.PrescriptionStatus, error) {
	switch s := entities.PrescriptionStatus(strings.ToLower(strings.TrimSpace(status))); s {
	case entities.PrescriptionPreparing, entities.PrescriptionReady, entities.PrescriptionDispensed:
		return s, nil
	default:
		return "", fmt.Errorf("invalid target status: %q", status)
	}
}

// ValidateID checks a resource id taken from a URL or form.
func (v *FormValidatorImpl) ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("id contains invalid characters")
	}
	return nil
}

func (v *FormValidatorImpl) validateFreeText(field, value string) error {
	if utf8.RuneCountInString(value) > maxFreeText {
		return fmt.Errorf("%s too long: maximum %d characters", field, maxFreeText)
	}
	if strings.ContainsRune(value, 0) || containsMarkup(value) {
		return fmt.Errorf("%s contains invalid content", field)
	}
	return nil
}

func containsMarkup(value string) bool {
	lower := strings.ToLower(value)
	for _, pattern := range markupPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// hasExcessiveRepetition reports the same rune repeated more than 10 times
// in a row.
func hasExcessiveRepetition(input string) bool {
	var last rune
	run := 0
	for _, r := range input {
		if r == last {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		last = r
		run = 1
	}
	return false
}
