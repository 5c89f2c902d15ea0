package apiclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Endpoints is the one table of hospital API paths, relative to the base
// URL. "{id}" in a path is replaced with the escaped resource id.
type Endpoints struct {
	Login                 string `yaml:"login"`
	Profile               string `yaml:"profile"`
	Appointments          string `yaml:"appointments"`
	PatientPrescriptions  string `yaml:"patient_prescriptions"`
	Doctors               string `yaml:"doctors"`
	Departments           string `yaml:"departments"`
	BookAppointment       string `yaml:"book_appointment"`
	Appointment           string `yaml:"appointment"`
	QueueStatus           string `yaml:"queue_status"`
	PharmacyPrescriptions string `yaml:"pharmacy_prescriptions"`
	Medicines             string `yaml:"medicines"`
	PrescriptionStatus    string `yaml:"prescription_status"`
	DoctorQueue           string `yaml:"doctor_queue"`
	CallNext              string `yaml:"call_next"`
	CompleteConsultation  string `yaml:"complete_consultation"`
	Health                string `yaml:"health"`
}

// DefaultEndpoints are the routes of the current hospital backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:                 "/auth/login",
		Profile:               "/auth/profile",
		Appointments:          "/patient/appointments",
		PatientPrescriptions:  "/patient/prescriptions",
		Doctors:               "/doctors",
		Departments:           "/departments",
		BookAppointment:       "/patient/book-appointment",
		// The backend only lets doctors update this route. Deployments with a
		// patient cancel route set "appointment" in ENDPOINTS_FILE.
		Appointment:           "/appointments/{id}",
		QueueStatus:           "/patient/queue-status/{id}",
		PharmacyPrescriptions: "/pharmacy/prescriptions",
		Medicines:             "/pharmacy/medicines",
		PrescriptionStatus:    "/pharmacy/prescriptions/{id}/status",
		DoctorQueue:           "/doctor/queue",
		CallNext:              "/doctor/call-next",
		CompleteConsultation:  "/doctor/complete-consultation",
		Health:                "/health",
	}
}

// LoadEndpoints returns the defaults overlaid with the paths set in the
// YAML file at path. An empty path returns the defaults.
func LoadEndpoints(path string) (Endpoints, error) {
	endpoints := DefaultEndpoints()
	if path == "" {
		return endpoints, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Endpoints{}, fmt.Errorf("failed to read endpoints file: %w", err)
	}

	var overrides Endpoints
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		return Endpoints{}, fmt.Errorf("failed to parse endpoints file %s: %w", path, err)
	}

	endpoints.merge(overrides)
	if err := endpoints.Validate(); err != nil {
		return Endpoints{}, fmt.Errorf("invalid endpoints file %s: %w", path, err)
	}
	return endpoints, nil
}

// merge copies every non-empty path of o into e.
func (e *Endpoints) merge(o Endpoints) {
	dst := reflect.ValueOf(e).Elem()
	src := reflect.ValueOf(o)
	for i := 0; i < src.NumField(); i++ {
		if v := strings.TrimSpace(src.Field(i).String()); v != "" {
			dst.Field(i).SetString(v)
		}
	}
}

// Validate checks that every path is set and absolute.
func (e Endpoints) Validate() error {
	v := reflect.ValueOf(e)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		name := t.Field(i).Tag.Get("yaml")
		path := v.Field(i).String()
		if path == "" {
			return fmt.Errorf("%s: path is empty", name)
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s: path %q must start with /", name, path)
		}
	}
	return nil
}

// withID fills the {id} placeholder of a path template.
func withID(template, id string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(id))
}
