package entities

import (
	"encoding/json"
	"strings"
)

// PrescriptionStatus is the pharmacy workflow state of a prescription.
type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "pending"
	PrescriptionPreparing PrescriptionStatus = "preparing"
	PrescriptionReady     PrescriptionStatus = "ready"
	PrescriptionDispensed PrescriptionStatus = "dispensed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

// PrescriptionStatuses is the pharmacy pipeline in order.
func PrescriptionStatuses() []PrescriptionStatus {
	return []PrescriptionStatus{PrescriptionPending, PrescriptionPreparing, PrescriptionReady, PrescriptionDispensed}
}

func (s PrescriptionStatus) Label() string {
	return strings.ToUpper(string(s))
}

// PrescribedItem is one medicine line of a prescription.
type PrescribedItem struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
	Quantity  int    `json:"quantity,omitempty"`
}

// Prescription as shown to patients and pharmacists.
type Prescription struct {
	ID           FlexID             `json:"id"`
	DoctorName   string             `json:"doctor_name"`
	PatientName  string             `json:"patient_name"`
	TokenNumber  int                `json:"token_number,omitempty"`
	Medicines    []PrescribedItem   `json:"medicines"`
	Instructions string             `json:"instructions,omitempty"`
	Status       PrescriptionStatus `json:"status"`
	CreatedAt    string             `json:"created_at"`
}

// prescriptionWire accepts both shapes the backend has produced: the flat
// single-medicine record and the prescription_data document.
type prescriptionWire struct {
	ID             FlexID             `json:"id"`
	DoctorName     string             `json:"doctor_name"`
	PatientName    string             `json:"patient_name"`
	TokenNumber    int                `json:"token_number"`
	Status         PrescriptionStatus `json:"status"`
	PharmacyStatus PrescriptionStatus `json:"pharmacy_status"`
	CreatedAt      string             `json:"created_at"`
	Instructions   string             `json:"instructions"`
	Medicines      []PrescribedItem   `json:"medicines"`

	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`

	PrescriptionData *struct {
		Medicines    []PrescribedItem `json:"medicines"`
		Instructions string           `json:"instructions"`
	} `json:"prescription_data"`
}

func (p *Prescription) UnmarshalJSON(data []byte) error {
	var w prescriptionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*p = Prescription{
		ID:           w.ID,
		DoctorName:   w.DoctorName,
		PatientName:  w.PatientName,
		TokenNumber:  w.TokenNumber,
		Instructions: w.Instructions,
		Status:       w.Status,
		CreatedAt:    w.CreatedAt,
		Medicines:    w.Medicines,
	}
	if w.PharmacyStatus != "" {
		p.Status = w.PharmacyStatus
	}

	if w.PrescriptionData != nil {
		p.Medicines = append(p.Medicines, w.PrescriptionData.Medicines...)
		if p.Instructions == "" {
			p.Instructions = w.PrescriptionData.Instructions
		}
	}

	if w.MedicineName != "" {
		p.Medicines = append(p.Medicines, PrescribedItem{
			Name:      w.MedicineName,
			Dosage:    w.Dosage,
			Frequency: w.Frequency,
			Duration:  w.Duration,
		})
	}

	return nil
}

// StatusUpdate is the body sent to advance a prescription.
type StatusUpdate struct {
	PrescriptionID string             `json:"prescription_id"`
	Status         PrescriptionStatus `json:"status"`
	Notes          string             `json:"notes,omitempty"`
}
