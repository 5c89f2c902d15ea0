package dashboard

import (
	"context"
	"strings"

	"github.com/giygas/hospital-portal/entities"
)

// PharmacyTab is a section of the pharmacy dashboard.
type PharmacyTab string

const (
	PharmacyPrescriptions PharmacyTab = "prescriptions"
	PharmacyInventory     PharmacyTab = "inventory"
)

// ParsePharmacyTab falls back to prescriptions for unknown tabs.
func ParsePharmacyTab(s string) PharmacyTab {
	if PharmacyTab(strings.ToLower(strings.TrimSpace(s))) == PharmacyInventory {
		return PharmacyInventory
	}
	return PharmacyPrescriptions
}

// Action is the single status transition offered for a prescription.
type Action struct {
	Target entities.PrescriptionStatus `json:"target"`
	Label  string                      `json:"label"`
}

// NextAction returns the one legal forward step from status. Dispensed,
// cancelled and unknown statuses offer nothing.
func NextAction(status entities.PrescriptionStatus) (Action, bool) {
	switch status {
	case entities.PrescriptionPending:
		return Action{Target: entities.PrescriptionPreparing, Label: "Start Preparing"}, true
	case entities.PrescriptionPreparing:
		return Action{Target: entities.PrescriptionReady, Label: "Mark Ready"}, true
	case entities.PrescriptionReady:
		return Action{Target: entities.PrescriptionDispensed, Label: "Mark Dispensed"}, true
	default:
		return Action{}, false
	}
}

type PrescriptionItem struct {
	entities.Prescription
	Action *Action `json:"action,omitempty"`
}

type MedicineItem struct {
	entities.Medicine
	LowStock bool `json:"low_stock"`
}

// StatusCounts counts prescriptions per status over the unfiltered list.
type StatusCounts struct {
	All       int `json:"all"`
	Pending   int `json:"pending"`
	Preparing int `json:"preparing"`
	Ready     int `json:"ready"`
	Dispensed int `json:"dispensed"`
}

type InventoryTotals struct {
	Medicines int `json:"medicines"`
	LowStock  int `json:"low_stock"`
	Units     int `json:"units"`
}

// PharmacyQuery is the validated dashboard query string.
type PharmacyQuery struct {
	Tab    PharmacyTab
	Status string
	Search string
}

type PharmacyPage struct {
	Tab           PharmacyTab        `json:"tab"`
	Status        string             `json:"status"`
	Search        string             `json:"search,omitempty"`
	DisplayName   string             `json:"display_name"`
	Counts        StatusCounts       `json:"counts"`
	Prescriptions []PrescriptionItem `json:"prescriptions"`
	Inventory     []MedicineItem     `json:"inventory"`
	LowStock      []MedicineItem     `json:"low_stock"`
	Totals        InventoryTotals    `json:"totals"`
	Notices       []Notice           `json:"notices,omitempty"`
}

// LoadPharmacy fetches every prescription and the medicine inventory
// concurrently, then applies the status filter and search locally.
func (l *Loader) LoadPharmacy(ctx context.Context, s entities.Session, q PharmacyQuery) (PharmacyPage, error) {
	var (
		prescriptions []entities.Prescription
		medicines     []entities.Medicine
	)

	var b batch
	b.fetch("prescriptions", func() (err error) {
		prescriptions, err = l.api.PharmacyPrescriptions(ctx, s.Token, "all")
		return err
	})
	b.fetch("inventory", func() (err error) {
		medicines, err = l.api.Medicines(ctx, s.Token)
		return err
	})

	notices, err := b.wait()
	if err != nil {
		return PharmacyPage{}, err
	}

	status := q.Status
	if status == "" {
		status = "all"
	}

	page := PharmacyPage{
		Tab:           q.Tab,
		Status:        status,
		Search:        q.Search,
		DisplayName:   s.DisplayName,
		Counts:        CountPrescriptions(prescriptions),
		Prescriptions: FilterPrescriptions(prescriptions, status),
		Inventory:     SearchInventory(medicines, q.Search),
		LowStock:      []MedicineItem{},
		Totals:        TotalInventory(medicines),
		Notices:       notices,
	}
	for _, m := range medicines {
		if m.LowStock() {
			page.LowStock = append(page.LowStock, MedicineItem{Medicine: m, LowStock: true})
		}
	}
	return page, nil
}

func CountPrescriptions(prescriptions []entities.Prescription) StatusCounts {
	counts := StatusCounts{All: len(prescriptions)}
	for _, p := range prescriptions {
		switch p.Status {
		case entities.PrescriptionPending:
			counts.Pending++
		case entities.PrescriptionPreparing:
			counts.Preparing++
		case entities.PrescriptionReady:
			counts.Ready++
		case entities.PrescriptionDispensed:
			counts.Dispensed++
		}
	}
	return counts
}

// FilterPrescriptions keeps the prescriptions in status ("all" keeps
// everything) and attaches each one's next action.
func FilterPrescriptions(prescriptions []entities.Prescription, status string) []PrescriptionItem {
	items := make([]PrescriptionItem, 0, len(prescriptions))
	for _, p := range prescriptions {
		if status != "all" && string(p.Status) != status {
			continue
		}
		item := PrescriptionItem{Prescription: p}
		if action, ok := NextAction(p.Status); ok {
			item.Action = &action
		}
		items = append(items, item)
	}
	return items
}

// SearchInventory keeps medicines whose name, generic name or category
// contain every word of query, ignoring case and accents.
func SearchInventory(medicines []entities.Medicine, query string) []MedicineItem {
	items := make([]MedicineItem, 0, len(medicines))
	for _, m := range medicines {
		if !matchesAll(query, m.Name, m.GenericName, m.Category) {
			continue
		}
		items = append(items, MedicineItem{Medicine: m, LowStock: m.LowStock()})
	}
	return items
}

func TotalInventory(medicines []entities.Medicine) InventoryTotals {
	totals := InventoryTotals{Medicines: len(medicines)}
	for _, m := range medicines {
		totals.Units += m.StockQuantity
		if m.LowStock() {
			totals.LowStock++
		}
	}
	return totals
}
