package entities

import "encoding/json"

// Medicine is an inventory line of the pharmacy.
type Medicine struct {
	ID            FlexID  `json:"id"`
	Name          string  `json:"name"`
	GenericName   string  `json:"generic_name"`
	Category      string  `json:"category"`
	StockQuantity int     `json:"stock_quantity"`
	MinimumStock  int     `json:"minimum_stock"`
	UnitPrice     float64 `json:"unit_price"`
}

// LowStock reports whether stock is at or below the minimum threshold.
func (m Medicine) LowStock() bool {
	return m.StockQuantity <= m.MinimumStock
}

type medicineWire struct {
	ID            FlexID   `json:"id"`
	Name          string   `json:"name"`
	GenericName   string   `json:"generic_name"`
	Category      string   `json:"category"`
	StockQuantity int      `json:"stock_quantity"`
	MinimumStock  *int     `json:"minimum_stock"`
	ReorderLevel  *int     `json:"reorder_level"`
	UnitPrice     *float64 `json:"unit_price"`
	PricePerUnit  *float64 `json:"price_per_unit"`
}

func (m *Medicine) UnmarshalJSON(data []byte) error {
	var w medicineWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*m = Medicine{
		ID:            w.ID,
		Name:          w.Name,
		GenericName:   w.GenericName,
		Category:      w.Category,
		StockQuantity: w.StockQuantity,
	}

	switch {
	case w.MinimumStock != nil:
		m.MinimumStock = *w.MinimumStock
	case w.ReorderLevel != nil:
		m.MinimumStock = *w.ReorderLevel
	}

	switch {
	case w.UnitPrice != nil:
		m.UnitPrice = *w.UnitPrice
	case w.PricePerUnit != nil:
		m.UnitPrice = *w.PricePerUnit
	}

	return nil
}
