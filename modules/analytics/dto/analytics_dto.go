package dto

import "time"

type PeriodRequest struct {
	From time.Time
	To   time.Time
}

type PopularSlot struct {
	SlotKey          string  `json:"slot_key"`
	DemandCount      int     `json:"demand_count"`
	FulfillmentCount int     `json:"fulfillment_count"`
	ActiveCount      int     `json:"active_count"`
	FulfillmentRate  float64 `json:"fulfillment_rate"`
}

type AbsenceRateResponse struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Bookings int       `json:"bookings"`
	Absences int       `json:"absences"`
	Rate     float64   `json:"rate"`
}

type FinancialImpactResponse struct {
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
	Total      float64            `json:"total"`
	FinedCount int                `json:"fined_count"`
	ByKind     map[string]float64 `json:"by_kind"`
}

type SummaryResponse struct {
	ResourceID string         `json:"resource_id"`
	Counts     map[string]int `json:"counts"`
	Total      int            `json:"total"`
	TopSlots   []PopularSlot  `json:"top_slots"`
}

type ExportRequest struct {
	From       string `json:"from" validate:"required,datetime=2006-01-02"`
	To         string `json:"to" validate:"required,datetime=2006-01-02"`
	ResourceID string `json:"resource_id" validate:"omitempty,max=64"`
}

type ExportSnapshot struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	AbsenceRate     AbsenceRateResponse     `json:"absence_rate"`
	FinancialImpact FinancialImpactResponse `json:"financial_impact"`
	PopularSlots    []PopularSlot           `json:"popular_slots"`
	Summary         *SummaryResponse        `json:"summary,omitempty"`
}

type ExportResponse struct {
	Location string `json:"location"`
	Key      string `json:"key"`
}
