package models

import "time"

// RateTier is one consumption band billed at a single per-kWh rate
type RateTier struct {
	KWh        float64 `json:"kwh"`
	RatePerKWh float64 `json:"rate"`
}

// BillingPeriod is the electricity reading period printed on a statement
type BillingPeriod struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// MunicipalRecord represents the billing data extracted from one statement
type MunicipalRecord struct {
	SourceIdentifier    string         `json:"filename"`
	TotalConsumptionKWh *float64       `json:"total_consumption_kwh"` // nil when not printed
	RateTiers           []RateTier     `json:"rates"`                 // Statement order, may be empty
	DailyAverageKWh     *float64       `json:"daily_average_kwh,omitempty"`
	TotalCharge         *float64       `json:"total_charge,omitempty"`
	Period              *BillingPeriod `json:"period,omitempty"`
}

// HasBillingData reports whether the record carries a consumption total or
// at least one rate tier
func (r MunicipalRecord) HasBillingData() bool {
	return r.TotalConsumptionKWh != nil || len(r.RateTiers) > 0
}

// TieredKWh sums the kWh billed across all rate tiers
func (r MunicipalRecord) TieredKWh() float64 {
	var total float64
	for _, t := range r.RateTiers {
		total += t.KWh
	}
	return total
}
