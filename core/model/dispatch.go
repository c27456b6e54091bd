package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Known dispatch sources reported by the provider.
const (
	SourceSmartCharge = "smart-charge"
	SourceBumpCharge  = "bump-charge"
)

// DispatchRecord is a provider-issued charge interval. Source may be empty when
// the provider omitted the tag; see dispatch.Classifier for the backfill.
type DispatchRecord struct {
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	EnergyDeltaKWh decimal.Decimal `json:"energy_delta_kwh"`
	Source         string          `json:"source,omitempty"`
	Location       string          `json:"location,omitempty"`
}

// Range returns the interval covered by the dispatch.
func (d DispatchRecord) Range() TimeRange {
	return TimeRange{Start: d.Start, End: d.End}
}

// Active reports whether t falls inside the dispatch, bounds included.
func (d DispatchRecord) Active(t time.Time) bool {
	return !t.Before(d.Start) && !t.After(d.End)
}

// TotalEnergy sums the energy deltas of the given dispatches.
func TotalEnergy(records []DispatchRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.EnergyDeltaKWh)
	}
	return total
}
