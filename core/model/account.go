package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargePreferences holds the vehicle charging targets configured on the
// account. Nil fields were absent from the provider response.
type ChargePreferences struct {
	WeekdayTargetSoC  *int   `json:"weekday_target_soc,omitempty"`
	WeekdayTargetTime string `json:"weekday_target_time,omitempty"`
	WeekendTargetSoC  *int   `json:"weekend_target_soc,omitempty"`
	WeekendTargetTime string `json:"weekend_target_time,omitempty"`
}

// TargetSoC returns the weekday target state of charge when known.
func (p ChargePreferences) TargetSoC() (int, bool) {
	if p.WeekdayTargetSoC == nil {
		return 0, false
	}
	return *p.WeekdayTargetSoC, true
}

// TargetTime returns the weekday ready-by time ("HH:MM") when known.
func (p ChargePreferences) TargetTime() (string, bool) {
	return p.WeekdayTargetTime, p.WeekdayTargetTime != ""
}

// DeviceInfo describes the vehicle and charger registered with the provider.
type DeviceInfo struct {
	DeviceID           string           `json:"device_id"`
	Provider           string           `json:"provider,omitempty"`
	VehicleMake        string           `json:"vehicle_make,omitempty"`
	VehicleModel       string           `json:"vehicle_model,omitempty"`
	BatterySizeKWh     *decimal.Decimal `json:"battery_size_kwh,omitempty"`
	ChargePointMake    string           `json:"charge_point_make,omitempty"`
	ChargePointModel   string           `json:"charge_point_model,omitempty"`
	ChargePointPowerKW *decimal.Decimal `json:"charge_point_power_kw,omitempty"`
	Status             string           `json:"status,omitempty"`
	Suspended          bool             `json:"suspended"`
	HasToken           bool             `json:"has_token"`
	CreatedAt          time.Time        `json:"created_at,omitempty"`
}

// CombinedState is everything fetched from the provider in one refresh.
type CombinedState struct {
	Preferences         *ChargePreferences `json:"preferences,omitempty"`
	Device              *DeviceInfo        `json:"device,omitempty"`
	PlannedDispatches   []DispatchRecord   `json:"planned_dispatches"`
	CompletedDispatches []DispatchRecord   `json:"completed_dispatches"`
}
