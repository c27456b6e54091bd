package kraken

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
)

// Layouts seen for dispatch timestamps.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type preferencesDTO struct {
	WeekdayTargetTime *string `json:"weekdayTargetTime"`
	WeekdayTargetSoc  *int    `json:"weekdayTargetSoc"`
	WeekendTargetTime *string `json:"weekendTargetTime"`
	WeekendTargetSoc  *int    `json:"weekendTargetSoc"`
}

type deviceDTO struct {
	ID                 string              `json:"krakenflexDeviceId"`
	Provider           string              `json:"provider"`
	VehicleMake        string              `json:"vehicleMake"`
	VehicleModel       string              `json:"vehicleModel"`
	BatterySizeKWh     decimal.NullDecimal `json:"vehicleBatterySizeInKwh"`
	ChargePointMake    string              `json:"chargePointMake"`
	ChargePointModel   string              `json:"chargePointModel"`
	ChargePointPowerKW decimal.NullDecimal `json:"chargePointPowerInKw"`
	Status             string              `json:"status"`
	Suspended          bool                `json:"suspended"`
	HasToken           bool                `json:"hasToken"`
	CreatedAt          string              `json:"createdAt"`
}

type dispatchDTO struct {
	Start     string          `json:"startDtUtc"`
	End       string          `json:"endDtUtc"`
	ChargeKWh decimal.Decimal `json:"chargeKwh"`
	Meta      *struct {
		Source   string `json:"source"`
		Location string `json:"location"`
	} `json:"meta"`
}

type combinedDTO struct {
	Preferences *preferencesDTO `json:"vehicleChargingPreferences"`
	Device      *deviceDTO      `json:"registeredKrakenflexDevice"`
	Planned     []dispatchDTO   `json:"plannedDispatches"`
	Completed   []dispatchDTO   `json:"completedDispatches"`
}

func (d combinedDTO) toModel(log logger.Logger) model.CombinedState {
	st := model.CombinedState{
		PlannedDispatches:   mapDispatches(d.Planned, "planned", log),
		CompletedDispatches: mapDispatches(d.Completed, "completed", log),
	}
	if p := d.Preferences; p != nil {
		st.Preferences = &model.ChargePreferences{
			WeekdayTargetSoC:  p.WeekdayTargetSoc,
			WeekdayTargetTime: normalizeClock(p.WeekdayTargetTime),
			WeekendTargetSoC:  p.WeekendTargetSoc,
			WeekendTargetTime: normalizeClock(p.WeekendTargetTime),
		}
	}
	if dev := d.Device; dev != nil {
		info := &model.DeviceInfo{
			DeviceID:         dev.ID,
			Provider:         dev.Provider,
			VehicleMake:      dev.VehicleMake,
			VehicleModel:     dev.VehicleModel,
			ChargePointMake:  dev.ChargePointMake,
			ChargePointModel: dev.ChargePointModel,
			Status:           dev.Status,
			Suspended:        dev.Suspended,
			HasToken:         dev.HasToken,
		}
		if dev.BatterySizeKWh.Valid {
			v := dev.BatterySizeKWh.Decimal
			info.BatterySizeKWh = &v
		}
		if dev.ChargePointPowerKW.Valid {
			v := dev.ChargePointPowerKW.Decimal
			info.ChargePointPowerKW = &v
		}
		if t, ok := parseTime(dev.CreatedAt); ok {
			info.CreatedAt = t
		}
		st.Device = info
	}
	return st
}

// mapDispatches converts provider dispatches, dropping entries whose bounds
// cannot be parsed or are inverted.
func mapDispatches(in []dispatchDTO, kind string, log logger.Logger) []model.DispatchRecord {
	out := make([]model.DispatchRecord, 0, len(in))
	for _, d := range in {
		start, okStart := parseTime(d.Start)
		end, okEnd := parseTime(d.End)
		if !okStart || !okEnd || end.Before(start) {
			log.Warnf("skipping %s dispatch with invalid range %q - %q", kind, d.Start, d.End)
			continue
		}
		rec := model.DispatchRecord{Start: start, End: end, EnergyDeltaKWh: d.ChargeKWh}
		if d.Meta != nil {
			rec.Source = d.Meta.Source
			rec.Location = d.Meta.Location
		}
		out = append(out, rec)
	}
	return out
}

// normalizeClock renders provider clock values as "HH:MM". Unparseable
// values are kept verbatim.
func normalizeClock(s *string) string {
	if s == nil {
		return ""
	}
	d, err := model.ParseClock(*s)
	if err != nil {
		return *s
	}
	return model.FormatClock(d)
}
