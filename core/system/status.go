package system

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/smartcharge/core/dispatch"
	"github.com/kilianp07/smartcharge/core/model"
)

// StatusView is a read-only rendering of every exposed query, suitable for
// JSON encoding.
type StatusView struct {
	AccountID            string            `json:"account_id"`
	SnapshotID           string            `json:"snapshot_id,omitempty"`
	Generation           uint64            `json:"generation"`
	FetchedAt            *time.Time        `json:"fetched_at,omitempty"`
	Now                  time.Time         `json:"now"`
	OffPeakSchedule      string            `json:"off_peak_schedule"`
	OffPeak              map[string]bool   `json:"off_peak"`
	FixedOffPeakNow      bool              `json:"fixed_off_peak_now"`
	SmartChargeNow       bool              `json:"smart_charge_now"`
	BoostChargingNow     bool              `json:"boost_charging_now"`
	SmartChargingEnabled *bool             `json:"smart_charging_enabled,omitempty"`
	NextOffPeakStart     *time.Time        `json:"next_off_peak_start,omitempty"`
	NextOffPeakEnd       *time.Time        `json:"next_off_peak_end,omitempty"`
	TargetSoC            *int              `json:"target_soc,omitempty"`
	TargetTime           string            `json:"target_time,omitempty"`
	CompletedEnergyKWh   *decimal.Decimal  `json:"completed_energy_kwh,omitempty"`
	Device               *model.DeviceInfo `json:"device,omitempty"`
	PlannedDispatches    int               `json:"planned_dispatches"`
}

// Status evaluates every query against a single snapshot and a single
// instant, so a refresh landing mid-call cannot mix two generations.
func (s *System) Status() (StatusView, error) {
	snap, planned, now := s.current()
	v := StatusView{
		AccountID:        s.cfg.AccountID,
		Now:              now.UTC(),
		OffPeakSchedule:  s.resolver.Schedule().String(),
		OffPeak:          make(map[string]bool, len(OffPeakOffsets())),
		FixedOffPeakNow:  s.resolver.IsFixedOffPeakNow(now, 0),
		SmartChargeNow:   dispatch.IsSmartChargeActiveNow(planned, now, 0),
		BoostChargingNow: dispatch.IsBoostChargingNow(planned, now),
	}
	for _, off := range OffPeakOffsets() {
		v.OffPeak[strconv.Itoa(off)] = s.resolver.IsOffPeakNow(now, off, planned)
	}
	start, end, err := s.offPeakBounds(now, planned)
	if err != nil {
		return StatusView{}, err
	}
	v.NextOffPeakStart = start
	v.NextOffPeakEnd = end

	if snap == nil {
		return v, nil
	}
	fetched := snap.FetchedAt
	enabled := snap.SmartChargingEnabled()
	energy := snap.CompletedEnergy()
	v.SnapshotID = snap.ID
	v.Generation = snap.Generation
	v.FetchedAt = &fetched
	v.SmartChargingEnabled = &enabled
	v.CompletedEnergyKWh = &energy
	v.Device = snap.Device
	v.PlannedDispatches = len(snap.PlannedDispatches)
	if soc, ok := snap.TargetSoC(); ok {
		v.TargetSoC = &soc
	}
	v.TargetTime, _ = snap.TargetTime()
	return v, nil
}
