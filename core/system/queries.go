package system

import (
	"time"

	"github.com/kilianp07/smartcharge/core/dispatch"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/offpeak"
	"github.com/kilianp07/smartcharge/core/snapshot"
)

// Off-peak look-ahead offsets exposed to consumers.
const (
	MaxOffPeakOffset  = 180
	OffPeakOffsetStep = 30
)

// OffPeakOffsets returns the look-ahead offsets in minutes, 0 included.
func OffPeakOffsets() []int {
	offsets := make([]int, 0, MaxOffPeakOffset/OffPeakOffsetStep+1)
	for m := 0; m <= MaxOffPeakOffset; m += OffPeakOffsetStep {
		offsets = append(offsets, m)
	}
	return offsets
}

// current loads the latest snapshot and the clock once so a caller can
// evaluate several queries against the same instant and data. planned is nil
// before the first refresh.
func (s *System) current() (snap *snapshot.Snapshot, planned []model.DispatchRecord, now time.Time) {
	snap = s.holder.Load()
	if snap != nil {
		planned = snap.PlannedDispatches
	}
	return snap, planned, s.now()
}

// Schedule returns the fixed off-peak schedule.
func (s *System) Schedule() offpeak.Schedule { return s.resolver.Schedule() }

// IsChargingNow reports whether a dispatch of source covers now+offset.
// dispatch.AnySource matches every dispatch.
func (s *System) IsChargingNow(source string, offsetMinutes int) bool {
	_, planned, now := s.current()
	return dispatch.IsChargingNow(planned, source, now, offsetMinutes)
}

// IsBoostChargingNow reports whether a bump charge is running.
func (s *System) IsBoostChargingNow() bool {
	_, planned, now := s.current()
	return dispatch.IsBoostChargingNow(planned, now)
}

// IsSmartChargeActiveNow reports whether a smart-charge dispatch covers
// now+offset.
func (s *System) IsSmartChargeActiveNow(offsetMinutes int) bool {
	_, planned, now := s.current()
	return dispatch.IsSmartChargeActiveNow(planned, now, offsetMinutes)
}

// IsFixedOffPeakNow applies only the fixed schedule.
func (s *System) IsFixedOffPeakNow(offsetMinutes int) bool {
	return s.resolver.IsFixedOffPeakNow(s.now(), offsetMinutes)
}

// IsOffPeakNow reports whether now+offset is off-peak by schedule or by a
// smart-charge dispatch. Before the first refresh only the schedule counts.
func (s *System) IsOffPeakNow(offsetMinutes int) bool {
	_, planned, now := s.current()
	return s.resolver.IsOffPeakNow(now, offsetMinutes, planned)
}

// OffPeakRanges returns the merged off-peak ranges around now.
func (s *System) OffPeakRanges() ([]model.TimeRange, error) {
	_, planned, now := s.current()
	return s.resolver.Ranges(now, planned)
}

// NextOffPeakRange returns the range containing now+lookahead, or the next
// one to start.
func (s *System) NextOffPeakRange(lookaheadMinutes int) (model.TimeRange, bool, error) {
	_, planned, now := s.current()
	return s.resolver.NextRange(now, lookaheadMinutes, planned)
}

// NextOffPeakStart returns the start of the next off-peak range. When now is
// already inside a range, that range's start is returned.
func (s *System) NextOffPeakStart() (time.Time, bool, error) {
	_, planned, now := s.current()
	start, _, err := s.offPeakBounds(now, planned)
	if err != nil || start == nil {
		return time.Time{}, false, err
	}
	return *start, true, nil
}

// NextOffPeakEnd returns the end of the current off-peak range. The boolean
// is false when now is not inside one.
func (s *System) NextOffPeakEnd() (time.Time, bool, error) {
	_, planned, now := s.current()
	_, end, err := s.offPeakBounds(now, planned)
	if err != nil || end == nil {
		return time.Time{}, false, err
	}
	return *end, true, nil
}

// offPeakBounds resolves the next off-peak start and, when now is inside
// that range, its end.
func (s *System) offPeakBounds(now time.Time, planned []model.DispatchRecord) (start, end *time.Time, err error) {
	rg, ok, err := s.resolver.NextRange(now, 0, planned)
	if err != nil || !ok {
		return nil, nil, err
	}
	start = &rg.Start
	if rg.Contains(now) {
		end = &rg.End
	}
	return start, end, nil
}

// SmartChargingEnabled reports whether smart charging is not suspended.
func (s *System) SmartChargingEnabled() (bool, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return false, err
	}
	return snap.SmartChargingEnabled(), nil
}

// TargetSoC returns the configured target state of charge.
func (s *System) TargetSoC() (int, bool) {
	snap := s.holder.Load()
	if snap == nil {
		return 0, false
	}
	return snap.TargetSoC()
}

// TargetTime returns the configured ready-by time ("HH:MM").
func (s *System) TargetTime() (string, bool) {
	snap := s.holder.Load()
	if snap == nil {
		return "", false
	}
	return snap.TargetTime()
}
