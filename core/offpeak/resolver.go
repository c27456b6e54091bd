package offpeak

import (
	"time"

	"github.com/kilianp07/smartcharge/core/dispatch"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/timerange"
)

// Resolver merges the fixed schedule with smart-charge dispatches.
type Resolver struct {
	schedule Schedule
}

// NewResolver returns a resolver for the given schedule.
func NewResolver(s Schedule) *Resolver {
	return &Resolver{schedule: s}
}

// Schedule returns the fixed schedule used by the resolver.
func (r *Resolver) Schedule() Schedule { return r.schedule }

// Ranges returns the merged off-peak ranges around t. Only dispatches whose
// source is smart-charge contribute; unclassified dispatches are ignored.
func (r *Resolver) Ranges(t time.Time, dispatches []model.DispatchRecord) ([]model.TimeRange, error) {
	candidates := r.schedule.Windows(t)
	for _, d := range dispatches {
		if d.Source != model.SourceSmartCharge || d.End.Before(d.Start) {
			continue
		}
		candidates = append(candidates, model.TimeRange{Start: d.Start.UTC(), End: d.End.UTC()})
	}
	return timerange.Merge(candidates)
}

// NextRange returns the off-peak range containing now+lookaheadMinutes, or
// the first one starting after it. The boolean is false when no range
// qualifies.
func (r *Resolver) NextRange(now time.Time, lookaheadMinutes int, dispatches []model.DispatchRecord) (model.TimeRange, bool, error) {
	effective := now.Add(time.Duration(lookaheadMinutes) * time.Minute)
	merged, err := r.Ranges(effective, dispatches)
	if err != nil {
		return model.TimeRange{}, false, err
	}
	for _, rg := range merged {
		if rg.Contains(effective) || !effective.After(rg.Start) {
			return rg, true, nil
		}
	}
	return model.TimeRange{}, false, nil
}

// IsFixedOffPeakNow applies the fixed schedule to now+offsetMinutes, ignoring
// dispatches.
func (r *Resolver) IsFixedOffPeakNow(now time.Time, offsetMinutes int) bool {
	return r.schedule.IsFixedOffPeak(now.Add(time.Duration(offsetMinutes) * time.Minute))
}

// IsOffPeakNow reports whether now+offsetMinutes is inside the fixed schedule
// or a smart-charge dispatch.
func (r *Resolver) IsOffPeakNow(now time.Time, offsetMinutes int, dispatches []model.DispatchRecord) bool {
	return r.IsFixedOffPeakNow(now, offsetMinutes) ||
		dispatch.IsSmartChargeActiveNow(dispatches, now, offsetMinutes)
}
