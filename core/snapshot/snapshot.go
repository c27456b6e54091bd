// Package snapshot holds the immutable result of a provider refresh.
//
// A Snapshot is never modified after Publish; readers obtain the current one
// with Load and keep using it even while a newer refresh replaces it.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kilianp07/smartcharge/core/model"
)

// Snapshot is the account state fetched by one successful refresh, with
// planned dispatches already classified.
type Snapshot struct {
	ID                  string                   `json:"id"`
	Generation          uint64                   `json:"generation"`
	AccountID           string                   `json:"account_id"`
	FetchedAt           time.Time                `json:"fetched_at"`
	Preferences         *model.ChargePreferences `json:"preferences,omitempty"`
	Device              *model.DeviceInfo        `json:"device,omitempty"`
	PlannedDispatches   []model.DispatchRecord   `json:"planned_dispatches"`
	CompletedDispatches []model.DispatchRecord   `json:"completed_dispatches"`
}

// SmartChargingEnabled is true unless the registered device is suspended.
func (s *Snapshot) SmartChargingEnabled() bool {
	return s.Device == nil || !s.Device.Suspended
}

// TargetSoC returns the configured target state of charge when known.
func (s *Snapshot) TargetSoC() (int, bool) {
	if s.Preferences == nil {
		return 0, false
	}
	return s.Preferences.TargetSoC()
}

// TargetTime returns the configured ready-by time when known.
func (s *Snapshot) TargetTime() (string, bool) {
	if s.Preferences == nil {
		return "", false
	}
	return s.Preferences.TargetTime()
}

// CompletedEnergy sums the energy of completed dispatches.
func (s *Snapshot) CompletedEnergy() decimal.Decimal {
	return model.TotalEnergy(s.CompletedDispatches)
}

// Holder publishes snapshots by pointer replacement.
type Holder struct {
	cur atomic.Pointer[Snapshot]
	gen atomic.Uint64
}

// Load returns the latest snapshot or nil before the first publish.
func (h *Holder) Load() *Snapshot { return h.cur.Load() }

// Publish builds a snapshot from state and makes it current. The dispatch
// slices are copied so later changes by the caller are not visible.
func (h *Holder) Publish(accountID string, state model.CombinedState, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		ID:                  uuid.NewString(),
		Generation:          h.gen.Add(1),
		AccountID:           accountID,
		FetchedAt:           fetchedAt.UTC(),
		PlannedDispatches:   append([]model.DispatchRecord(nil), state.PlannedDispatches...),
		CompletedDispatches: append([]model.DispatchRecord(nil), state.CompletedDispatches...),
	}
	if state.Preferences != nil {
		p := *state.Preferences
		s.Preferences = &p
	}
	if state.Device != nil {
		d := *state.Device
		s.Device = &d
	}
	h.cur.Store(s)
	return s
}
