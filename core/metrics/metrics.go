package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefreshEvent describes one refresh cycle against the provider.
type RefreshEvent struct {
	AccountID  string
	SnapshotID string
	Generation uint64
	Planned    int
	Completed  int
	Duration   time.Duration
	Err        error
	Time       time.Time
}

// MetricsSink records refresh cycles for observability purposes.
type MetricsSink interface {
	RecordRefresh(ev RefreshEvent) error
}

// ChargeStateEvent is the charge state derived from the latest snapshot.
type ChargeStateEvent struct {
	AccountID         string
	OffPeak           bool
	FixedOffPeak      bool
	SmartChargeNow    bool
	BoostChargeNow    bool
	SmartEnabled      bool
	TargetSoC         int
	CompletedEnergy   decimal.Decimal
	PlannedDispatches int
	Time              time.Time
}

// ChargeStateRecorder records derived charge state.
type ChargeStateRecorder interface {
	RecordChargeState(ev ChargeStateEvent) error
}

// MutationEvent records a command sent to the provider.
type MutationEvent struct {
	AccountID string
	Operation string
	Err       error
	Latency   time.Duration
	Time      time.Time
}

// MutationRecorder records provider mutations.
type MutationRecorder interface {
	RecordMutation(ev MutationEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRefresh(RefreshEvent) error         { return nil }
func (NopSink) RecordChargeState(ChargeStateEvent) error { return nil }
func (NopSink) RecordMutation(MutationEvent) error       { return nil }
