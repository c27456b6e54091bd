// Package metrics provides the Prometheus and InfluxDB sinks and the HTTP
// server exposing /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/smartcharge/core/metrics"
)

// PromSink records refreshes, charge state and mutations in Prometheus
// metrics.
type PromSink struct {
	refreshes       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	planned         *prometheus.GaugeVec
	chargeState     *prometheus.GaugeVec
	completedEnergy *prometheus.GaugeVec
	targetSoC       *prometheus.GaugeVec
	mutations       *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register returns c, or the collector already registered under the same
// descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return c, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, err
		}
		return existing, nil
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartcharge_refresh_total",
			Help: "Refresh cycles against the provider",
		}, []string{"account", "result"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartcharge_refresh_duration_seconds",
			Help:    "Duration of refresh cycles",
			Buckets: prometheus.DefBuckets,
		}, []string{"account"}),
		planned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartcharge_planned_dispatches",
			Help: "Planned dispatches in the latest snapshot",
		}, []string{"account"}),
		chargeState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartcharge_state",
			Help: "Derived charge state flags (1 = true)",
		}, []string{"account", "flag"}),
		completedEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartcharge_completed_energy_kwh",
			Help: "Energy delta of completed dispatches in the latest snapshot",
		}, []string{"account"}),
		targetSoC: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartcharge_target_soc_percent",
			Help: "Configured target state of charge",
		}, []string{"account"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartcharge_mutations_total",
			Help: "Mutations sent to the provider",
		}, []string{"account", "operation", "result"}),
	}
	var err error
	if s.refreshes, err = register(reg, s.refreshes); err != nil {
		return nil, err
	}
	if s.refreshDuration, err = register(reg, s.refreshDuration); err != nil {
		return nil, err
	}
	if s.planned, err = register(reg, s.planned); err != nil {
		return nil, err
	}
	if s.chargeState, err = register(reg, s.chargeState); err != nil {
		return nil, err
	}
	if s.completedEnergy, err = register(reg, s.completedEnergy); err != nil {
		return nil, err
	}
	if s.targetSoC, err = register(reg, s.targetSoC); err != nil {
		return nil, err
	}
	if s.mutations, err = register(reg, s.mutations); err != nil {
		return nil, err
	}
	return s, nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// RecordRefresh counts the refresh and observes its duration.
func (s *PromSink) RecordRefresh(ev coremetrics.RefreshEvent) error {
	s.refreshes.WithLabelValues(ev.AccountID, result(ev.Err)).Inc()
	s.refreshDuration.WithLabelValues(ev.AccountID).Observe(ev.Duration.Seconds())
	if ev.Err == nil {
		s.planned.WithLabelValues(ev.AccountID).Set(float64(ev.Planned))
	}
	return nil
}

// RecordChargeState sets the charge state gauges.
func (s *PromSink) RecordChargeState(ev coremetrics.ChargeStateEvent) error {
	flags := map[string]bool{
		"off_peak":       ev.OffPeak,
		"fixed_off_peak": ev.FixedOffPeak,
		"smart_charge":   ev.SmartChargeNow,
		"boost_charge":   ev.BoostChargeNow,
		"smart_enabled":  ev.SmartEnabled,
	}
	for flag, v := range flags {
		s.chargeState.WithLabelValues(ev.AccountID, flag).Set(boolGauge(v))
	}
	s.completedEnergy.WithLabelValues(ev.AccountID).Set(ev.CompletedEnergy.InexactFloat64())
	s.targetSoC.WithLabelValues(ev.AccountID).Set(float64(ev.TargetSoC))
	return nil
}

// RecordMutation counts a provider mutation.
func (s *PromSink) RecordMutation(ev coremetrics.MutationEvent) error {
	s.mutations.WithLabelValues(ev.AccountID, ev.Operation, result(ev.Err)).Inc()
	return nil
}
