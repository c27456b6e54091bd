// Package system coordinates one provider account: it refreshes the account
// state on a schedule, classifies planned dispatches, publishes immutable
// snapshots and answers charge-state queries against the latest one.
package system

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/smartcharge/core/dispatch"
	"github.com/kilianp07/smartcharge/core/gateway"
	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/core/monitoring"
	"github.com/kilianp07/smartcharge/core/offpeak"
	"github.com/kilianp07/smartcharge/core/snapshot"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

// Defaults applied by New when the Config leaves a value unset.
const (
	DefaultPollInterval = 5 * time.Minute
	DefaultFetchTimeout = 60 * time.Second
)

// ErrNoSnapshot is returned by queries that need provider data before the
// first successful refresh.
var ErrNoSnapshot = errors.New("no snapshot available yet")

// Config configures a System.
type Config struct {
	AccountID    string
	PollInterval time.Duration
	FetchTimeout time.Duration
}

// System is the per-account coordinator.
type System struct {
	cfg        Config
	gw         gateway.Gateway
	resolver   *offpeak.Resolver
	persist    *state.Persistent
	classifier *dispatch.Classifier
	holder     snapshot.Holder

	// refreshMu serializes refreshes and with them every read-modify-write
	// of the persisted source.
	refreshMu sync.Mutex

	bus  *eventbus.TypedBus[*snapshot.Snapshot]
	sink metrics.MetricsSink
	mon  monitoring.Monitor
	log  logger.Logger
	now  func() time.Time
}

// Option customises a System.
type Option func(*System)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(s *System) { s.log = logger.OrNop(l) } }

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.MetricsSink) Option {
	return func(s *System) {
		if m != nil {
			s.sink = m
		}
	}
}

// WithMonitor sets the error monitor.
func WithMonitor(m monitoring.Monitor) Option { return func(s *System) { s.mon = monitoring.OrNop(m) } }

// WithBus publishes every new snapshot on bus.
func WithBus(bus *eventbus.TypedBus[*snapshot.Snapshot]) Option {
	return func(s *System) { s.bus = bus }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *System) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a System. The persistent state is not read until Start.
func New(cfg Config, gw gateway.Gateway, resolver *offpeak.Resolver, persist *state.Persistent, opts ...Option) (*System, error) {
	if cfg.AccountID == "" {
		return nil, errors.New("account id is required")
	}
	if gw == nil || resolver == nil || persist == nil {
		return nil, errors.New("gateway, resolver and persistent state are required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	s := &System{
		cfg:      cfg,
		gw:       gw,
		resolver: resolver,
		persist:  persist,
		sink:     metrics.NopSink{},
		mon:      monitoring.NopMonitor{},
		log:      logger.Nop{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.classifier = dispatch.NewClassifier(persist, s.log)
	return s, nil
}

// AccountID returns the account this system serves.
func (s *System) AccountID() string { return s.cfg.AccountID }

// Start checks that the account is reachable with the configured key, loads
// the persisted state and performs a first refresh. A failed first refresh is
// logged only; the polling loop retries it.
func (s *System) Start(ctx context.Context) error {
	s.log.Debugf("starting system for account %s", s.cfg.AccountID)
	accounts, err := s.gw.Accounts(ctx)
	if err != nil {
		s.mon.CaptureException(err, monitoring.Tags{"op": "accounts"})
		return fmt.Errorf("list accounts: %w", err)
	}
	if !slices.Contains(accounts, s.cfg.AccountID) {
		return fmt.Errorf("%w: %s not in %v", gateway.ErrNotFound, s.cfg.AccountID, accounts)
	}
	s.persist.Load(ctx)
	if _, err := s.Refresh(ctx); err != nil {
		s.log.Warnf("initial refresh failed: %v", err)
	}
	return nil
}

// Run refreshes on every poll interval until ctx is cancelled.
func (s *System) Run(ctx context.Context) error {
	defer s.mon.Recover()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.log.Errorf("refresh error: %v", err)
			}
		}
	}
}

// Close flushes the persisted state.
func (s *System) Close(ctx context.Context) error {
	s.log.Debugf("stopping system for account %s", s.cfg.AccountID)
	if err := s.persist.Flush(ctx); err != nil {
		s.log.Errorf("flush persistent data: %v", err)
		return err
	}
	return nil
}

// Forget removes the persisted state of the account.
func (s *System) Forget(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.persist.Remove(ctx)
}

// Refresh fetches the account state, classifies planned dispatches and
// publishes a new snapshot. On failure the previous snapshot stays current.
func (s *System) Refresh(ctx context.Context) (*snapshot.Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	started := s.now()
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	combined, err := s.gw.FetchCombinedState(fctx, s.cfg.AccountID)
	ev := metrics.RefreshEvent{AccountID: s.cfg.AccountID, Time: started}
	if err != nil {
		err = fmt.Errorf("fetch combined state: %w", err)
		ev.Err = err
		ev.Duration = s.now().Sub(started)
		s.record(ev)
		s.mon.CaptureException(err, monitoring.Tags{
			"op":      "refresh",
			"account": s.cfg.AccountID,
			"kind":    gateway.KindOf(err).String(),
		})
		return nil, err
	}

	combined.PlannedDispatches = s.classifier.Classify(combined.PlannedDispatches)
	snap := s.holder.Publish(s.cfg.AccountID, combined, s.now())

	ev.SnapshotID = snap.ID
	ev.Generation = snap.Generation
	ev.Planned = len(snap.PlannedDispatches)
	ev.Completed = len(snap.CompletedDispatches)
	ev.Duration = s.now().Sub(started)
	s.record(ev)
	s.recordChargeState(snap)
	s.log.Debugw("snapshot published", map[string]any{
		"id":         snap.ID,
		"generation": snap.Generation,
		"planned":    ev.Planned,
		"completed":  ev.Completed,
	})
	if s.bus != nil {
		s.bus.Publish(snap)
	}
	return snap, nil
}

// Snapshot returns the latest snapshot or ErrNoSnapshot.
func (s *System) Snapshot() (*snapshot.Snapshot, error) {
	snap := s.holder.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func (s *System) record(ev metrics.RefreshEvent) {
	if err := s.sink.RecordRefresh(ev); err != nil {
		s.log.Warnf("record refresh: %v", err)
	}
}

func (s *System) recordChargeState(snap *snapshot.Snapshot) {
	rec, ok := s.sink.(metrics.ChargeStateRecorder)
	if !ok {
		return
	}
	now := s.now()
	soc, _ := snap.TargetSoC()
	ev := metrics.ChargeStateEvent{
		AccountID:         snap.AccountID,
		OffPeak:           s.resolver.IsOffPeakNow(now, 0, snap.PlannedDispatches),
		FixedOffPeak:      s.resolver.IsFixedOffPeakNow(now, 0),
		SmartChargeNow:    dispatch.IsSmartChargeActiveNow(snap.PlannedDispatches, now, 0),
		BoostChargeNow:    dispatch.IsBoostChargingNow(snap.PlannedDispatches, now),
		SmartEnabled:      snap.SmartChargingEnabled(),
		TargetSoC:         soc,
		CompletedEnergy:   snap.CompletedEnergy(),
		PlannedDispatches: len(snap.PlannedDispatches),
		Time:              now,
	}
	if err := rec.RecordChargeState(ev); err != nil {
		s.log.Warnf("record charge state: %v", err)
	}
}
