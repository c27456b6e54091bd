// Package app wires configuration, infrastructure and the charge system into
// a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/smartcharge/api/status"
	"github.com/kilianp07/smartcharge/config"
	coremetrics "github.com/kilianp07/smartcharge/core/metrics"
	coremon "github.com/kilianp07/smartcharge/core/monitoring"
	"github.com/kilianp07/smartcharge/core/offpeak"
	"github.com/kilianp07/smartcharge/core/snapshot"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/core/system"
	"github.com/kilianp07/smartcharge/infra/journal"
	"github.com/kilianp07/smartcharge/infra/kraken"
	"github.com/kilianp07/smartcharge/infra/logger"
	"github.com/kilianp07/smartcharge/infra/metrics"
	"github.com/kilianp07/smartcharge/infra/monitoring"
	"github.com/kilianp07/smartcharge/infra/mqtt"
	"github.com/kilianp07/smartcharge/infra/persist"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

// Service owns every long-lived component of one account.
type Service struct {
	cfg     *config.Config
	System  *system.System
	store   persist.Store
	sink    coremetrics.MetricsSink
	mon     coremon.Monitor
	bus     *eventbus.TypedBus[*snapshot.Snapshot]
	journal *journal.Journal
	bridge  *mqtt.Bridge
	log     logger.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Service from the configuration. Nothing talks to the
// provider or the broker until Start or Run.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.With(logger.New("service"), "account", cfg.Account)

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	client, err := kraken.New(cfg.Kraken.Client(), logger.New("kraken"))
	if err != nil {
		return nil, err
	}
	sched, err := cfg.OffPeak.Schedule()
	if err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := persist.Open(cfg.Persistence, cfg.Account)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:   cfg,
		store: store,
		sink:  sink,
		mon:   mon,
		bus:   eventbus.NewTyped[*snapshot.Snapshot](8),
		log:   logg,
	}
	if cfg.Journal.Enabled {
		s.journal, err = journal.New(cfg.Journal, logger.New("journal"))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	s.System, err = system.New(
		system.Config{
			AccountID:    cfg.Account,
			PollInterval: cfg.Kraken.PollInterval(),
			FetchTimeout: cfg.Kraken.Timeout(),
		},
		client,
		offpeak.NewResolver(sched),
		state.NewPersistent(store, cfg.Persistence.IsLazy(), logger.New("state")),
		system.WithLogger(logger.With(logger.New("system"), "account", cfg.Account)),
		system.WithMetrics(sink),
		system.WithMonitor(mon),
		system.WithBus(s.bus),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

// Start validates the account, loads persisted state and performs the first
// refresh.
func (s *Service) Start(ctx context.Context) error {
	return s.System.Start(ctx)
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	if s.cfg.MQTT.Enabled {
		b, err := mqtt.NewBridge(s.cfg.MQTT, s.cfg.Account, s.System, logger.New("mqtt"), s.mon)
		if err != nil {
			return fmt.Errorf("mqtt bridge: %w", err)
		}
		s.bridge = b
		s.spawn(func() {
			if err := b.Run(ctx, s.bus.Subscribe()); err != nil {
				s.log.Errorf("mqtt bridge: %v", err)
			}
		})
	}
	if s.journal != nil {
		sub := s.bus.Subscribe()
		s.spawn(func() { s.journal.Run(ctx, sub) })
	}
	if addr := s.cfg.Metrics.ListenAddr; addr != "" {
		var hist status.History
		if s.journal != nil {
			hist = s.journal
		}
		s.spawn(func() {
			if err := metrics.StartPromServer(ctx, addr, status.Routes(s.System, hist)); err != nil {
				s.log.Errorf("http server: %v", err)
			}
		})
	}
	s.spawn(func() {
		if err := s.System.Run(ctx); err != nil {
			s.log.Errorf("refresh loop: %v", err)
		}
	})
	<-ctx.Done()
	s.wg.Wait()
	return nil
}

func (s *Service) spawn(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

// Forget removes the persisted state of the account.
func (s *Service) Forget(ctx context.Context) error {
	return s.System.Forget(ctx)
}

// Close releases resources held by the service. The persisted state is
// flushed before the store is closed.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.bridge != nil {
			s.bridge.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.System.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush state: %w", err))
		}
		s.bus.Close()
		if s.journal != nil {
			if err := s.journal.Close(); err != nil {
				errs = append(errs, fmt.Errorf("journal: %w", err))
			}
		}
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
		if c, ok := s.sink.(interface{ Close() }); ok {
			c.Close()
		}
		s.mon.Flush(2 * time.Second)
	})
	return errors.Join(errs...)
}
