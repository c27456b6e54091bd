package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/monitoring"
)

// SetChargePreferences sends both targets and refreshes. readyBy is an
// "HH:MM" clock value.
func (s *System) SetChargePreferences(ctx context.Context, readyBy string, targetSoC int) error {
	hours, err := model.HoursAfterMidnight(readyBy)
	if err != nil {
		return err
	}
	return s.mutate(ctx, "set_charge_preferences", func(ctx context.Context) error {
		return s.gw.SetChargePreferences(ctx, s.cfg.AccountID, hours, targetSoC)
	})
}

// SetTargetSoC changes the target state of charge, keeping the current
// ready-by time. It is skipped with a warning when no ready-by time is known.
func (s *System) SetTargetSoC(ctx context.Context, targetSoC int) error {
	current, ok := s.TargetTime()
	if !ok {
		s.log.Warnf("cannot set target SOC for %s: ready-by time not available yet", s.cfg.AccountID)
		return nil
	}
	return s.SetChargePreferences(ctx, current, targetSoC)
}

// SetTargetTime changes the ready-by time, keeping the current target state
// of charge. It is skipped with a warning when no target SOC is known.
func (s *System) SetTargetTime(ctx context.Context, readyBy string) error {
	soc, ok := s.TargetSoC()
	if !ok {
		s.log.Warnf("cannot set target time for %s: target SOC not available yet", s.cfg.AccountID)
		return nil
	}
	return s.SetChargePreferences(ctx, readyBy, soc)
}

// StartBoostCharge asks the provider for an immediate charge.
func (s *System) StartBoostCharge(ctx context.Context) error {
	return s.mutate(ctx, "trigger_boost_charge", func(ctx context.Context) error {
		return s.gw.TriggerBoostCharge(ctx, s.cfg.AccountID)
	})
}

// CancelBoostCharge cancels a running boost charge.
func (s *System) CancelBoostCharge(ctx context.Context) error {
	return s.mutate(ctx, "cancel_boost_charge", func(ctx context.Context) error {
		return s.gw.CancelBoostCharge(ctx, s.cfg.AccountID)
	})
}

// SuspendSmartCharging stops the provider from scheduling smart charges.
func (s *System) SuspendSmartCharging(ctx context.Context) error {
	return s.mutate(ctx, "suspend_smart_charging", func(ctx context.Context) error {
		return s.gw.SuspendSmartCharging(ctx, s.cfg.AccountID)
	})
}

// ResumeSmartCharging re-enables smart charging.
func (s *System) ResumeSmartCharging(ctx context.Context) error {
	return s.mutate(ctx, "resume_smart_charging", func(ctx context.Context) error {
		return s.gw.ResumeSmartCharging(ctx, s.cfg.AccountID)
	})
}

// SetSmartCharging suspends or resumes smart charging.
func (s *System) SetSmartCharging(ctx context.Context, enabled bool) error {
	if enabled {
		return s.ResumeSmartCharging(ctx)
	}
	return s.SuspendSmartCharging(ctx)
}

// mutate runs a provider mutation and refreshes afterwards. A failed refresh
// is logged; the mutation itself succeeded.
func (s *System) mutate(ctx context.Context, op string, call func(context.Context) error) error {
	started := s.now()
	mctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	err := call(mctx)
	cancel()
	if rec, ok := s.sink.(metrics.MutationRecorder); ok {
		if rerr := rec.RecordMutation(metrics.MutationEvent{
			AccountID: s.cfg.AccountID,
			Operation: op,
			Err:       err,
			Latency:   s.now().Sub(started),
			Time:      started,
		}); rerr != nil {
			s.log.Warnf("record mutation: %v", rerr)
		}
	}
	if err != nil {
		if !errors.Is(err, model.ErrInvalidArgument) {
			s.mon.CaptureException(err, monitoring.Tags{"op": op, "account": s.cfg.AccountID})
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Infof("%s done for %s", op, s.cfg.AccountID)
	if _, err := s.Refresh(ctx); err != nil {
		s.log.Warnf("refresh after %s failed: %v", op, err)
	}
	return nil
}
