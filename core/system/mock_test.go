package system

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/monitoring"
	"github.com/kilianp07/smartcharge/core/offpeak"
	"github.com/kilianp07/smartcharge/core/state"
)

const account = "A-1234"

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Accounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]string)
	return accounts, args.Error(1)
}

func (m *mockGateway) FetchCombinedState(ctx context.Context, accountID string) (model.CombinedState, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(model.CombinedState), args.Error(1)
}

func (m *mockGateway) SetChargePreferences(ctx context.Context, accountID string, readyByHours float64, targetSoC int) error {
	return m.Called(ctx, accountID, readyByHours, targetSoC).Error(0)
}

func (m *mockGateway) TriggerBoostCharge(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockGateway) CancelBoostCharge(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockGateway) SuspendSmartCharging(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockGateway) ResumeSmartCharging(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

type memStore struct {
	mu      sync.Mutex
	data    *state.Data
	saves   int
	removed bool
}

func (m *memStore) Load(_ context.Context, def state.Data) (state.Data, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return def, false, nil
	}
	return *m.data, true, nil
}

func (m *memStore) Save(_ context.Context, d state.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.data = &d
	return nil
}

func (m *memStore) Remove(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
	m.data = nil
	return nil
}

type recordingSink struct {
	mu        sync.Mutex
	refreshes []metrics.RefreshEvent
	states    []metrics.ChargeStateEvent
	mutations []metrics.MutationEvent
}

func (r *recordingSink) RecordRefresh(ev metrics.RefreshEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes = append(r.refreshes, ev)
	return nil
}

func (r *recordingSink) RecordChargeState(ev metrics.ChargeStateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, ev)
	return nil
}

func (r *recordingSink) RecordMutation(ev metrics.MutationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, ev)
	return nil
}

type fixture struct {
	sys   *System
	gw    *mockGateway
	store *memStore
	sink  *recordingSink
	mon   *monitoring.Recorder
	now   time.Time
}

func utc(d, h, m int) time.Time { return time.Date(2025, 1, d, h, m, 0, 0, time.UTC) }

func newFixture(t *testing.T, now time.Time, opts ...Option) *fixture {
	t.Helper()
	sched, err := offpeak.NewSchedule("23:30", "05:30", time.UTC)
	require.NoError(t, err)
	f := &fixture{
		gw:    &mockGateway{},
		store: &memStore{},
		sink:  &recordingSink{},
		mon:   &monitoring.Recorder{},
		now:   now,
	}
	persist := state.NewPersistent(f.store, true, nil)
	opts = append([]Option{
		WithClock(func() time.Time { return f.now }),
		WithMetrics(f.sink),
		WithMonitor(f.mon),
	}, opts...)
	f.sys, err = New(Config{AccountID: account}, f.gw, offpeak.NewResolver(sched), persist, opts...)
	require.NoError(t, err)
	return f
}

func intPtr(v int) *int { return &v }

func dispatchAt(start, end time.Time, source string) model.DispatchRecord {
	return model.DispatchRecord{Start: start, End: end, Source: source}
}
