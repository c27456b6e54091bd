package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/gateway"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/snapshot"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil)
	assert.Error(t, err)
	_, err = New(Config{AccountID: account}, nil, nil, nil)
	assert.Error(t, err)
}

func TestStartRejectsUnknownAccount(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.gw.On("Accounts", mock.Anything).Return([]string{"A-OTHER"}, nil)

	err := f.sys.Start(context.Background())
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	f.gw.AssertNotCalled(t, "FetchCombinedState", mock.Anything, mock.Anything)
}

func TestStartLoadsStateAndRefreshes(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.store.data = &state.Data{LastSeenPlannedDispatchSource: model.SourceBumpCharge}
	f.gw.On("Accounts", mock.Anything).Return([]string{account}, nil)
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{
		PlannedDispatches: []model.DispatchRecord{dispatchAt(utc(15, 11, 0), utc(15, 13, 0), "")},
	}, nil)

	require.NoError(t, f.sys.Start(context.Background()))
	snap, err := f.sys.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, model.SourceBumpCharge, snap.PlannedDispatches[0].Source, "backfilled from persisted source")
	assert.True(t, f.sys.IsBoostChargingNow())
}

func TestStartToleratesFailedFirstRefresh(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.gw.On("Accounts", mock.Anything).Return([]string{account}, nil)
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{}, errors.New("down"))

	require.NoError(t, f.sys.Start(context.Background()))
	_, err := f.sys.Snapshot()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{
		Preferences: &model.ChargePreferences{WeekdayTargetSoC: intPtr(80), WeekdayTargetTime: "07:00"},
	}, nil).Once()
	netErr := &gateway.Error{Kind: gateway.KindNetwork, Op: "getCombinedData", Err: errors.New("timeout")}
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{}, netErr).Once()

	first, err := f.sys.Refresh(context.Background())
	require.NoError(t, err)
	_, err = f.sys.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, gateway.IsRetryable(err))

	cur, err := f.sys.Snapshot()
	require.NoError(t, err)
	assert.Same(t, first, cur)

	errs, tags := f.mon.Captured()
	require.Len(t, errs, 1)
	assert.Equal(t, "network", tags[0]["kind"])
	require.Len(t, f.sink.refreshes, 2)
	assert.NoError(t, f.sink.refreshes[0].Err)
	assert.Error(t, f.sink.refreshes[1].Err)
}

func TestRefreshPublishesOnBus(t *testing.T) {
	bus := eventbus.NewTyped[*snapshot.Snapshot](1)
	f := newFixture(t, utc(15, 12, 0), WithBus(bus))
	sub := bus.Subscribe()
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{}, nil)

	snap, err := f.sys.Refresh(context.Background())
	require.NoError(t, err)
	select {
	case got := <-sub:
		assert.Same(t, snap, got)
	case <-time.After(time.Second):
		t.Fatal("snapshot not published")
	}
	assert.Len(t, f.sink.states, 1)
}

func TestRefreshAppliesFetchTimeout(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.sys.cfg.FetchTimeout = 10 * time.Millisecond
	f.gw.On("FetchCombinedState", mock.Anything, account).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(model.CombinedState{}, context.DeadlineExceeded)

	_, err := f.sys.Refresh(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerationsIncrease(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{}, nil)
	a, err := f.sys.Refresh(context.Background())
	require.NoError(t, err)
	b, err := f.sys.Refresh(context.Background())
	require.NoError(t, err)
	assert.Greater(t, b.Generation, a.Generation)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMixedSourcesClearHintAndCloseFlushes(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{
		PlannedDispatches: []model.DispatchRecord{
			dispatchAt(utc(15, 1, 0), utc(15, 2, 0), model.SourceSmartCharge),
			dispatchAt(utc(15, 3, 0), utc(15, 4, 0), model.SourceBumpCharge),
			dispatchAt(utc(15, 5, 0), utc(15, 6, 0), ""),
		},
	}, nil)

	snap, err := f.sys.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", snap.PlannedDispatches[2].Source)
	assert.Equal(t, 0, f.store.saves, "lazy state is written on close only")

	require.NoError(t, f.sys.Close(context.Background()))
	require.NotNil(t, f.store.data)
	assert.Equal(t, "", f.store.data.LastSeenPlannedDispatchSource)
}

func TestForgetRemovesState(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	require.NoError(t, f.sys.Forget(context.Background()))
	assert.True(t, f.store.removed)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.sys.cfg.PollInterval = 5 * time.Millisecond
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sys.Run(ctx) }()
	require.Eventually(t, func() bool {
		_, err := f.sys.Snapshot()
		return err == nil
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}
