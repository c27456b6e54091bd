package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/dispatch"
	"github.com/kilianp07/smartcharge/core/model"
)

func TestOffPeakOffsets(t *testing.T) {
	assert.Equal(t, []int{0, 30, 60, 90, 120, 150, 180}, OffPeakOffsets())
}

func TestQueriesBeforeFirstRefresh(t *testing.T) {
	f := newFixture(t, utc(15, 1, 0))
	assert.True(t, f.sys.IsOffPeakNow(0))
	assert.False(t, f.sys.IsBoostChargingNow())
	_, err := f.sys.SmartChargingEnabled()
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, ok := f.sys.TargetSoC()
	assert.False(t, ok)

	end, ok, err := f.sys.NextOffPeakEnd()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, utc(15, 5, 30), end)
}

func TestQueriesWithDispatches(t *testing.T) {
	f := newFixture(t, utc(15, 12, 0))
	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{
		Preferences: &model.ChargePreferences{WeekdayTargetSoC: intPtr(80), WeekdayTargetTime: "07:30"},
		Device:      &model.DeviceInfo{DeviceID: "dev-1", Suspended: true},
		PlannedDispatches: []model.DispatchRecord{
			dispatchAt(utc(15, 13, 0), utc(15, 14, 0), model.SourceSmartCharge),
			dispatchAt(utc(15, 14, 0), utc(15, 15, 0), model.SourceSmartCharge),
		},
	}, nil)
	_, err := f.sys.Refresh(context.Background())
	require.NoError(t, err)

	assert.False(t, f.sys.IsOffPeakNow(0))
	assert.False(t, f.sys.IsFixedOffPeakNow(0))
	assert.True(t, f.sys.IsOffPeakNow(60))
	assert.True(t, f.sys.IsSmartChargeActiveNow(90))
	assert.True(t, f.sys.IsChargingNow(dispatch.AnySource, 150))
	assert.False(t, f.sys.IsChargingNow(model.SourceBumpCharge, 150))

	start, ok, err := f.sys.NextOffPeakStart()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, utc(15, 13, 0), start)

	_, ok, err = f.sys.NextOffPeakEnd()
	require.NoError(t, err)
	assert.False(t, ok, "no end while outside a window")

	rg, ok, err := f.sys.NextOffPeakRange(90)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, utc(15, 15, 0), rg.End, "touching dispatches merge")

	enabled, err := f.sys.SmartChargingEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
	soc, ok := f.sys.TargetSoC()
	assert.True(t, ok)
	assert.Equal(t, 80, soc)
	tt, ok := f.sys.TargetTime()
	assert.True(t, ok)
	assert.Equal(t, "07:30", tt)

	ranges, err := f.sys.OffPeakRanges()
	require.NoError(t, err)
	for i := 1; i < len(ranges); i++ {
		assert.True(t, ranges[i-1].End.Before(ranges[i].Start))
	}
}

func TestStatusView(t *testing.T) {
	f := newFixture(t, utc(15, 13, 30))
	v, err := f.sys.Status()
	require.NoError(t, err)
	assert.Equal(t, account, v.AccountID)
	assert.Nil(t, v.SmartChargingEnabled)
	assert.Len(t, v.OffPeak, 7)
	assert.Equal(t, "23:30-05:30 UTC", v.OffPeakSchedule)

	f.gw.On("FetchCombinedState", mock.Anything, account).Return(model.CombinedState{
		PlannedDispatches: []model.DispatchRecord{
			dispatchAt(utc(15, 13, 0), utc(15, 14, 0), model.SourceSmartCharge),
		},
		CompletedDispatches: []model.DispatchRecord{
			{Start: utc(14, 1, 0), End: utc(14, 2, 0), EnergyDeltaKWh: decimalFromString(t, "-3.5")},
			{Start: utc(14, 3, 0), End: utc(14, 4, 0), EnergyDeltaKWh: decimalFromString(t, "-1.25")},
		},
	}, nil)
	_, err = f.sys.Refresh(context.Background())
	require.NoError(t, err)

	v, err = f.sys.Status()
	require.NoError(t, err)
	require.NotNil(t, v.SmartChargingEnabled)
	assert.True(t, *v.SmartChargingEnabled)
	assert.True(t, v.SmartChargeNow)
	assert.True(t, v.OffPeak["0"])
	assert.False(t, v.OffPeak["60"])
	require.NotNil(t, v.NextOffPeakEnd)
	assert.Equal(t, utc(15, 14, 0), *v.NextOffPeakEnd)
	require.NotNil(t, v.CompletedEnergyKWh)
	assert.Equal(t, "-4.75", v.CompletedEnergyKWh.String())
	assert.Equal(t, 1, v.PlannedDispatches)
}

func TestStatusUsesOneSnapshotPerCall(t *testing.T) {
	f := newFixture(t, utc(15, 13, 30))
	f.sys.holder.Publish(account, model.CombinedState{}, f.now)

	boost := model.CombinedState{PlannedDispatches: []model.DispatchRecord{
		dispatchAt(utc(15, 13, 0), utc(15, 14, 0), model.SourceBumpCharge),
	}}
	published := false
	f.sys.now = func() time.Time {
		// a refresh landing while the view is being built
		if !published {
			published = true
			f.sys.holder.Publish(account, boost, f.now)
		}
		return f.now
	}

	v, err := f.sys.Status()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Generation)
	assert.Equal(t, 0, v.PlannedDispatches)
	assert.False(t, v.BoostChargingNow)

	v, err = f.sys.Status()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v.Generation)
	assert.Equal(t, 1, v.PlannedDispatches)
	assert.True(t, v.BoostChargingNow)
}

func TestNextOffPeakBoundsShareOneInstant(t *testing.T) {
	f := newFixture(t, utc(15, 23, 45))
	start, ok, err := f.sys.NextOffPeakStart()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, utc(15, 23, 30), start)
	end, ok, err := f.sys.NextOffPeakEnd()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, utc(16, 5, 30), end)

	f.now = utc(15, 13, 0)
	_, ok, err = f.sys.NextOffPeakEnd()
	require.NoError(t, err)
	assert.False(t, ok)
}
