package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/model"
)

func TestNormalizeRoundsSoCUp(t *testing.T) {
	p, err := NormalizePreferences(7, 77)
	require.NoError(t, err)
	assert.Equal(t, 80, p.TargetSoC)
	assert.Equal(t, "07:00", p.TargetTime)

	p, err = NormalizePreferences(7, 80)
	require.NoError(t, err)
	assert.Equal(t, 80, p.TargetSoC)
}

func TestNormalizeReadyByBelowFloor(t *testing.T) {
	hours, err := model.HoursAfterMidnight("03:40")
	require.NoError(t, err)
	_, err = NormalizePreferences(hours, 80)
	assert.True(t, errors.Is(err, model.ErrInvalidArgument), "got %v", err)
}

func TestNormalizeReadyByRounding(t *testing.T) {
	cases := map[string]string{
		"04:10": "04:00",
		"04:20": "04:30",
		"10:50": "11:00",
		"08:30": "08:30",
		"03:50": "04:00",
	}
	for in, want := range cases {
		h, err := model.HoursAfterMidnight(in)
		require.NoError(t, err)
		p, err := NormalizePreferences(h, 50)
		require.NoError(t, err, in)
		assert.Equal(t, want, p.TargetTime, in)
	}
}

func TestNormalizeOutOfRange(t *testing.T) {
	for _, tc := range []struct {
		hours float64
		soc   int
	}{
		{8, 5},
		{8, 101},
		{11.3, 50},
		{3.7, 50},
	} {
		_, err := NormalizePreferences(tc.hours, tc.soc)
		assert.ErrorIs(t, err, model.ErrInvalidArgument, fmt.Sprintf("%v", tc))
	}
}

func TestOptions(t *testing.T) {
	soc := SoCOptions()
	assert.Equal(t, 10, soc[0])
	assert.Equal(t, 100, soc[len(soc)-1])
	assert.Len(t, soc, 19)

	times := ReadyByOptions()
	assert.Equal(t, "04:00", times[0])
	assert.Equal(t, "04:30", times[1])
	assert.Equal(t, "11:00", times[len(times)-1])
	assert.Len(t, times, 15)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindAuth, Op: "fetch", Err: errors.New("expired")})
	assert.True(t, IsRetryable(err))
	assert.Equal(t, KindAuth, KindOf(err))
	assert.False(t, IsRetryable(&Error{Kind: KindQuery, Op: "set", Err: errors.New("bad")}))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, "query", KindQuery.String())
}
