package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/factory"
)

type recordSink struct {
	refresh  int
	state    int
	mutation int
	err      error
}

func (r *recordSink) RecordRefresh(RefreshEvent) error {
	r.refresh++
	return r.err
}

func (r *recordSink) RecordChargeState(ChargeStateEvent) error {
	r.state++
	return nil
}

type refreshOnly struct{ count int }

func (r *refreshOnly) RecordRefresh(RefreshEvent) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &refreshOnly{}
	m := NewMultiSink(s1, s2)
	require.NoError(t, m.RecordRefresh(RefreshEvent{}))
	require.NoError(t, m.RecordChargeState(ChargeStateEvent{}))
	require.NoError(t, m.RecordMutation(MutationEvent{}))
	assert.Equal(t, 1, s1.refresh)
	assert.Equal(t, 1, s1.state)
	assert.Equal(t, 0, s1.mutation)
	assert.Equal(t, 1, s2.count)
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &refreshOnly{}
	err := NewMultiSink(s1, s2).RecordRefresh(RefreshEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s2.count)
}

func TestNewMetricsSink(t *testing.T) {
	require.NoError(t, RegisterMetricsSink("test-record", func(map[string]any) (MetricsSink, error) {
		return &refreshOnly{}, nil
	}))

	assert.Contains(t, SinkTypes(), "test-record")

	s, err := NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}})
	require.NoError(t, err)
	assert.IsType(t, &refreshOnly{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}, {Type: "test-record"}})
	require.NoError(t, err)
	multi, ok := s.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, multi.Sinks, 2)

	_, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}, {Type: "missing"}})
	assert.Error(t, err)
}
