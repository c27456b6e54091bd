package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/smartcharge/core/model"
)

type memSource struct {
	value string
	sets  int
}

func (m *memSource) LastSeenSource() string     { return m.value }
func (m *memSource) SetLastSeenSource(s string) { m.value = s; m.sets++ }

func rec(source string) model.DispatchRecord {
	start := time.Date(2025, 1, 15, 1, 0, 0, 0, time.UTC)
	return model.DispatchRecord{Start: start, End: start.Add(time.Hour), Source: source}
}

func TestClassifyBackfillsSingleSource(t *testing.T) {
	store := &memSource{value: "smart-charge"}
	c := NewClassifier(store, nil)
	in := []model.DispatchRecord{rec(model.SourceSmartCharge), rec("")}
	out := c.Classify(in)
	assert.Equal(t, model.SourceSmartCharge, out[1].Source)
	assert.Equal(t, model.SourceSmartCharge, store.value)
	assert.Equal(t, "", in[1].Source, "input must not be modified")
}

func TestClassifyLearnsNewSource(t *testing.T) {
	store := &memSource{value: model.SourceSmartCharge}
	c := NewClassifier(store, nil)
	out := c.Classify([]model.DispatchRecord{rec(model.SourceBumpCharge), rec("")})
	assert.Equal(t, model.SourceBumpCharge, out[1].Source)
	assert.Equal(t, model.SourceBumpCharge, store.value)
}

func TestClassifyMixedResets(t *testing.T) {
	store := &memSource{value: model.SourceSmartCharge}
	c := NewClassifier(store, nil)
	out := c.Classify([]model.DispatchRecord{rec(model.SourceSmartCharge), rec(model.SourceBumpCharge), rec("")})
	assert.Equal(t, "", store.value)
	assert.Equal(t, "", out[2].Source)
	assert.Equal(t, model.SourceSmartCharge, out[0].Source)
	assert.Equal(t, model.SourceBumpCharge, out[1].Source)
}

func TestClassifyUntaggedKeepsState(t *testing.T) {
	store := &memSource{value: model.SourceBumpCharge}
	c := NewClassifier(store, nil)
	out := c.Classify([]model.DispatchRecord{rec(""), rec("")})
	assert.Equal(t, 0, store.sets)
	for _, r := range out {
		assert.Equal(t, model.SourceBumpCharge, r.Source)
	}
}

func TestClassifyEmptyStateLeavesUnclassified(t *testing.T) {
	res := Classify([]model.DispatchRecord{rec("")}, "")
	assert.Equal(t, "", res.Records[0].Source)
	assert.False(t, res.Mixed)
	assert.Empty(t, res.Sources)
}

func TestClassifyEmptyBatch(t *testing.T) {
	res := Classify(nil, model.SourceSmartCharge)
	assert.Empty(t, res.Records)
	assert.Equal(t, model.SourceSmartCharge, res.LastSeen)
}

func TestClassifySourcesSorted(t *testing.T) {
	res := Classify([]model.DispatchRecord{rec("smart-charge"), rec("bump-charge"), rec("smart-charge")}, "x")
	assert.Equal(t, []string{"bump-charge", "smart-charge"}, res.Sources)
	assert.True(t, res.Mixed)
}
