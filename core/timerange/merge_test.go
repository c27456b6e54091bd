package timerange

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/model"
)

var base = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func rng(h1, m1, h2, m2 int) model.TimeRange {
	return model.TimeRange{Start: at(h1, m1), End: at(h2, m2)}
}

func TestMergeEmpty(t *testing.T) {
	_, err := Merge(nil)
	if !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument got %v", err)
	}
}

func TestMergeTouching(t *testing.T) {
	out, err := Merge([]model.TimeRange{rng(11, 0, 12, 0), rng(10, 0, 11, 0)})
	require.NoError(t, err)
	assert.Equal(t, []model.TimeRange{rng(10, 0, 12, 0)}, out)
}

func TestMergeNested(t *testing.T) {
	out, err := Merge([]model.TimeRange{rng(10, 0, 11, 0), rng(10, 30, 10, 45)})
	require.NoError(t, err)
	assert.Equal(t, []model.TimeRange{rng(10, 0, 11, 0)}, out)
}

func TestMergeKeepsGaps(t *testing.T) {
	in := []model.TimeRange{rng(13, 0, 14, 0), rng(9, 0, 10, 0), rng(9, 30, 10, 30)}
	out, err := Merge(in)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeRange{rng(9, 0, 10, 30), rng(13, 0, 14, 0)}, out)
	// input is not reordered
	assert.Equal(t, rng(13, 0, 14, 0), in[0])
}

func TestMergeSingle(t *testing.T) {
	out, err := Merge([]model.TimeRange{rng(1, 0, 1, 0)})
	require.NoError(t, err)
	assert.Equal(t, []model.TimeRange{rng(1, 0, 1, 0)}, out)
}

// Randomised check: output is sorted, strictly disjoint and covers exactly
// the same minutes as the input.
func TestMergeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := 1 + r.Intn(12)
		in := make([]model.TimeRange, n)
		for i := range in {
			start := r.Intn(24 * 60)
			length := r.Intn(180)
			in[i] = model.TimeRange{
				Start: base.Add(time.Duration(start) * time.Minute),
				End:   base.Add(time.Duration(start+length) * time.Minute),
			}
		}
		out, err := Merge(in)
		require.NoError(t, err)
		for i := 1; i < len(out); i++ {
			if !out[i-1].End.Before(out[i].Start) {
				t.Fatalf("iteration %d: ranges %v and %v not strictly disjoint", iter, out[i-1], out[i])
			}
		}
		for m := 0; m < 27*60; m++ {
			ts := base.Add(time.Duration(m) * time.Minute)
			if covered(in, ts) != covered(out, ts) {
				t.Fatalf("iteration %d: coverage differs at %s", iter, ts)
			}
		}
	}
}

func covered(rs []model.TimeRange, ts time.Time) bool {
	for _, r := range rs {
		if r.Contains(ts) {
			return true
		}
	}
	return false
}
