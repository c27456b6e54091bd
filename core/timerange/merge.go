// Package timerange coalesces overlapping time ranges.
package timerange

import (
	"fmt"
	"sort"

	"github.com/kilianp07/smartcharge/core/model"
)

// Merge sorts ranges by start and coalesces every pair that overlaps or
// touches, returning strictly disjoint ranges in ascending order. The input
// slice is left untouched.
func Merge(ranges []model.TimeRange) ([]model.TimeRange, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: merge needs at least one range", model.ErrInvalidArgument)
	}
	sorted := make([]model.TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]model.TimeRange, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		// touching ranges are merged too
		if !next.Start.After(cur.End) {
			if next.End.After(cur.End) {
				cur.End = next.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur), nil
}
