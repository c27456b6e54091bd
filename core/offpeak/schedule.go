package offpeak

import (
	"fmt"
	"time"

	"github.com/kilianp07/smartcharge/core/model"
)

const minutesPerDay = 24 * 60

// Schedule is the fixed daily off-peak period expressed as offsets from local
// midnight in Location.
type Schedule struct {
	Start    time.Duration
	End      time.Duration
	Location *time.Location
}

// NewSchedule parses "HH:MM" bounds. A nil location defaults to UTC.
func NewSchedule(start, end string, loc *time.Location) (Schedule, error) {
	s, err := model.ParseClock(start)
	if err != nil {
		return Schedule{}, fmt.Errorf("off-peak start: %w", err)
	}
	e, err := model.ParseClock(end)
	if err != nil {
		return Schedule{}, fmt.Errorf("off-peak end: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Schedule{Start: s, End: e, Location: loc}, nil
}

// Wraps reports whether the daily window crosses midnight.
func (s Schedule) Wraps() bool { return s.End < s.Start }

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// IsFixedOffPeak reports whether t falls inside the daily window using local
// minute-of-day arithmetic. Both bounds are inclusive.
func (s Schedule) IsFixedOffPeak(t time.Time) bool {
	local := t.In(s.location())
	now := local.Hour()*60 + local.Minute()
	start := int(s.Start / time.Minute)
	end := int(s.End / time.Minute)
	if s.Wraps() {
		return (now >= start && now < minutesPerDay) || (now >= 0 && now <= end)
	}
	return now >= start && now <= end
}

// Window returns the fixed range that starts on the local calendar day of
// day. When the schedule wraps, the range ends on the following day.
func (s Schedule) Window(day time.Time) model.TimeRange {
	loc := s.location()
	local := day.In(loc)
	y, m, d := local.Date()
	endDay := d
	if s.Wraps() {
		endDay++
	}
	return model.TimeRange{
		Start: clockOn(y, m, d, s.Start, loc).UTC(),
		End:   clockOn(y, m, endDay, s.End, loc).UTC(),
	}
}

// Windows builds the fixed ranges for the day before t, the day of t and the
// two following days, so the ranges around t are complete whatever the hour.
func (s Schedule) Windows(t time.Time) []model.TimeRange {
	local := t.In(s.location())
	y, m, d := local.Date()
	out := make([]model.TimeRange, 0, 4)
	for offset := -1; offset <= 2; offset++ {
		day := time.Date(y, m, d+offset, 12, 0, 0, 0, s.location())
		out = append(out, s.Window(day))
	}
	return out
}

// String renders the schedule as "HH:MM-HH:MM zone".
func (s Schedule) String() string {
	return fmt.Sprintf("%s-%s %s", model.FormatClock(s.Start), model.FormatClock(s.End), s.location())
}

// clockOn builds the wall-clock instant at offset on the given local date.
// time.Date normalises day overflow and DST gaps.
func clockOn(y int, m time.Month, d int, offset time.Duration, loc *time.Location) time.Time {
	mins := int(offset / time.Minute)
	return time.Date(y, m, d, mins/60, mins%60, 0, 0, loc)
}
