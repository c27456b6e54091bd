package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock converts an "HH:MM" string to an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: clock %q is not HH:MM", ErrInvalidArgument, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: clock %q has invalid hour", ErrInvalidArgument, s)
	}
	// provider values sometimes carry seconds ("05:30:00")
	mm, _, _ = strings.Cut(mm, ":")
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: clock %q has invalid minute", ErrInvalidArgument, s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	mins := int(d/time.Minute) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// HoursAfterMidnight converts an "HH:MM" string to fractional hours.
func HoursAfterMidnight(s string) (float64, error) {
	d, err := ParseClock(s)
	if err != nil {
		return 0, err
	}
	return d.Hours(), nil
}
