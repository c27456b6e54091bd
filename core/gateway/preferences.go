package gateway

import (
	"fmt"
	"math"

	"github.com/kilianp07/smartcharge/core/model"
)

// Provider limits for charge preferences.
const (
	MinTargetSoC  = 10
	MaxTargetSoC  = 100
	SoCStep       = 5
	MinReadyByHrs = 4.0
	MaxReadyByHrs = 11.0
)

// Preferences is a normalised preference mutation ready to be sent.
type Preferences struct {
	TargetTime string
	TargetSoC  int
}

// NormalizePreferences rounds the state of charge up to the next multiple of
// five and the ready-by time to the nearest half hour, then checks both
// against the provider limits.
func NormalizePreferences(readyByHours float64, targetSoC int) (Preferences, error) {
	soc := int(math.Ceil(float64(targetSoC)/SoCStep)) * SoCStep
	if soc < MinTargetSoC || soc > MaxTargetSoC {
		return Preferences{}, fmt.Errorf("%w: target SOC %d%% must be between %d and %d",
			model.ErrInvalidArgument, targetSoC, MinTargetSoC, MaxTargetSoC)
	}
	if math.IsNaN(readyByHours) || math.IsInf(readyByHours, 0) {
		return Preferences{}, fmt.Errorf("%w: ready-by time is not a number", model.ErrInvalidArgument)
	}
	// half-hour rounding, ties to even
	hours := math.RoundToEven(readyByHours*2) / 2
	if hours < MinReadyByHrs || hours > MaxReadyByHrs {
		return Preferences{}, fmt.Errorf("%w: ready-by %.2fh must be between 04:00 and 11:00",
			model.ErrInvalidArgument, readyByHours)
	}
	whole := int(hours)
	minutes := int(math.Round((hours - float64(whole)) * 60))
	return Preferences{
		TargetTime: fmt.Sprintf("%02d:%02d", whole, minutes),
		TargetSoC:  soc,
	}, nil
}

// SoCOptions lists the target SOC values accepted by the provider.
func SoCOptions() []int {
	opts := make([]int, 0, (MaxTargetSoC-MinTargetSoC)/SoCStep+1)
	for v := MinTargetSoC; v <= MaxTargetSoC; v += SoCStep {
		opts = append(opts, v)
	}
	return opts
}

// ReadyByOptions lists the ready-by times accepted by the provider.
func ReadyByOptions() []string {
	var opts []string
	for h := MinReadyByHrs; h <= MaxReadyByHrs; h += 0.5 {
		whole := int(h)
		opts = append(opts, fmt.Sprintf("%02d:%02d", whole, int((h-float64(whole))*60)))
	}
	return opts
}
