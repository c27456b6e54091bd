package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/kilianp07/smartcharge/core/offpeak"
)

// OffPeakConfig is the fixed daily off-peak window of the tariff.
type OffPeakConfig struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// SetDefaults applies the Intelligent Octopus window.
func (c *OffPeakConfig) SetDefaults() {
	if c.Start == "" {
		c.Start = "23:30"
	}
	if c.End == "" {
		c.End = "05:30"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/London"
	}
}

// Validate parses the window and the timezone.
func (c OffPeakConfig) Validate() error {
	_, err := c.Schedule()
	return err
}

// Schedule builds the off-peak schedule.
func (c OffPeakConfig) Schedule() (offpeak.Schedule, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return offpeak.Schedule{}, fmt.Errorf("offpeak timezone: %w", err)
	}
	return offpeak.NewSchedule(c.Start, c.End, loc)
}
