package queue

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config configures the pull fallback.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// StaleAfter is how long a claim may stay unfinished before the sweeper
	// releases it.
	StaleAfter time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
	// SweepSchedule is a cron spec; descriptors like "@every 1m" work too.
	SweepSchedule string `yaml:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.StaleAfter <= 0 {
		c.StaleAfter = 10 * time.Minute
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = "@every 1m"
	}
}

// Validate checks the sweep schedule parses.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("queue.sweep_schedule: %w", err)
	}
	return nil
}
