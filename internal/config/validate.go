package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.RecordingsDir == "" {
		return errors.New("paths.recordings_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Capture.MaxConcurrent <= 0 {
		return errors.New("capture.max_concurrent must be positive")
	}
	if c.Agent.PollIntervalSeconds <= 0 {
		return errors.New("agent.poll_interval_seconds must be positive")
	}
	for key, value := range map[string]int{
		"retention.max_age_days":    c.Retention.MaxAgeDays,
		"retention.max_recordings":  c.Retention.MaxRecordings,
		"retention.max_per_channel": c.Retention.MaxPerChannel,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
