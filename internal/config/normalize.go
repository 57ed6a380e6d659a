package config

import "strings"

// normalize expands paths and trims user-supplied string values in place.
func (c *Config) normalize() error {
	var err error
	if c.Paths.RecordingsDir, err = expandPath(strings.TrimSpace(c.Paths.RecordingsDir)); err != nil {
		return err
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}

	c.Capture.ToolPath = strings.TrimSpace(c.Capture.ToolPath)
	if c.Capture.ToolPath != "" {
		if c.Capture.ToolPath, err = expandPath(c.Capture.ToolPath); err != nil {
			return err
		}
	}
	c.Capture.Quality = strings.TrimSpace(c.Capture.Quality)
	if c.Capture.Quality == "" {
		c.Capture.Quality = defaultQuality
	}

	c.Agent.StatePath = strings.TrimSpace(c.Agent.StatePath)
	if c.Agent.StatePath != "" {
		if c.Agent.StatePath, err = expandPath(c.Agent.StatePath); err != nil {
			return err
		}
	}
	if c.Agent.PollIntervalSeconds <= 0 {
		c.Agent.PollIntervalSeconds = defaultPollInterval
	}

	c.Remux.FFmpegPath = strings.TrimSpace(c.Remux.FFmpegPath)
	if c.Remux.FFmpegPath != "" {
		if c.Remux.FFmpegPath, err = expandPath(c.Remux.FFmpegPath); err != nil {
			return err
		}
	}

	logins := make([]string, 0, len(c.Policy.AutoRecord))
	seen := make(map[string]struct{}, len(c.Policy.AutoRecord))
	for _, login := range c.Policy.AutoRecord {
		trimmed := strings.ToLower(strings.TrimSpace(login))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		logins = append(logins, trimmed)
	}
	c.Policy.AutoRecord = logins

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
