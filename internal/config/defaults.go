package config

const (
	defaultRecordingsDir = "~/recordings"
	defaultStateDir      = "~/.local/share/streamvault"
	defaultLogDir        = "~/.local/share/streamvault/logs"
	defaultQuality       = "best"
	defaultMaxConcurrent = 4
	defaultPollInterval  = 2.0
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RecordingsDir: defaultRecordingsDir,
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
		},
		Capture: Capture{
			Quality:       defaultQuality,
			MaxConcurrent: defaultMaxConcurrent,
		},
		Agent: Agent{
			PollIntervalSeconds: defaultPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
