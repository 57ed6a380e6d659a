package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RecordingsDir string `toml:"recordings_dir"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
}

// Capture contains settings for spawning capture processes.
type Capture struct {
	ToolPath      string `toml:"tool_path"`
	Quality       string `toml:"quality"`
	MaxConcurrent int    `toml:"max_concurrent"`
}

// Agent contains settings for the background reconciler agent.
type Agent struct {
	StatePath           string  `toml:"state_path"`
	PollIntervalSeconds float64 `toml:"poll_interval_seconds"`
}

// Retention contains pruning limits for finalized recordings.
// A zero value disables the corresponding limit.
type Retention struct {
	MaxAgeDays    int `toml:"max_age_days"`
	MaxRecordings int `toml:"max_recordings"`
	MaxPerChannel int `toml:"max_per_channel"`
}

// Remux contains settings for container finalization.
type Remux struct {
	FFmpegPath string `toml:"ffmpeg_path"`
}

// Policy contains the auto-record channel allow list.
type Policy struct {
	AutoRecord []string `toml:"auto_record"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for streamvault.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Capture   Capture   `toml:"capture"`
	Agent     Agent     `toml:"agent"`
	Retention Retention `toml:"retention"`
	Remux     Remux     `toml:"remux"`
	Policy    Policy    `toml:"policy"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/streamvault/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the host and agent need at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RecordingsDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the IPC socket used by the CLI to reach the host process.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "streamvault.sock")
}

// IntentDBPath returns the recovery-intent database location.
func (c *Config) IntentDBPath() string {
	return filepath.Join(c.Paths.StateDir, "intents.db")
}

// VaultKeyPath returns the persistent encryption key location.
func (c *Config) VaultKeyPath() string {
	return filepath.Join(c.Paths.StateDir, "vault.key")
}

// DesiredStatePath returns the desired-state file polled by the agent.
func (c *Config) DesiredStatePath() string {
	if strings.TrimSpace(c.Agent.StatePath) != "" {
		return c.Agent.StatePath
	}
	return filepath.Join(c.Paths.StateDir, "desired-state.json")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
