package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"streamvault/internal/capture"
	"streamvault/internal/fileutil"
)

// StateVersion is the current desired-state document version.
const StateVersion = 1

// DesiredChannel names one channel that should be recording.
type DesiredChannel struct {
	Login       string `json:"login"`
	DisplayName string `json:"displayName,omitempty"`
}

// DesiredState is the document polled by the background agent. It is the only
// channel of communication between the foreground application and the agent.
type DesiredState struct {
	Version             int              `json:"version"`
	Enabled             bool             `json:"enabled"`
	CaptureToolPath     string           `json:"captureToolPath,omitempty"`
	RecordingsDirectory string           `json:"recordingsDirectory"`
	Quality             string           `json:"quality"`
	PollIntervalSeconds float64          `json:"pollIntervalSeconds"`
	Channels            []DesiredChannel `json:"channels"`
}

// PollInterval converts the configured poll cadence, falling back to def when
// unset or nonsensical.
func (s DesiredState) PollInterval(def time.Duration) time.Duration {
	if s.PollIntervalSeconds <= 0 {
		return def
	}
	return time.Duration(s.PollIntervalSeconds * float64(time.Second))
}

// NormalizeChannels trims and case-folds logins, drops empties, de-duplicates
// keeping the first occurrence, and sorts case-insensitively by login.
func NormalizeChannels(channels []DesiredChannel) []DesiredChannel {
	seen := make(map[string]struct{}, len(channels))
	out := make([]DesiredChannel, 0, len(channels))
	for _, ch := range channels {
		login := capture.NormalizeLogin(ch.Login)
		if login == "" {
			continue
		}
		if _, dup := seen[login]; dup {
			continue
		}
		seen[login] = struct{}{}
		display := strings.TrimSpace(ch.DisplayName)
		if display == "" {
			display = login
		}
		out = append(out, DesiredChannel{Login: login, DisplayName: display})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Login) < strings.ToLower(out[j].Login)
	})
	return out
}

// LoadState reads and decodes the desired-state file.
func LoadState(path string) (DesiredState, error) {
	var state DesiredState
	data, err := os.ReadFile(path)
	if err != nil {
		return state, fmt.Errorf("read desired state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("decode desired state: %w", err)
	}
	return state, nil
}

// LoadStateIfModified re-reads the file only when its modification time has
// advanced past since. It returns nil when the file is unchanged. A missing
// file is reported as unchanged so the caller keeps its last-known-good state.
func LoadStateIfModified(path string, since time.Time) (*DesiredState, time.Time, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, since, nil
	}
	if err != nil {
		return nil, since, fmt.Errorf("stat desired state: %w", err)
	}
	if !info.ModTime().After(since) {
		return nil, since, nil
	}
	state, err := LoadState(path)
	if err != nil {
		return nil, since, err
	}
	return &state, info.ModTime(), nil
}

// WriteState atomically writes the desired-state file.
func WriteState(path string, state DesiredState) error {
	state.Version = StateVersion
	state.Channels = NormalizeChannels(state.Channels)
	if state.Channels == nil {
		state.Channels = []DesiredChannel{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode desired state: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
