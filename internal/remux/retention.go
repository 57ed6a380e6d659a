package remux

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"streamvault/internal/logging"
	"streamvault/internal/vault"
)

// Policy holds the retention limits. A zero value disables a limit.
type Policy struct {
	MaxAgeDays    int
	MaxTotal      int
	MaxPerChannel int
}

// Enabled reports whether any limit is configured.
func (p Policy) Enabled() bool {
	return p.MaxAgeDays > 0 || p.MaxTotal > 0 || p.MaxPerChannel > 0
}

// PruneReport aggregates per-file outcomes of a pruning pass.
type PruneReport struct {
	Removed int
	Failed  int
}

type agedArtifact struct {
	name  string
	entry vault.Entry
}

// Prune removes encrypted recordings oldest-first until every configured
// limit is satisfied. Limits apply in order: age, per-channel count, global
// count. Per-file deletion failures do not block the remaining set.
func Prune(dir string, v *vault.Vault, policy Policy, now time.Time, logger *slog.Logger) (PruneReport, error) {
	var report PruneReport
	if !policy.Enabled() {
		return report, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	manifest, err := v.LoadManifest(dir)
	if err != nil {
		return report, err
	}

	artifacts := make([]agedArtifact, 0, len(manifest))
	for name, entry := range manifest {
		artifacts = append(artifacts, agedArtifact{name: name, entry: entry})
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].entry.Date.Before(artifacts[j].entry.Date)
	})

	doomed := make(map[string]struct{})

	if policy.MaxAgeDays > 0 {
		cutoff := now.AddDate(0, 0, -policy.MaxAgeDays)
		for _, artifact := range artifacts {
			if artifact.entry.Date.Before(cutoff) {
				doomed[artifact.name] = struct{}{}
			}
		}
	}

	if policy.MaxPerChannel > 0 {
		kept := make(map[string]int)
		// Walk newest-first so the most recent recordings per channel survive.
		for i := len(artifacts) - 1; i >= 0; i-- {
			artifact := artifacts[i]
			if _, gone := doomed[artifact.name]; gone {
				continue
			}
			channel := strings.ToLower(artifact.entry.ChannelName)
			kept[channel]++
			if kept[channel] > policy.MaxPerChannel {
				doomed[artifact.name] = struct{}{}
			}
		}
	}

	if policy.MaxTotal > 0 {
		remaining := 0
		for _, artifact := range artifacts {
			if _, gone := doomed[artifact.name]; !gone {
				remaining++
			}
		}
		for _, artifact := range artifacts {
			if remaining <= policy.MaxTotal {
				break
			}
			if _, gone := doomed[artifact.name]; gone {
				continue
			}
			doomed[artifact.name] = struct{}{}
			remaining--
		}
	}

	if len(doomed) == 0 {
		return report, nil
	}

	for _, artifact := range artifacts {
		if _, gone := doomed[artifact.name]; !gone {
			continue
		}
		path := filepath.Join(dir, artifact.name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			report.Failed++
			logger.Warn("retention delete failed; recording remains",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "retention_delete_failed"),
				logging.String(logging.FieldErrorHint, "check recordings directory permissions"),
			)
			continue
		}
		delete(manifest, artifact.name)
		report.Removed++
		logger.Info("recording pruned",
			logging.String("artifact", artifact.name),
			logging.String(logging.FieldChannel, artifact.entry.ChannelName),
			logging.Time("recorded_at", artifact.entry.Date),
			logging.String(logging.FieldEventType, "recording_pruned"),
		)
	}

	if report.Removed > 0 {
		if err := v.SaveManifest(dir, manifest); err != nil {
			return report, err
		}
	}
	return report, nil
}
