package vault

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"streamvault/internal/fileutil"
	"streamvault/internal/logging"
)

const tempPlaybackPrefix = "streamvault-play-"

// plaintextExtensions are the container types migration treats as legacy
// unencrypted recordings.
var plaintextExtensions = map[string]struct{}{
	".mp4": {},
	".ts":  {},
}

// EncryptFile encrypts the plaintext recording at path, writes it beside the
// original under a freshly generated artifact name, removes the plaintext,
// and returns the artifact name with its manifest entry.
func (v *Vault) EncryptFile(path, quality string) (string, Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", Entry{}, fmt.Errorf("stat recording: %w", err)
	}
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return "", Entry{}, fmt.Errorf("read recording: %w", err)
	}
	blob, err := v.Encrypt(plaintext)
	if err != nil {
		return "", Entry{}, err
	}

	base := filepath.Base(path)
	name, err := GenerateHashFilename(base)
	if err != nil {
		return "", Entry{}, err
	}
	dest := filepath.Join(filepath.Dir(path), name)
	if err := fileutil.WriteFileAtomic(dest, blob, 0o600); err != nil {
		return "", Entry{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Remove(path); err != nil {
		// The artifact is already durable; leaving the plaintext behind
		// would double-migrate it on the next run.
		_ = os.Remove(dest)
		return "", Entry{}, fmt.Errorf("remove plaintext: %w", err)
	}
	return name, entryForRecording(base, quality, info.ModTime()), nil
}

// DecryptFile writes the decrypted bytes of a named artifact in dir to dest.
func (v *Vault) DecryptFile(name, dir, dest string) error {
	blob, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	plaintext, err := v.Decrypt(blob)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, plaintext, 0o600)
}

// MigrationReport aggregates per-file outcomes of a migration pass.
type MigrationReport struct {
	Migrated int
	Skipped  int
	Failed   int
}

// MigrateUnencrypted encrypts every legacy plaintext recording in dir except
// those matching an active session output. Per-file failures do not abort
// the batch. Running it again on a migrated directory performs zero work.
func (v *Vault) MigrateUnencrypted(dir string, activeOutputs map[string]struct{}, quality string, logger *slog.Logger) (MigrationReport, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var report MigrationReport

	manifest, err := v.LoadManifest(dir)
	if err != nil {
		return report, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read recordings directory: %w", err)
	}

	changed := false
	for _, dirEntry := range entries {
		if dirEntry.IsDir() {
			continue
		}
		name := dirEntry.Name()
		if _, ok := plaintextExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		path := filepath.Join(dir, name)
		if isActiveOutput(path, activeOutputs) {
			report.Skipped++
			logger.Info("migration skipped active recording",
				logging.String("path", path),
				logging.String(logging.FieldEventType, "migration_skipped_active"),
			)
			continue
		}

		artifact, entry, err := v.EncryptFile(path, quality)
		if err != nil {
			report.Failed++
			logger.Warn("migration failed for recording; continuing",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "migration_file_failed"),
				logging.String(logging.FieldErrorHint, "check file permissions and disk space"),
			)
			continue
		}
		manifest[artifact] = entry
		changed = true
		report.Migrated++
	}

	if changed {
		if err := v.SaveManifest(dir, manifest); err != nil {
			return report, err
		}
	}
	return report, nil
}

func isActiveOutput(path string, activeOutputs map[string]struct{}) bool {
	if len(activeOutputs) == 0 {
		return false
	}
	if _, ok := activeOutputs[path]; ok {
		return true
	}
	if abs, err := filepath.Abs(path); err == nil {
		if _, ok := activeOutputs[abs]; ok {
			return true
		}
	}
	return false
}

// TempPlaybackPath returns the shared-temp location for a decrypted playback
// copy of the given original filename.
func TempPlaybackPath(originalFilename string) string {
	return filepath.Join(os.TempDir(), tempPlaybackPrefix+filepath.Base(originalFilename))
}

// CleanupTempPlayback removes temporary decrypted playback copies in the
// shared temp location, regardless of which process created them.
func CleanupTempPlayback() (int, error) {
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), tempPlaybackPrefix+"*"))
	if err != nil {
		return 0, fmt.Errorf("glob temp playback files: %w", err)
	}
	removed := 0
	var firstErr error
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
