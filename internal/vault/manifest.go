package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"streamvault/internal/fileutil"
)

// Entry describes one encrypted recording, keyed in the manifest by its
// opaque artifact name.
type Entry struct {
	ChannelName      string    `json:"channelName"`
	Date             time.Time `json:"date"`
	Quality          string    `json:"quality"`
	OriginalFilename string    `json:"originalFilename"`
}

// Manifest maps artifact names to recording metadata.
type Manifest map[string]Entry

// LoadManifest reads and decrypts the manifest in dir. A missing manifest is
// an empty index, not an error; a decode failure is an *IntegrityError.
func (v *Vault) LoadManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	plaintext, err := v.Decrypt(blob)
	if err != nil {
		var integrity *IntegrityError
		if errors.As(err, &integrity) {
			return nil, &IntegrityError{Op: "load manifest", Path: path, Err: integrity.Err}
		}
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(plaintext, &manifest); err != nil {
		return nil, &IntegrityError{Op: "decode manifest", Path: path, Err: err}
	}
	if manifest == nil {
		manifest = Manifest{}
	}
	return manifest, nil
}

// SaveManifest encrypts and atomically writes the manifest in dir.
func (v *Vault) SaveManifest(dir string, manifest Manifest) error {
	plaintext, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	blob, err := v.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(filepath.Join(dir, ManifestName), blob, 0o600)
}

const recordingTimestampLayout = "2006-01-02_15-04-05"

// entryForRecording derives manifest metadata from the recording filename
// convention `<name>_<YYYY-MM-DD_HH-mm-ss>.mp4`, falling back to the file
// modification time when the stamp is absent.
func entryForRecording(filename, quality string, modTime time.Time) Entry {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	entry := Entry{
		ChannelName:      stem,
		Date:             modTime.UTC(),
		Quality:          quality,
		OriginalFilename: filename,
	}
	if len(stem) > len(recordingTimestampLayout)+1 {
		split := len(stem) - len(recordingTimestampLayout)
		if stem[split-1] == '_' {
			if ts, err := time.ParseInLocation(recordingTimestampLayout, stem[split:], time.Local); err == nil {
				entry.ChannelName = stem[:split-1]
				entry.Date = ts.UTC()
			}
		}
	}
	return entry
}
