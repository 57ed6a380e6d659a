package remux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var commandContext = exec.CommandContext

const ffmpegName = "ffmpeg"

// Probed in order when ffmpeg is neither configured nor on PATH.
var wellKnownFFmpegPaths = []string{
	"/opt/homebrew/bin/ffmpeg",
	"/usr/local/bin/ffmpeg",
	"/usr/bin/ffmpeg",
}

// ErrToolNotFound reports that no remux executable could be resolved.
var ErrToolNotFound = errors.New("remux tool not found")

const tsSyncByte = 0x47

// IsTransportStreamFile reports whether the file starts with MPEG-TS sync
// bytes at offsets 0, 188, and 376. Both secondary offsets are required so a
// lone 0x47 first byte is not misclassified.
func IsTransportStreamFile(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	header := make([]byte, 377)
	if _, err := io.ReadFull(file, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, fmt.Errorf("read recording header: %w", err)
	}
	return header[0] == tsSyncByte && header[188] == tsSyncByte && header[376] == tsSyncByte, nil
}

// ResolveFFmpeg returns the remux executable to run. A non-empty override
// wins; otherwise PATH is consulted, then the well-known install locations.
func ResolveFFmpeg(override string) (string, error) {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		if !isExecutableFile(trimmed) {
			return "", fmt.Errorf("%w: configured path %q is not executable", ErrToolNotFound, trimmed)
		}
		return trimmed, nil
	}
	if path, err := exec.LookPath(ffmpegName); err == nil {
		return path, nil
	}
	for _, candidate := range wellKnownFFmpegPaths {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s is not installed in PATH or well-known locations", ErrToolNotFound, ffmpegName)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// remuxArgs is the fixed ffmpeg contract: stream copy into an MP4 container
// with a faststart moov atom and ADTS-to-ASC audio bitstream conversion.
func remuxArgs(input, output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", input,
		"-c", "copy",
		"-movflags", "+faststart",
		"-bsf:a", "aac_adtstoasc",
		output,
	}
}

// PrepareForPlayback remuxes path in place when it is classified as a
// mis-contained transport stream, atomically replacing the original with the
// repackaged sibling. It reports whether a remux occurred.
func PrepareForPlayback(ctx context.Context, path, overridePath string) (bool, error) {
	isTS, err := IsTransportStreamFile(path)
	if err != nil {
		return false, err
	}
	if !isTS {
		return false, nil
	}

	tool, err := ResolveFFmpeg(overridePath)
	if err != nil {
		return false, err
	}

	ext := filepath.Ext(path)
	tmp := strings.TrimSuffix(path, ext) + ".remux.mp4"
	cmd := commandContext(ctx, tool, remuxArgs(path, tmp)...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmp)
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return false, fmt.Errorf("remux %s: %w: %s", filepath.Base(path), err, detail)
		}
		return false, fmt.Errorf("remux %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("replace original with remuxed file: %w", err)
	}
	return true, nil
}
