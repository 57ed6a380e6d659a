package capture

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const outputTimestampLayout = "2006-01-02_15-04-05"

var loginFolder = cases.Fold()

// Args builds the fixed capture argument contract: target, quality, the
// ad-disable and low-latency flags, and the output destination.
func Args(target, quality, outputPath string) []string {
	return []string{
		target,
		quality,
		"--twitch-disable-ads",
		"--twitch-low-latency",
		"--output", outputPath,
	}
}

// NormalizeLogin canonicalizes a channel login: surrounding whitespace is
// trimmed, a URL-style target is reduced to its last path segment, and the
// result is case folded so lookups never split on letter case.
func NormalizeLogin(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return loginFolder.String(strings.TrimSpace(trimmed))
}

// TargetForLogin derives the capture target for a bare channel login. Values
// that already look like a target are passed through unchanged.
func TargetForLogin(login string) string {
	if strings.Contains(login, "/") {
		return login
	}
	return "twitch.tv/" + login
}

// OutputFilename builds the timestamped recording filename for a channel
// display name: `<sanitized-name>_<YYYY-MM-DD_HH-mm-ss>.mp4`.
func OutputFilename(displayName string, ts time.Time) string {
	return sanitizeName(displayName) + "_" + ts.Format(outputTimestampLayout) + ".mp4"
}

func sanitizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = "recording"
	}
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '/' || r == '\\' || r == 0:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
