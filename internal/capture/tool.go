package capture

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const toolName = "streamlink"

// Probed in order when the tool is neither configured nor on PATH.
var wellKnownToolPaths = []string{
	"/opt/homebrew/bin/streamlink",
	"/usr/local/bin/streamlink",
	"/usr/bin/streamlink",
}

// ErrToolNotFound reports that no capture executable could be resolved.
var ErrToolNotFound = errors.New("capture tool not found")

// ResolveTool returns the capture executable to spawn. A non-empty override
// wins; otherwise PATH is consulted, then the well-known install locations.
func ResolveTool(override string) (string, error) {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		if !isExecutableFile(trimmed) {
			return "", fmt.Errorf("%w: configured path %q is not executable", ErrToolNotFound, trimmed)
		}
		return trimmed, nil
	}
	if path, err := exec.LookPath(toolName); err == nil {
		return path, nil
	}
	for _, candidate := range wellKnownToolPaths {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s is not installed in PATH or well-known locations", ErrToolNotFound, toolName)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
