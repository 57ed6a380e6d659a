// Command streamvaultd is the background reconciler agent. It polls a
// desired-state file and keeps capture processes in sync with it,
// independently of the foreground application's lifetime.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"streamvault/internal/agent"
	"streamvault/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("streamvaultd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	statePath := fs.String("state", "", "path to the desired-state file (required)")
	lockDir := fs.String("lock-dir", "", "directory for session lock files (default: locks/ beside the state file)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "console", "log format: console or json")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *statePath == "" {
		fmt.Fprintln(os.Stderr, "streamvaultd: -state flag is required")
		fs.Usage()
		return 2
	}

	logger, err := logging.New(logging.Options{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamvaultd: %v\n", err)
		return 1
	}

	locks := *lockDir
	if locks == "" {
		locks = defaultLockDir(*statePath)
	}

	reconciler, err := agent.New(agent.Options{
		StatePath:        *statePath,
		LockDir:          locks,
		// Kept outside the lock dir, which is wiped at startup.
		InstanceLockPath: filepath.Join(filepath.Dir(locks), "streamvaultd.lock"),
		Logger:           logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamvaultd: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := reconciler.Run(ctx); err != nil {
		logger.Error("agent failed", logging.Error(err))
		return 1
	}
	return 0
}

func defaultLockDir(statePath string) string {
	return filepath.Join(filepath.Dir(statePath), "locks")
}
