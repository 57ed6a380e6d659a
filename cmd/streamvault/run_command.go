package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"streamvault/internal/intents"
	"streamvault/internal/ipc"
	"streamvault/internal/logging"
	"streamvault/internal/recorder"
	"streamvault/internal/vault"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the foreground session-manager host",
		Long:  "Hosts the capture session manager and its IPC socket until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "streamvault.log")},
			})
			if err != nil {
				return err
			}

			store, err := intents.Open(cfg.IntentDBPath())
			if err != nil {
				return fmt.Errorf("open intent store: %w", err)
			}
			defer store.Close()

			manager, err := recorder.NewManager(recorder.Options{
				RecordingsDir:  cfg.Paths.RecordingsDir,
				ToolOverride:   cfg.Capture.ToolPath,
				DefaultQuality: cfg.Capture.Quality,
				MaxConcurrent:  cfg.Capture.MaxConcurrent,
				Intents:        store,
				Logger:         logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Anything left in the store belongs to a previous run that
			// did not shut down cleanly.
			recovered, err := manager.ConsumeRecoveryIntents(ctx)
			if err != nil {
				logger.Warn("recovery intents unreadable", logging.Error(err))
			}
			for _, intent := range recovered {
				logger.Info("previous session interrupted",
					logging.String(logging.FieldChannel, intent.ChannelLogin),
					logging.String("quality", intent.Quality),
					logging.Time("captured_at", intent.CapturedAt),
					logging.String(logging.FieldEventType, "recovery_intent_found"),
				)
				if resume {
					manager.StartRecording(ctx, intent.Target, intent.ChannelName, intent.Quality)
				}
			}

			if removed, err := vault.CleanupTempPlayback(); err != nil {
				logger.Warn("temp playback cleanup incomplete", logging.Error(err))
			} else if removed > 0 {
				logger.Info("temp playback files removed", logging.Int("count", removed))
			}

			server, err := ipc.NewServer(ctx, cmdCtx.socketPath(), manager, logger)
			if err != nil {
				return err
			}
			server.Serve()
			logger.Info("host ready",
				logging.String("socket", cmdCtx.socketPath()),
				logging.String(logging.FieldEventType, "host_started"),
			)

			<-ctx.Done()
			logger.Info("shutting down", logging.String(logging.FieldEventType, "host_stopping"))
			manager.StopRecording("")
			server.Close()
			return nil
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "Restart captures found in the recovery intent store")
	return cmd
}
