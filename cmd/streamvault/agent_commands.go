package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"streamvault/internal/config"
	"streamvault/internal/policy"
)

func newAgentCommand(ctx *commandContext) *cobra.Command {
	agentCmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the desired state consumed by streamvaultd",
	}

	agentCmd.AddCommand(newAgentEnableCommand(ctx))
	agentCmd.AddCommand(newAgentDisableCommand(ctx))
	agentCmd.AddCommand(newAgentSyncCommand(ctx))

	return agentCmd
}

// desiredStateBase fills the config-derived fields of the desired-state
// document. The enabled flag and the channel set are decided per command.
func desiredStateBase(cfg *config.Config) policy.DesiredState {
	return policy.DesiredState{
		CaptureToolPath:     cfg.Capture.ToolPath,
		RecordingsDirectory: cfg.Paths.RecordingsDir,
		Quality:             cfg.Capture.Quality,
		PollIntervalSeconds: cfg.Agent.PollIntervalSeconds,
	}
}

// writeDesiredState filters the named channels through the configured
// auto-record list and writes the resulting document for the agent to poll.
// An empty channel list means every configured channel is desired.
func writeDesiredState(cfg *config.Config, enabled bool, channels []string) error {
	engine := policy.NewEngine(cfg.Policy.AutoRecord)
	if len(channels) == 0 {
		channels = cfg.Policy.AutoRecord
	}
	for _, login := range channels {
		engine.HandleEvent(policy.ChannelEvent{Login: login, Live: true})
	}
	base := desiredStateBase(cfg)
	base.Enabled = enabled
	return engine.WriteState(cfg.DesiredStatePath(), base)
}

func newAgentEnableCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enable [channel...]",
		Short: "Enable background recording",
		Long:  "Writes the desired-state file with recording enabled. Channel arguments narrow the set to the named auto-record channels; without arguments every channel on the policy.auto_record list is desired.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := writeDesiredState(cfg, true, args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "background recording enabled (%s)\n", cfg.DesiredStatePath())
			return nil
		},
	}
}

func newAgentDisableCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable background recording without clearing the channel set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.DesiredStatePath()
			state, err := policy.LoadState(path)
			if errors.Is(err, fs.ErrNotExist) {
				state = desiredStateBase(cfg)
			} else if err != nil {
				return err
			}
			state.Enabled = false
			if err := policy.WriteState(path, state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "background recording disabled (%s)\n", path)
			return nil
		},
	}
}

func newAgentSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [channel...]",
		Short: "Rebuild the desired channel set from the configuration",
		Long:  "Recomputes the desired-state channels from policy.auto_record and the current configuration, preserving the enabled flag of an existing document. A missing document stays disabled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			enabled := false
			if state, err := policy.LoadState(cfg.DesiredStatePath()); err == nil {
				enabled = state.Enabled
			}
			if err := writeDesiredState(cfg, enabled, args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "desired state written (%s)\n", cfg.DesiredStatePath())
			return nil
		},
	}
}
