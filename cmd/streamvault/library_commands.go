package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"streamvault/internal/ipc"
	"streamvault/internal/logging"
	"streamvault/internal/remux"
	"streamvault/internal/vault"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the encrypted recording library",
	}

	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryMigrateCommand(ctx))
	libraryCmd.AddCommand(newLibraryPruneCommand(ctx))
	libraryCmd.AddCommand(newLibraryPlayCommand(ctx))
	libraryCmd.AddCommand(newLibraryCleanupCommand())

	return libraryCmd
}

func (c *commandContext) openVault() (*vault.Vault, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	return vault.New(cfg.VaultKeyPath()), cfg.Paths.RecordingsDir, nil
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List encrypted recordings from the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, dir, err := ctx.openVault()
			if err != nil {
				return err
			}
			manifest, err := v.LoadManifest(dir)
			if err != nil {
				return err
			}
			if len(manifest) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "library is empty")
				return nil
			}

			type row struct {
				artifact string
				entry    vault.Entry
			}
			rows := make([]row, 0, len(manifest))
			for artifact, entry := range manifest {
				rows = append(rows, row{artifact: artifact, entry: entry})
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].entry.Date.Before(rows[j].entry.Date) })

			rendered := make([][]string, 0, len(rows))
			for _, r := range rows {
				rendered = append(rendered, []string{
					r.entry.ChannelName,
					r.entry.Date.Local().Format("2006-01-02 15:04"),
					r.entry.Quality,
					r.entry.OriginalFilename,
					r.artifact,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"CHANNEL", "DATE", "QUALITY", "ORIGINAL", "ARTIFACT"},
				rendered,
			))
			return nil
		},
	}
}

func newLibraryMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Encrypt legacy plaintext recordings in place",
		Long:  "Encrypts every unencrypted recording in the recordings directory, skipping outputs of live captures when a host is running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			v, dir, err := ctx.openVault()
			if err != nil {
				return err
			}

			// A running host knows which outputs are still being written.
			active := map[string]struct{}{}
			if err := ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				for _, session := range status.Sessions {
					active[session.OutputPath] = struct{}{}
				}
				return nil
			}); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "host not reachable; migrating without live-session exclusions")
			}

			logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			if err != nil {
				return err
			}
			report, err := v.MigrateUnencrypted(dir, active, cfg.Capture.Quality, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d, skipped %d, failed %d\n", report.Migrated, report.Skipped, report.Failed)
			return nil
		},
	}
}

func newLibraryPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention policy to the encrypted library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			v, dir, err := ctx.openVault()
			if err != nil {
				return err
			}
			policy := remux.Policy{
				MaxAgeDays:    cfg.Retention.MaxAgeDays,
				MaxTotal:      cfg.Retention.MaxRecordings,
				MaxPerChannel: cfg.Retention.MaxPerChannel,
			}
			if !policy.Enabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "no retention limits configured; nothing to do")
				return nil
			}
			logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			if err != nil {
				return err
			}
			report, err := remux.Prune(dir, v, policy, time.Now(), logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d recording(s), %d failure(s)\n", report.Removed, report.Failed)
			return nil
		},
	}
}

func newLibraryPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <original-filename|artifact>",
		Short: "Decrypt a recording to a temp file ready for playback",
		Long:  "Decrypts the named recording to the shared temp directory and remuxes it when the container is actually a transport stream. Prints the playable path.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			v, dir, err := ctx.openVault()
			if err != nil {
				return err
			}
			manifest, err := v.LoadManifest(dir)
			if err != nil {
				return err
			}

			artifact, entry, found := findRecording(manifest, args[0])
			if !found {
				return fmt.Errorf("recording %q not found in the manifest", args[0])
			}

			dest := vault.TempPlaybackPath(entry.OriginalFilename)
			if err := v.DecryptFile(artifact, dir, dest); err != nil {
				return err
			}
			if _, err := remux.PrepareForPlayback(cmd.Context(), dest, cfg.Remux.FFmpegPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dest)
			return nil
		},
	}
}

func findRecording(manifest vault.Manifest, key string) (string, vault.Entry, bool) {
	if entry, ok := manifest[key]; ok {
		return key, entry, true
	}
	for artifact, entry := range manifest {
		if entry.OriginalFilename == key {
			return artifact, entry, true
		}
	}
	return "", vault.Entry{}, false
}

func newLibraryCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "cleanup",
		Short:       "Remove decrypted temp playback copies",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := vault.CleanupTempPlayback()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d temp file(s)\n", removed)
			return nil
		},
	}
}
