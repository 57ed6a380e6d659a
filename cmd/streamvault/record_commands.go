package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamvault/internal/ipc"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var channelName string
	var quality string

	cmd := &cobra.Command{
		Use:   "start <target>",
		Short: "Start recording a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StartRecording(ipc.StartRequest{
					Target:      args[0],
					ChannelName: channelName,
					Quality:     quality,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&channelName, "name", "", "Display name used for the recording filename")
	cmd.Flags().StringVar(&quality, "quality", "", "Stream quality (defaults to the configured value)")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "stop [login]",
		Short: "Stop one recording, or all with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			login := ""
			if len(args) == 1 {
				login = args[0]
			}
			if login == "" && !all {
				return fmt.Errorf("specify a channel login or --all")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StopRecording(login)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signalled %d recording(s)\n", resp.Stopped)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Stop every live recording")
	return cmd
}

func newToggleCommand(ctx *commandContext) *cobra.Command {
	var channelName string
	var quality string

	cmd := &cobra.Command{
		Use:   "toggle <target>",
		Short: "Start the channel if idle, stop it if recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ToggleRecording(ipc.ToggleRequest{
					Target:      args[0],
					ChannelName: channelName,
					Quality:     quality,
				})
				if err != nil {
					return err
				}
				if resp.Started {
					fmt.Fprintln(cmd.OutOrStdout(), "recording started")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "recording stopping")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&channelName, "name", "", "Display name used for the recording filename")
	cmd.Flags().StringVar(&quality, "quality", "", "Stream quality (defaults to the configured value)")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a finished recording through the host",
		Long:  "Deletes a recording via the running host so in-flight captures are refused.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DeleteRecording(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				if !resp.Deleted {
					return fmt.Errorf("recording not deleted")
				}
				return nil
			})
		},
	}
}
