package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkgkit/internal/client"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the daemon's repository metadata caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				if err := cl.RefreshCache(cmd.Context(), force); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Caches refreshed")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Refresh even when caches look current")
	return cmd
}

func newRollbackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback TRANSACTION_ID",
		Short: "Roll the system back to an earlier transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				if err := cl.Rollback(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back to %s\n", args[0])
				return nil
			})
		},
	}
}

func newDaemonQuitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon-quit",
		Short: "Ask the daemon to exit once it goes idle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				if err := cl.SuggestDaemonQuit(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon asked to exit when idle")
				return nil
			})
		},
	}
}
