package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkgkit/internal/client"
)

func newRepoCommand(ctx *commandContext) *cobra.Command {
	repoCmd := &cobra.Command{
		Use:   "repo",
		Short: "Inspect and manage package repositories",
	}

	repoCmd.AddCommand(newRepoListCommand(ctx))
	repoCmd.AddCommand(newRepoEnableCommand(ctx, "enable", "Enable a repository", true))
	repoCmd.AddCommand(newRepoEnableCommand(ctx, "disable", "Disable a repository", false))
	repoCmd.AddCommand(newRepoSetDataCommand(ctx))

	return repoCmd
}

func newRepoListCommand(ctx *commandContext) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				repos, err := cl.GetRepoList(cmd.Context(), filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(repos) == 0 {
					fmt.Fprintln(out, "No repositories configured")
					return nil
				}
				rows := make([][]string, 0, len(repos))
				for _, repo := range repos {
					rows = append(rows, []string{repo.ID, yesNo(repo.Enabled), repo.Description})
				}
				columns := []column{
					{title: "ID"},
					{title: "Enabled"},
					{title: "Description", maxWidth: summaryWidth},
				}
				fmt.Fprintln(out, renderTable(columns, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "none", filterUsage)
	return cmd
}

func newRepoEnableCommand(ctx *commandContext, verb, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " REPO_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				if err := cl.RepoEnable(cmd.Context(), args[0], enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Repository %s %sd\n", args[0], verb)
				return nil
			})
		},
	}
}

func newRepoSetDataCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-data REPO_ID PARAMETER VALUE",
		Short: "Set a backend-specific repository parameter",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				if err := cl.RepoSetData(cmd.Context(), args[0], args[1], args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Repository %s updated\n", args[0])
				return nil
			})
		},
	}
}
