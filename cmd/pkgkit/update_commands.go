package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pkgkit/internal/client"
)

func newUpdatesCommand(ctx *commandContext) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "updates",
		Short: "List available package updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				packages, err := cl.GetUpdates(cmd.Context(), filter)
				if err != nil {
					return err
				}
				printPackages(cmd.OutOrStdout(), packages, "System is up to date")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "none", filterUsage)
	return cmd
}

func newUpdateDetailsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "update-details PACKAGE...",
		Short: "Show what an update changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				ids, err := resolvePackageIDs(cmd.Context(), cl, preferAvailable, args)
				if err != nil {
					return err
				}
				details, err := cl.GetUpdateDetail(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for i, d := range details {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "Update:    %s\n", splitPackageID(d.ID).Name)
					printField(out, "Replaces", d.Updates)
					printField(out, "Obsoletes", d.Obsoletes)
					printField(out, "Vendor", d.VendorURL)
					printField(out, "Bugzilla", d.BugzillaURL)
					printField(out, "CVE", d.CVEURL)
					printField(out, "Restart", d.Restart)
					printField(out, "State", d.State)
					printField(out, "Issued", d.Issued)
					printField(out, "Updated", d.Updated)
					printField(out, "Notes", d.UpdateText)
					printField(out, "Changelog", d.Changelog)
				}
				return nil
			})
		},
	}
}

func printField(out io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(out, "%-10s %s\n", label+":", value)
}

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "update PACKAGE...",
		Short: "Update specific packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				ids, err := resolvePackageIDs(cmd.Context(), cl, preferAvailable, args)
				if err != nil {
					return err
				}
				reporter := newProgressReporter(os.Stderr, "Updating")
				err = cl.UpdatePackages(cmd.Context(), reporter.Func(), ids...)
				reporter.Finish(err == nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d packages\n", len(ids))
				return nil
			})
		},
	}
}

func newUpdateSystemCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "update-system",
		Short: "Apply every available update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				reporter := newProgressReporter(os.Stderr, "Updating system")
				err := cl.UpdateSystem(cmd.Context(), reporter.Func())
				reporter.Finish(err == nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "System update finished")
				return nil
			})
		},
	}
}

func newDistroUpgradesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "distro-upgrades",
		Short: "List available distribution upgrades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				upgrades, err := cl.GetDistroUpgrades(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(upgrades) == 0 {
					fmt.Fprintln(out, "No distribution upgrades available")
					return nil
				}
				rows := make([][]string, 0, len(upgrades))
				for _, up := range upgrades {
					rows = append(rows, []string{up.Name, up.Type, up.Summary})
				}
				columns := []column{
					{title: "Name"},
					{title: "Type"},
					{title: "Summary", maxWidth: summaryWidth},
				}
				fmt.Fprintln(out, renderTable(columns, rows))
				return nil
			})
		},
	}
}
