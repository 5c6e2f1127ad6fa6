package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkgkit/internal/client"
	"pkgkit/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var fromDaemon bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past package operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromDaemon {
				return ctx.withClient(func(cl *client.Client) error {
					return printDaemonHistory(cmd, cl, limit)
				})
			}
			return ctx.withHistory(func(store *history.Store) error {
				return printLocalHistory(cmd, store, limit)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (with --daemon, 0 shows all)")
	cmd.Flags().BoolVar(&fromDaemon, "daemon", false, "Read the daemon's transaction log instead of the local journal")
	return cmd
}

func printLocalHistory(cmd *cobra.Command, store *history.Store, limit int) error {
	if limit <= 0 {
		limit = 20
	}
	entries, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No operations recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID),
			e.StartedAt.Local().Format(time.RFC3339),
			e.Role,
			packageNamesSummary(e.PackageIDs),
			historyOutcome(e),
		})
	}
	columns := []column{
		{title: "ID", align: alignRight},
		{title: "Started"},
		{title: "Operation"},
		{title: "Packages", maxWidth: summaryWidth},
		{title: "Result"},
	}
	fmt.Fprintln(out, renderTable(columns, rows))
	return nil
}

func printDaemonHistory(cmd *cobra.Command, cl *client.Client, limit int) error {
	number := uint32(0)
	if limit > 0 {
		number = uint32(limit)
	}
	entries, err := cl.GetOldTransactions(cmd.Context(), number)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "Daemon reports no past transactions")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.TID,
			e.Timespec,
			e.Role,
			yesNo(e.Succeeded),
			fmt.Sprintf("%dms", e.Duration),
		})
	}
	columns := []column{
		{title: "Transaction"},
		{title: "When"},
		{title: "Role"},
		{title: "Succeeded"},
		{title: "Duration", align: alignRight},
	}
	fmt.Fprintln(out, renderTable(columns, rows))
	return nil
}

func historyOutcome(e history.Entry) string {
	if e.Succeeded {
		return "ok"
	}
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	return "failed"
}

func packageNamesSummary(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, splitPackageID(id).Name)
	}
	const shown = 3
	if len(names) > shown {
		return strings.Join(names[:shown], ", ") + fmt.Sprintf(" +%d more", len(names)-shown)
	}
	return strings.Join(names, ", ")
}
