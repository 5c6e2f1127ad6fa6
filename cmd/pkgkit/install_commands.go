package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkgkit/internal/client"
)

func newInstallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "install PACKAGE...",
		Short: "Install packages by name or package ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				ids, err := resolvePackageIDs(cmd.Context(), cl, preferAvailable, args)
				if err != nil {
					return err
				}
				reporter := newProgressReporter(os.Stderr, "Installing")
				err = cl.InstallPackages(cmd.Context(), reporter.Func(), ids...)
				reporter.Finish(err == nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Installed %d packages\n", len(ids))
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var allowDeps bool
	var autoRemove bool

	cmd := &cobra.Command{
		Use:   "remove PACKAGE...",
		Short: "Remove installed packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				ids, err := resolvePackageIDs(cmd.Context(), cl, preferInstalled, args)
				if err != nil {
					return err
				}
				reporter := newProgressReporter(os.Stderr, "Removing")
				err = cl.RemovePackages(cmd.Context(), reporter.Func(), allowDeps, autoRemove, ids...)
				reporter.Finish(err == nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d packages\n", len(ids))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&allowDeps, "allow-deps", false, "Also remove packages that depend on the named ones")
	cmd.Flags().BoolVar(&autoRemove, "auto-remove", true, "Remove dependencies that are no longer needed")
	return cmd
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download PACKAGE...",
		Short: "Download package payloads without installing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				ids, err := resolvePackageIDs(cmd.Context(), cl, preferAvailable, args)
				if err != nil {
					return err
				}
				fileSets, err := cl.DownloadPackages(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, fs := range fileSets {
					for _, path := range fs.List() {
						fmt.Fprintln(out, path)
					}
				}
				return nil
			})
		},
	}
}

func newInstallSignatureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "install-signature TYPE KEY_ID PACKAGE_ID",
		Short: "Trust a repository signing key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				if err := cl.InstallSignatures(cmd.Context(), args[0], args[1], args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s key %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newAcceptEulaCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "accept-eula EULA_ID",
		Short: "Accept an end-user license agreement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedClient(func(cl *client.Client) error {
				if err := cl.AcceptEula(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Accepted %s\n", args[0])
				return nil
			})
		},
	}
}
