package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pkgkit/internal/client"
	"pkgkit/internal/transaction"
)

const filterUsage = "Package filter (none, installed, ~installed, newest, ...)"

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "resolve NAME...",
		Short: "Resolve package names to package IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				packages, err := cl.Resolve(cmd.Context(), filter, args...)
				if err != nil {
					return err
				}
				printPackages(cmd.OutOrStdout(), packages, "No packages found")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "none", filterUsage)
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search package metadata",
	}

	searchCmd.AddCommand(newSearchSubcommand(ctx, "name", "Search package names", (*client.Client).SearchName))
	searchCmd.AddCommand(newSearchSubcommand(ctx, "details", "Search package descriptions", (*client.Client).SearchDetails))
	searchCmd.AddCommand(newSearchSubcommand(ctx, "group", "List the packages of one group", (*client.Client).SearchGroup))
	searchCmd.AddCommand(newSearchSubcommand(ctx, "file", "Find the package owning a file", (*client.Client).SearchFile))

	return searchCmd
}

func newSearchSubcommand(ctx *commandContext, name, short string, search func(*client.Client, context.Context, string, string) ([]transaction.Package, error)) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   name + " TERM",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				packages, err := search(cl, cmd.Context(), filter, args[0])
				if err != nil {
					return err
				}
				printPackages(cmd.OutOrStdout(), packages, "No packages found")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "none", filterUsage)
	return cmd
}

func newDetailsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "details PACKAGE...",
		Short: "Show extended metadata for packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				ids, err := resolvePackageIDs(cmd.Context(), cl, preferInstalled, args)
				if err != nil {
					return err
				}
				details, err := cl.GetDetails(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for i, d := range details {
					if i > 0 {
						fmt.Fprintln(out)
					}
					id := splitPackageID(d.ID)
					fmt.Fprintf(out, "Package:     %s\n", id.Name)
					fmt.Fprintf(out, "Version:     %s\n", id.Version)
					fmt.Fprintf(out, "License:     %s\n", d.License)
					fmt.Fprintf(out, "Group:       %s\n", d.Group)
					fmt.Fprintf(out, "URL:         %s\n", d.URL)
					fmt.Fprintf(out, "Size:        %s\n", humanSize(d.Size))
					fmt.Fprintf(out, "Description: %s\n", d.Description)
				}
				return nil
			})
		},
	}
}

func newFilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "files PACKAGE...",
		Short: "List the files owned by packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				ids, err := resolvePackageIDs(cmd.Context(), cl, preferInstalled, args)
				if err != nil {
					return err
				}
				fileSets, err := cl.GetFiles(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for i, fs := range fileSets {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "%s:\n", splitPackageID(fs.ID).Name)
					for _, path := range fs.List() {
						fmt.Fprintf(out, "  %s\n", path)
					}
				}
				return nil
			})
		},
	}
}

func newDependsCommand(ctx *commandContext) *cobra.Command {
	return newRelationCommand(ctx, "depends", "List the packages a package depends on", (*client.Client).GetDepends)
}

func newRequiresCommand(ctx *commandContext) *cobra.Command {
	return newRelationCommand(ctx, "requires", "List the packages that require a package", (*client.Client).GetRequires)
}

func newRelationCommand(ctx *commandContext, name, short string, relation func(*client.Client, context.Context, string, bool, ...string) ([]transaction.Package, error)) *cobra.Command {
	var filter string
	var recursive bool

	cmd := &cobra.Command{
		Use:   name + " PACKAGE...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				ids, err := resolvePackageIDs(cmd.Context(), cl, preferInstalled, args)
				if err != nil {
					return err
				}
				packages, err := relation(cl, cmd.Context(), filter, recursive, ids...)
				if err != nil {
					return err
				}
				printPackages(cmd.OutOrStdout(), packages, "No packages found")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "none", filterUsage)
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Follow the dependency graph transitively")
	return cmd
}

func newWhatProvidesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "what-provides TYPE TERM",
		Short: "Find packages providing a capability (codec, font, mimetype, ...)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				packages, err := cl.WhatProvides(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				printPackages(cmd.OutOrStdout(), packages, "No packages found")
				return nil
			})
		},
	}
}

func newPackagesCommand(ctx *commandContext) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "packages",
		Short: "List packages known to the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				packages, err := cl.GetPackages(cmd.Context(), filter)
				if err != nil {
					return err
				}
				printPackages(cmd.OutOrStdout(), packages, "No packages found")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "installed", filterUsage)
	return cmd
}

func newCategoriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show the daemon's package group tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				categories, err := cl.GetCategories(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(categories) == 0 {
					fmt.Fprintln(out, "No categories reported")
					return nil
				}
				rows := make([][]string, 0, len(categories))
				for _, cat := range categories {
					rows = append(rows, []string{cat.CategoryID, cat.ParentID, cat.Name, cat.Summary})
				}
				columns := []column{
					{title: "ID"},
					{title: "Parent"},
					{title: "Name"},
					{title: "Summary", maxWidth: summaryWidth},
				}
				fmt.Fprintln(out, renderTable(columns, rows))
				return nil
			})
		},
	}
}
