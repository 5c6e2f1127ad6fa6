package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pkgkit/internal/client"
	"pkgkit/internal/logging"
	"pkgkit/internal/mediawatch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Refresh caches whenever installation media is inserted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.MediaWatch.Enabled {
				return errors.New("media watching is disabled; enable it in the [media_watch] config section")
			}
			return ctx.withClient(func(cl *client.Client) error {
				logger, err := newLogger(cfg)
				if err != nil {
					return err
				}

				handler := func(hctx context.Context, device string) error {
					logger.Info("media inserted, refreshing caches",
						logging.String("device", device))
					return cl.RefreshCache(hctx, false)
				}

				monitor := mediawatch.New(cfg, logger, handler)
				if err := monitor.Start(cmd.Context()); err != nil {
					return err
				}
				defer monitor.Stop()

				fmt.Fprintln(cmd.OutOrStdout(), "Watching for media; press Ctrl-C to stop")
				<-cmd.Context().Done()
				return nil
			})
		},
	}
}
