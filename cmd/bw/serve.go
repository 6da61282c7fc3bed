package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/buildwatch/internal/api"
	"github.com/zulandar/buildwatch/internal/db"
	"github.com/zulandar/buildwatch/internal/metrics"
	"github.com/zulandar/buildwatch/internal/refresh"
	"github.com/zulandar/buildwatch/internal/source"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noRefresh  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and background refresh",
		Long: `Starts the construction-project API and refreshes projects from the
configured source on the refresh schedule. Stops cleanly on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noRefresh)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to BuildWatch config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "serve stored projects without refreshing")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noRefresh bool) error {
	out := cmd.OutOrStdout()
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Server.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var syncer *refresh.Syncer
	if !noRefresh {
		src, err := source.FromConfig(cfg.Source)
		if err != nil {
			return err
		}
		b, err := connectBroadcaster(ctx, cfg.Telegraph, out)
		if err != nil {
			return err
		}
		defer b.Close()

		syncer, err = refresh.New(refresh.Opts{
			DB:              gormDB,
			Fetcher:         src,
			Broadcaster:     b,
			Metrics:         m,
			NotifyFollowers: cfg.Refresh.ShouldNotifyFollowers(),
			Out:             out,
		})
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Start(ctx, api.StartOpts{
			DB:                gormDB,
			Port:              port,
			Out:               out,
			Metrics:           m,
			RateLimit:         cfg.Server.RateLimit,
			RateBurst:         cfg.Server.RateBurst,
			TrustedProxies:    cfg.Server.TrustedProxies,
			DemoNotifications: cfg.Server.DemoNotifications,
		})
	})
	if syncer != nil {
		g.Go(func() error {
			return syncer.Run(ctx, cfg.Refresh.Schedule)
		})
	}

	err = g.Wait()
	fmt.Fprintln(out, "BuildWatch stopped.")
	return err
}
