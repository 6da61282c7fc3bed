package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/buildwatch/internal/db"
	"github.com/zulandar/buildwatch/internal/refresh"
	"github.com/zulandar/buildwatch/internal/source"
)

func newRefreshCmd() *cobra.Command {
	var (
		configPath string
		noChat     bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch projects from the configured source once",
		Long: `Fetches projects from the configured source (falling back to the demo set),
stores them, notifies followers of completed phases, and posts milestones to
the configured chat channels.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd, configPath, noChat)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to BuildWatch config file")
	cmd.Flags().BoolVar(&noChat, "no-chat", false, "do not post to chat")
	return cmd
}

func runRefresh(cmd *cobra.Command, configPath string, noChat bool) error {
	out := cmd.OutOrStdout()
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	src, err := source.FromConfig(cfg.Source)
	if err != nil {
		return err
	}

	ctx := context.Background()
	opts := refresh.Opts{
		DB:              gormDB,
		Fetcher:         src,
		NotifyFollowers: cfg.Refresh.ShouldNotifyFollowers(),
		Out:             out,
	}
	if !noChat {
		b, err := connectBroadcaster(ctx, cfg.Telegraph, out)
		if err != nil {
			return err
		}
		defer b.Close()
		opts.Broadcaster = b
	}

	syncer, err := refresh.New(opts)
	if err != nil {
		return err
	}
	res, err := syncer.Sync(ctx)
	if err != nil {
		return err
	}

	if res.FellBack {
		fmt.Fprintf(out, "Primary source unavailable; served %s\n", res.Source)
	}
	if res.Pruned > 0 {
		fmt.Fprintf(out, "Removed %d projects stored from other sources\n", res.Pruned)
	}
	for _, m := range res.Milestones {
		fmt.Fprintf(out, "  %s: %s\n", m.ProjectName, m.Message())
	}
	fmt.Fprintf(out, "%d phase transitions, %d follower notifications, %d chat deliveries\n",
		res.Transitions, res.Notified, res.Chat)
	return nil
}
