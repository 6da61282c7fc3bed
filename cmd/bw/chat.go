package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/zulandar/buildwatch/internal/config"
	"github.com/zulandar/buildwatch/internal/telegraph"
	"github.com/zulandar/buildwatch/internal/telegraph/discord"
	"github.com/zulandar/buildwatch/internal/telegraph/slack"
)

// createAdapters builds a chat adapter for every configured platform.
func createAdapters(cfg config.TelegraphConfig) ([]telegraph.Adapter, error) {
	var adapters []telegraph.Adapter
	if cfg.Slack.Enabled() {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Slack.BotToken,
			ChannelID: cfg.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Discord.Enabled() {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// connectBroadcaster builds and connects the chat broadcaster. It returns nil
// when no platform is configured. A platform that fails to connect is logged
// and left out.
func connectBroadcaster(ctx context.Context, cfg config.TelegraphConfig, out io.Writer) (*telegraph.Broadcaster, error) {
	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, fmt.Errorf("telegraph: %w", err)
	}
	if len(adapters) == 0 {
		return nil, nil
	}
	b := telegraph.NewBroadcaster(out, adapters...)
	if err := b.Connect(ctx); err != nil {
		log.Printf("telegraph: %v; milestones will not be posted to chat", err)
	}
	return b, nil
}
