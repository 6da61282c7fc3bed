// Package discord posts BuildWatch events to a Discord channel over the REST
// API. No gateway connection is opened; the bot only writes.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/buildwatch/internal/telegraph"
)

const (
	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 2 * time.Minute

	footerText = "BuildWatch"
)

// restClient is the subset of *discordgo.Session the adapter calls.
type restClient interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Adapter implements telegraph.Adapter for Discord.
type Adapter struct {
	client    restClient
	botToken  string
	channelID string

	mu      sync.Mutex
	botName string
	ready   bool
	closed  bool

	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken  string
	ChannelID string // default channel for milestone posts
	Client    restClient
}

// New creates a Discord Adapter. The REST client is built lazily on Connect
// unless one is injected.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	return &Adapter{
		client:      opts.Client,
		botToken:    opts.BotToken,
		channelID:   opts.ChannelID,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}, nil
}

// Name implements telegraph.Namer.
func (a *Adapter) Name() string { return "discord" }

// Connect checks the bot token by looking up the bot's own user.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.ready {
		return nil
	}
	if a.client == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create client: %w", err)
		}
		a.client = dg
	}

	me, err := a.client.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: verify token: %w", err)
	}
	a.botName = me.Username
	a.ready = true
	log.Printf("discord: posting as %s", me.Username)
	return nil
}

// BotName returns the bot's username once connected.
func (a *Adapter) BotName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botName
}

// Send posts msg. Events become embeds.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	ready := a.ready
	a.mu.Unlock()
	if !ready {
		return fmt.Errorf("discord: not connected")
	}

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = a.channelID
	}
	if channelID == "" {
		return fmt.Errorf("discord: no channel specified")
	}

	data := buildMessageSend(msg)
	err := a.retryOnRateLimit(ctx, func() error {
		_, err := a.client.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord: post to %s: %w", channelID, err)
	}
	return nil
}

// Close stops further sends. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.ready = false
	return nil
}

func buildMessageSend(msg telegraph.OutboundMessage) *discordgo.MessageSend {
	data := &discordgo.MessageSend{Content: msg.Text}
	for _, evt := range msg.Events {
		data.Embeds = append(data.Embeds, eventToEmbed(evt))
	}
	return data
}

func eventToEmbed(evt telegraph.FormattedEvent) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       evt.Title,
		Description: evt.Body,
		URL:         evt.URL,
		Color:       parseHexColor(evt.Color),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
	for _, f := range evt.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

// parseHexColor turns "#36a64f" or "36a64f" into an embed colour. Invalid
// input yields 0 (no colour).
func parseHexColor(hex string) int {
	hex = strings.TrimPrefix(hex, "#")
	if hex == "" {
		return 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}

func isRateLimited(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) &&
		restErr.Response != nil &&
		restErr.Response.StatusCode == http.StatusTooManyRequests
}

// retryOnRateLimit retries fn on HTTP 429 with doubling backoff.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	wait := a.baseBackoff
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isRateLimited(err) || attempt == maxRetries {
			return err
		}

		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v", attempt+1, maxRetries, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, a.maxBackoff)
	}
}
