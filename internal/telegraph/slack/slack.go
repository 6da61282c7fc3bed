// Package slack posts BuildWatch events to a Slack channel through the Web
// API.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/buildwatch/internal/telegraph"
)

const (
	maxRetries = 3
	// fallbackBackoff is used when Slack omits Retry-After.
	fallbackBackoff = time.Second

	footerText = "BuildWatch"
)

type webClient interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter implements telegraph.Adapter for Slack.
type Adapter struct {
	client    webClient
	botToken  string
	channelID string

	mu      sync.Mutex
	team    string
	ready   bool
	closed  bool
	backoff time.Duration
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	BotToken  string // xoxb-...
	ChannelID string // default channel for milestone posts
	Client    webClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	return &Adapter{
		client:    opts.Client,
		botToken:  opts.BotToken,
		channelID: opts.ChannelID,
		backoff:   fallbackBackoff,
	}, nil
}

// Name implements telegraph.Namer.
func (a *Adapter) Name() string { return "slack" }

// Connect verifies the bot token with auth.test.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.ready {
		return nil
	}
	if a.client == nil {
		a.client = slackapi.New(a.botToken)
	}

	auth, err := a.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.team = auth.Team
	a.ready = true
	log.Printf("slack: posting as %s in %s", auth.User, auth.Team)
	return nil
}

// Team returns the workspace name once connected.
func (a *Adapter) Team() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.team
}

// Send posts msg. Events become attachments.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	ready := a.ready
	a.mu.Unlock()
	if !ready {
		return fmt.Errorf("slack: not connected")
	}

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = a.channelID
	}
	if channelID == "" {
		return fmt.Errorf("slack: no channel specified")
	}

	options := buildMessageOptions(msg)
	err := a.retryOnRateLimit(ctx, func() error {
		_, _, err := a.client.PostMessageContext(ctx, channelID, options...)
		return err
	})
	if err != nil {
		return fmt.Errorf("slack: post to %s: %w", channelID, err)
	}
	return nil
}

// Close stops further sends. The Web API holds no connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.ready = false
	return nil
}

// notificationText is what Slack shows in push notifications. An
// attachment-only message falls back to the first event title.
func notificationText(msg telegraph.OutboundMessage) string {
	if msg.Text != "" || len(msg.Events) == 0 {
		return msg.Text
	}
	return msg.Events[0].Title
}

func buildMessageOptions(msg telegraph.OutboundMessage) []slackapi.MsgOption {
	options := []slackapi.MsgOption{slackapi.MsgOptionText(notificationText(msg), false)}
	if len(msg.Events) == 0 {
		return options
	}
	attachments := make([]slackapi.Attachment, 0, len(msg.Events))
	for _, evt := range msg.Events {
		attachments = append(attachments, eventToAttachment(evt))
	}
	return append(options, slackapi.MsgOptionAttachments(attachments...))
}

func eventToAttachment(evt telegraph.FormattedEvent) slackapi.Attachment {
	att := slackapi.Attachment{
		Title:     evt.Title,
		TitleLink: evt.URL,
		Text:      evt.Body,
		Color:     evt.Color,
		Fallback:  evt.Title,
		Footer:    footerText,
	}
	for _, f := range evt.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return att
}

// retryOnRateLimit retries fn while Slack answers rate_limited, waiting the
// Retry-After Slack sends or a doubling fallback.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	fallback := a.backoff
	for attempt := 0; ; attempt++ {
		err := fn()
		var rle *slackapi.RateLimitedError
		if err == nil || !errors.As(err, &rle) || attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = fallback
			fallback *= 2
		}
		log.Printf("slack: rate limited (attempt %d/%d), retrying in %v", attempt+1, maxRetries, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
