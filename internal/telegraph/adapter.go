// Package telegraph posts BuildWatch project events to chat platforms
// (Slack, Discord).
package telegraph

import "context"

// Adapter is the interface that platform-specific implementations must satisfy.
type Adapter interface {
	// Connect authenticates with the chat platform.
	Connect(ctx context.Context) error

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close releases the connection.
	Close() error
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string           // target channel; adapters fall back to their default
	Text      string           // message text (platform-native formatting)
	Events    []FormattedEvent // structured event attachments
}

// FormattedEvent represents a project event formatted for display in chat.
type FormattedEvent struct {
	Title    string // event headline (e.g. "Harbourfront Towers finished Foundation")
	Body     string
	Severity string // "info", "warning", "success"
	Color    string // sidebar color hint
	URL      string // optional link to the project
	Fields   []Field
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// Namer is implemented by adapters that can report their platform name.
type Namer interface {
	Name() string
}
