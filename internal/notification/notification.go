// Package notification keeps a client's project notifications: newest first,
// capped, with read tracking.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/buildwatch/internal/kv"
)

// ErrNotFound is returned when a notification ID is not in the inbox.
var ErrNotFound = errors.New("notification: not found")

// Key is the client-state key holding the JSON array of notifications.
const Key = "buildtracker_notifications"

// MaxStored is the most notifications kept per client.
const MaxStored = 50

// Type classifies a notification.
type Type string

const (
	TypeProgress  Type = "progress"
	TypePhoto     Type = "photo"
	TypeComment   Type = "comment"
	TypeMilestone Type = "milestone"
)

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	switch t {
	case TypeProgress, TypePhoto, TypeComment, TypeMilestone:
		return true
	}
	return false
}

// Notification is one entry in a client's inbox.
type Notification struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	ProjectName string    `json:"projectName"`
	Type        Type      `json:"type"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Read        bool      `json:"read"`
}

// AddOpts holds the caller-supplied fields of a new notification.
type AddOpts struct {
	ProjectID   string
	ProjectName string
	Type        Type
	Message     string
}

// Inbox reads and writes one client's notifications.
type Inbox struct {
	store    kv.Store
	now      func() time.Time
	seedDemo bool
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(in *Inbox) { in.now = now }
}

// WithDemoSeed makes List return the demo notifications while the client
// has no stored notifications.
func WithDemoSeed() Option {
	return func(in *Inbox) { in.seedDemo = true }
}

// New returns an Inbox backed by store.
func New(store kv.Store, opts ...Option) *Inbox {
	in := &Inbox{store: store, now: time.Now}
	for _, o := range opts {
		o(in)
	}
	return in
}

// List returns the notifications, newest first.
func (in *Inbox) List(ctx context.Context) ([]Notification, error) {
	raw, ok, err := in.store.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("notification: load: %w", err)
	}
	if !ok {
		if in.seedDemo {
			return Demo(in.now()), nil
		}
		return []Notification{}, nil
	}
	var list []Notification
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("notification: decode: %w", err)
	}
	return list, nil
}

func (in *Inbox) save(ctx context.Context, list []Notification) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("notification: encode: %w", err)
	}
	if err := in.store.Set(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("notification: save: %w", err)
	}
	return nil
}

// Add prepends a new unread notification, dropping the oldest beyond
// MaxStored.
func (in *Inbox) Add(ctx context.Context, opts AddOpts) (*Notification, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("notification: project id is required")
	}
	if opts.Message == "" {
		return nil, fmt.Errorf("notification: message is required")
	}
	if !opts.Type.Valid() {
		return nil, fmt.Errorf("notification: unknown type %q", opts.Type)
	}

	list, err := in.List(ctx)
	if err != nil {
		return nil, err
	}
	n := Notification{
		ID:          uuid.NewString(),
		ProjectID:   opts.ProjectID,
		ProjectName: opts.ProjectName,
		Type:        opts.Type,
		Message:     opts.Message,
		Timestamp:   in.now().UTC(),
	}
	list = append([]Notification{n}, list...)
	if len(list) > MaxStored {
		list = list[:MaxStored]
	}
	if err := in.save(ctx, list); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead marks one notification read.
func (in *Inbox) MarkRead(ctx context.Context, id string) error {
	list, err := in.List(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return in.save(ctx, list)
}

// MarkAllRead marks every notification read.
func (in *Inbox) MarkAllRead(ctx context.Context) error {
	list, err := in.List(ctx)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Read = true
	}
	return in.save(ctx, list)
}

// Clear deletes all stored notifications.
func (in *Inbox) Clear(ctx context.Context) error {
	if err := in.store.Remove(ctx, Key); err != nil {
		return fmt.Errorf("notification: clear: %w", err)
	}
	return nil
}

// Unread counts unread notifications.
func Unread(list []Notification) int {
	n := 0
	for _, x := range list {
		if !x.Read {
			n++
		}
	}
	return n
}

// Badge renders an unread count for the bell icon: empty for zero, "9+"
// above nine.
func Badge(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > 9:
		return "9+"
	}
	return strconv.Itoa(unread)
}

// TimeAgo renders how long before now ts was.
func TimeAgo(ts, now time.Time) string {
	d := now.Sub(ts)
	mins := int(d / time.Minute)
	hours := int(d / time.Hour)
	days := int(d / (24 * time.Hour))
	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", days)
}

// Demo returns the demonstration inbox shown to new clients.
func Demo(now time.Time) []Notification {
	return []Notification{
		{
			ID:          "1",
			ProjectID:   "1",
			ProjectName: "The Meridian Residences",
			Type:        TypeProgress,
			Message:     "Foundation phase completed - now 65% done!",
			Timestamp:   now.Add(-2 * time.Hour).UTC(),
		},
		{
			ID:          "2",
			ProjectID:   "2",
			ProjectName: "Queen Street Heritage Restoration",
			Type:        TypePhoto,
			Message:     "New progress photo uploaded by Heritage Lover",
			Timestamp:   now.Add(-5 * time.Hour).UTC(),
		},
		{
			ID:          "3",
			ProjectID:   "3",
			ProjectName: "Yonge Street Mixed-Use Development",
			Type:        TypeMilestone,
			Message:     "Excavation milestone reached!",
			Timestamp:   now.Add(-24 * time.Hour).UTC(),
			Read:        true,
		},
	}
}
