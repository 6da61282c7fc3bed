package telegraph

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Broadcaster fans project events out to every connected adapter. Delivery
// is best-effort: failures are logged and never returned to the caller.
type Broadcaster struct {
	mu       sync.Mutex
	adapters []Adapter
	live     []Adapter
	out      io.Writer
}

// NewBroadcaster creates a Broadcaster over adapters. out receives connect
// progress and defaults to os.Stdout.
func NewBroadcaster(out io.Writer, adapters ...Adapter) *Broadcaster {
	if out == nil {
		out = os.Stdout
	}
	return &Broadcaster{adapters: adapters, out: out}
}

func adapterName(a Adapter) string {
	if n, ok := a.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", a)
}

// Connect connects every adapter. Adapters that fail are skipped with a
// warning; the error is only returned when adapters were configured and
// none connected.
func (b *Broadcaster) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.live = b.live[:0]
	for _, a := range b.adapters {
		if err := a.Connect(ctx); err != nil {
			log.Printf("telegraph: connect %s: %v", adapterName(a), err)
			continue
		}
		fmt.Fprintf(b.out, "Telegraph connected to %s\n", adapterName(a))
		b.live = append(b.live, a)
	}
	if len(b.adapters) > 0 && len(b.live) == 0 {
		return fmt.Errorf("telegraph: no chat adapter connected")
	}
	return nil
}

// Len returns the number of connected adapters.
func (b *Broadcaster) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// Send delivers msg to every connected adapter concurrently and returns the
// number of adapters that accepted it.
func (b *Broadcaster) Send(ctx context.Context, msg OutboundMessage) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	live := append([]Adapter(nil), b.live...)
	b.mu.Unlock()

	var (
		g         errgroup.Group
		mu        sync.Mutex
		delivered int
	)
	for _, a := range live {
		g.Go(func() error {
			if err := a.Send(ctx, msg); err != nil {
				log.Printf("telegraph: send via %s: %v", adapterName(a), err)
				return nil
			}
			mu.Lock()
			delivered++
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return delivered
}

// Publish formats events and sends them as one message.
func (b *Broadcaster) Publish(ctx context.Context, events ...ProjectEvent) int {
	var formatted []FormattedEvent
	for _, ev := range events {
		if f, ok := Format(ev); ok {
			formatted = append(formatted, f)
		}
	}
	if len(formatted) == 0 {
		return 0
	}
	return b.Send(ctx, OutboundMessage{Events: formatted})
}

// Pulse sends a refresh summary.
func (b *Broadcaster) Pulse(ctx context.Context, s PulseSummary) int {
	return b.Send(ctx, OutboundMessage{Events: []FormattedEvent{FormatPulse(s)}})
}

// Close closes every adapter.
func (b *Broadcaster) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var first error
	for _, a := range b.adapters {
		if err := a.Close(); err != nil && first == nil {
			first = fmt.Errorf("telegraph: close %s: %w", adapterName(a), err)
		}
	}
	b.live = nil
	return first
}
