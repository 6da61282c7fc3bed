// Package refresh pulls project batches from the configured source, stores
// them, and announces phase milestones to followers and chat.
package refresh

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/zulandar/buildwatch/internal/favorite"
	"github.com/zulandar/buildwatch/internal/kv"
	"github.com/zulandar/buildwatch/internal/metrics"
	"github.com/zulandar/buildwatch/internal/notification"
	"github.com/zulandar/buildwatch/internal/phase"
	"github.com/zulandar/buildwatch/internal/project"
	"github.com/zulandar/buildwatch/internal/source"
	"github.com/zulandar/buildwatch/internal/telegraph"
	"gorm.io/gorm"
)

// BatchFetcher returns a batch and the source that served it.
type BatchFetcher interface {
	Name() string
	FetchBatch(ctx context.Context) (source.Batch, error)
}

// Syncer runs one refresh at a time; concurrent Sync calls queue.
type Syncer struct {
	mu sync.Mutex

	db              *gorm.DB
	fetcher         BatchFetcher
	clients         *kv.DB
	broadcaster     *telegraph.Broadcaster
	metrics         *metrics.Metrics
	notifyFollowers bool
	now             func() time.Time
	out             io.Writer
}

// Opts holds parameters for creating a Syncer. DB and Fetcher are required.
type Opts struct {
	DB              *gorm.DB
	Fetcher         BatchFetcher
	Broadcaster     *telegraph.Broadcaster // optional; nil skips chat
	Metrics         *metrics.Metrics       // optional
	NotifyFollowers bool
	Now             func() time.Time
	Out             io.Writer // defaults to io.Discard
}

// New creates a Syncer.
func New(opts Opts) (*Syncer, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("refresh: db is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("refresh: fetcher is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Syncer{
		db:              opts.DB,
		fetcher:         opts.Fetcher,
		clients:         kv.NewDB(opts.DB),
		broadcaster:     opts.Broadcaster,
		metrics:         opts.Metrics,
		notifyFollowers: opts.NotifyFollowers,
		now:             now,
		out:             out,
	}, nil
}

// Milestone is a phase that completed on a stored project.
type Milestone struct {
	ProjectID   string
	ProjectName string
	Address     string
	Progress    int
	Transition  phase.Transition
}

// Message is the notification text for the milestone.
func (m Milestone) Message() string {
	return fmt.Sprintf("%s phase completed - now %d%% done!", m.Transition.Phase.Label, m.Progress)
}

// Result summarises one Sync.
type Result struct {
	Source      string
	Projects    int
	FellBack    bool
	Transitions int
	Pruned      int64 // stored projects dropped because another source served them
	Milestones  []Milestone
	Notified    int // notifications written to follower inboxes
	Chat        int // adapters that accepted the broadcast
	RefreshedAt time.Time
}

// Sync fetches a batch, stores it, and announces completed phases. Progress
// changes on projects seen for the first time are not announced.
//
// A fallback batch is announced but never stored. A primary batch replaces
// projects stored from any other source.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.fetcher.FetchBatch(ctx)
	if err != nil {
		s.metrics.ObserveFetch(s.fetcher.Name(), metrics.OutcomeError, 0)
		return nil, fmt.Errorf("refresh: fetch: %w", err)
	}
	res := &Result{
		Source:      batch.Source,
		Projects:    len(batch.Projects),
		FellBack:    batch.FellBack(),
		RefreshedAt: s.now(),
	}
	if batch.FellBack() {
		s.metrics.ObserveFetch(batch.Source, metrics.OutcomeFallback, len(batch.Projects))
		res.Chat = s.announce(ctx, batch, res)
		fmt.Fprintf(s.out, "Served %d projects from %s; stored projects left unchanged\n", res.Projects, res.Source)
		return res, nil
	}
	s.metrics.ObserveFetch(batch.Source, metrics.OutcomeOK, len(batch.Projects))

	ids := make([]string, len(batch.Projects))
	for i, p := range batch.Projects {
		ids[i] = p.ID
	}
	before, err := project.Progress(s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if err := project.Upsert(s.db, batch.Projects, batch.Source); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if res.Pruned, err = project.Prune(s.db, batch.Source); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	for _, p := range batch.Projects {
		prior, ok := before[p.ID]
		if !ok {
			continue
		}
		for _, t := range phase.Transitions(prior, p.OverallProgress) {
			res.Transitions++
			s.metrics.ObserveTransition(string(t.Phase.Name), string(t.Phase.Status))
			if t.Completed() {
				res.Milestones = append(res.Milestones, Milestone{
					ProjectID:   p.ID,
					ProjectName: p.Name,
					Address:     p.Address,
					Progress:    phase.Clamp(p.OverallProgress),
					Transition:  t,
				})
			}
		}
	}

	if s.notifyFollowers && len(res.Milestones) > 0 {
		n, err := s.notify(ctx, res.Milestones)
		if err != nil {
			log.Printf("refresh: notify followers: %v", err)
		}
		res.Notified = n
	}

	res.Chat = s.announce(ctx, batch, res)

	fmt.Fprintf(s.out, "Refreshed %d projects from %s (%d milestones)\n", res.Projects, res.Source, len(res.Milestones))
	return res, nil
}

// notify adds a milestone notification to each client that favorites the
// project. Per-client failures are logged and skipped.
func (s *Syncer) notify(ctx context.Context, milestones []Milestone) (int, error) {
	clients, err := s.clients.ClientsWithKey(ctx, favorite.Key)
	if err != nil {
		return 0, err
	}

	var notified int
	for _, clientID := range clients {
		store := s.clients.For(clientID)
		favs, err := favorite.List(ctx, store)
		if err != nil {
			log.Printf("refresh: favorites for %s: %v", clientID, err)
			continue
		}
		inbox := notification.New(store, notification.WithClock(s.now))
		for _, m := range milestones {
			if !slices.Contains(favs, m.ProjectID) {
				continue
			}
			if _, err := inbox.Add(ctx, notification.AddOpts{
				ProjectID:   m.ProjectID,
				ProjectName: m.ProjectName,
				Type:        notification.TypeMilestone,
				Message:     m.Message(),
			}); err != nil {
				log.Printf("refresh: notify %s of %s: %v", clientID, m.ProjectID, err)
				continue
			}
			notified++
		}
	}
	return notified, nil
}

// announce posts milestones and a pulse summary to chat.
func (s *Syncer) announce(ctx context.Context, batch source.Batch, res *Result) int {
	if s.broadcaster.Len() == 0 {
		return 0
	}

	var delivered int
	if len(res.Milestones) > 0 {
		events := make([]telegraph.ProjectEvent, 0, len(res.Milestones))
		for _, m := range res.Milestones {
			events = append(events, telegraph.ProjectEvent{
				Type:        telegraph.EventMilestone,
				ProjectID:   m.ProjectID,
				ProjectName: m.ProjectName,
				Address:     m.Address,
				Phase:       m.Transition.Phase.Label,
				FromStatus:  string(m.Transition.From),
				ToStatus:    string(m.Transition.Phase.Status),
				Progress:    m.Progress,
			})
		}
		delivered = s.broadcaster.Publish(ctx, events...)
	}

	byPhase := make(map[string]int)
	for _, p := range batch.Projects {
		byPhase[p.CurrentPhase.Label]++
	}
	order := make([]string, len(phase.Definitions))
	for i, d := range phase.Definitions {
		order[i] = d.Label
	}
	s.broadcaster.Pulse(ctx, telegraph.PulseSummary{
		Source:      res.Source,
		Projects:    res.Projects,
		Milestones:  len(res.Milestones),
		FellBack:    res.FellBack,
		ByPhase:     byPhase,
		PhaseOrder:  order,
		RefreshedAt: res.RefreshedAt,
	})
	return delivered
}
