package telegraph

import "time"

// EventType identifies the kind of project event.
type EventType string

const (
	EventMilestone EventType = "milestone" // a phase completed or started
	EventUpdate    EventType = "update"    // a community update was posted
	EventPulse     EventType = "pulse"     // refresh summary
)

// ProjectEvent is a project change worth announcing.
type ProjectEvent struct {
	Type        EventType
	ProjectID   string
	ProjectName string
	Address     string

	// Milestone fields.
	Phase      string // phase label, e.g. "Foundation"
	FromStatus string
	ToStatus   string
	Progress   int // overall progress after the change

	// Update fields.
	Username  string
	Text      string
	Timestamp time.Time
}

// PulseSummary describes one refresh.
type PulseSummary struct {
	Source      string
	Projects    int
	Milestones  int
	FellBack    bool
	ByPhase     map[string]int // current phase label -> project count
	PhaseOrder  []string       // display order for ByPhase
	RefreshedAt time.Time
}
