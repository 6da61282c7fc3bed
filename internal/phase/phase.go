// Package phase derives a five-stage construction timeline from a single
// overall-progress percentage.
package phase

import (
	"fmt"
	"math"
)

// Name identifies a construction phase.
type Name string

const (
	Planning   Name = "PLANNING"
	Excavation Name = "EXCAVATION"
	Foundation Name = "FOUNDATION"
	Framing    Name = "FRAMING"
	Finishing  Name = "FINISHING"
)

// Status is the derived state of a phase.
type Status string

const (
	Completed Status = "completed"
	Active    Status = "active"
	Upcoming  Status = "upcoming"
)

// Definition is one row of the static phase table.
type Definition struct {
	Name      Name
	Label     string
	Threshold int // overall progress at which the phase begins
}

// Phase is a derived phase. Phases are rebuilt from scratch on every call to
// Derive and are never updated in place.
type Phase struct {
	ID       string `json:"id"`
	Name     Name   `json:"name"`
	Label    string `json:"label"`
	Progress int    `json:"progress"`
	Status   Status `json:"status"`
}

// Definitions is the ordered phase table. Thresholds are strictly increasing.
var Definitions = []Definition{
	{Name: Planning, Label: "Planning", Threshold: 0},
	{Name: Excavation, Label: "Excavation", Threshold: 20},
	{Name: Foundation, Label: "Foundation", Threshold: 40},
	{Name: Framing, Label: "Framing", Threshold: 60},
	{Name: Finishing, Label: "Finishing", Threshold: 80},
}

// Clamp bounds an overall progress value to [0,100].
func Clamp(overall int) int {
	if overall < 0 {
		return 0
	}
	if overall > 100 {
		return 100
	}
	return overall
}

// Derive converts an overall progress value into one Phase per definition, in
// table order. Out-of-range input is clamped. Progress 0 leaves PLANNING
// active at 0%; progress 100 completes every phase.
func Derive(overall int) []Phase {
	p := Clamp(overall)
	phases := make([]Phase, len(Definitions))
	for i, def := range Definitions {
		next := 100
		if i+1 < len(Definitions) {
			next = Definitions[i+1].Threshold
		}

		ph := Phase{
			ID:    fmt.Sprintf("phase-%d", i),
			Name:  def.Name,
			Label: def.Label,
		}
		switch {
		case p >= next:
			ph.Status = Completed
			ph.Progress = 100
		case p >= def.Threshold:
			ph.Status = Active
			ph.Progress = int(math.Round(100 * float64(p-def.Threshold) / float64(next-def.Threshold)))
		default:
			ph.Status = Upcoming
			ph.Progress = 0
		}
		phases[i] = ph
	}
	return phases
}

// Current returns the active phase, or the first phase when none is active.
// It returns the zero Phase for an empty slice.
func Current(phases []Phase) Phase {
	for _, ph := range phases {
		if ph.Status == Active {
			return ph
		}
	}
	if len(phases) == 0 {
		return Phase{}
	}
	return phases[0]
}

// Lookup returns the definition for a phase name.
func Lookup(name Name) (Definition, bool) {
	for _, def := range Definitions {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
