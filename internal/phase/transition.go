package phase

// Transition records a phase whose status differs between two overall
// progress values.
type Transition struct {
	Phase Phase  // phase as derived from the newer value
	From  Status // status under the older value
}

// Completed reports whether the transition finished the phase.
func (t Transition) Completed() bool {
	return t.Phase.Status == Completed && t.From != Completed
}

// Started reports whether the transition moved the phase out of upcoming.
func (t Transition) Started() bool {
	return t.From == Upcoming && t.Phase.Status != Upcoming
}

// Transitions lists, in table order, the phases whose status changed going
// from before to after. Progress changes within an active phase are not
// transitions.
func Transitions(before, after int) []Transition {
	old := Derive(before)
	cur := Derive(after)

	var out []Transition
	for i := range cur {
		if old[i].Status != cur[i].Status {
			out = append(out, Transition{Phase: cur[i], From: old[i].Status})
		}
	}
	return out
}
