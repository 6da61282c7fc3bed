package phase

import (
	"reflect"
	"testing"
)

type want struct {
	status   Status
	progress int
}

func assertPhases(t *testing.T, overall int, expected []want) {
	t.Helper()
	got := Derive(overall)
	if len(got) != len(expected) {
		t.Fatalf("Derive(%d) returned %d phases, want %d", overall, len(got), len(expected))
	}
	for i, w := range expected {
		if got[i].Status != w.status || got[i].Progress != w.progress {
			t.Errorf("Derive(%d)[%d] %s = %s(%d), want %s(%d)",
				overall, i, got[i].Name, got[i].Status, got[i].Progress, w.status, w.progress)
		}
	}
}

func TestDerive_Zero(t *testing.T) {
	assertPhases(t, 0, []want{
		{Active, 0}, {Upcoming, 0}, {Upcoming, 0}, {Upcoming, 0}, {Upcoming, 0},
	})
}

func TestDerive_ExactThreshold(t *testing.T) {
	assertPhases(t, 20, []want{
		{Completed, 100}, {Active, 0}, {Upcoming, 0}, {Upcoming, 0}, {Upcoming, 0},
	})
}

func TestDerive_MidPhase(t *testing.T) {
	assertPhases(t, 50, []want{
		{Completed, 100}, {Completed, 100}, {Active, 50}, {Upcoming, 0}, {Upcoming, 0},
	})
}

func TestDerive_LastPhaseActive(t *testing.T) {
	assertPhases(t, 99, []want{
		{Completed, 100}, {Completed, 100}, {Completed, 100}, {Completed, 100}, {Active, 95},
	})
}

func TestDerive_Hundred(t *testing.T) {
	assertPhases(t, 100, []want{
		{Completed, 100}, {Completed, 100}, {Completed, 100}, {Completed, 100}, {Completed, 100},
	})
}

func TestDerive_Clamping(t *testing.T) {
	if !reflect.DeepEqual(Derive(-10), Derive(0)) {
		t.Error("Derive(-10) should equal Derive(0)")
	}
	if !reflect.DeepEqual(Derive(150), Derive(100)) {
		t.Error("Derive(150) should equal Derive(100)")
	}
}

func TestDerive_Idempotent(t *testing.T) {
	for p := -5; p <= 105; p++ {
		if !reflect.DeepEqual(Derive(p), Derive(p)) {
			t.Fatalf("Derive(%d) not deterministic", p)
		}
	}
}

func TestDerive_FreshSlice(t *testing.T) {
	a := Derive(30)
	a[0].Status = Upcoming
	b := Derive(30)
	if b[0].Status != Completed {
		t.Error("mutating a derived slice leaked into a later call")
	}
}

func TestDerive_IDsAndOrder(t *testing.T) {
	names := []Name{Planning, Excavation, Foundation, Framing, Finishing}
	labels := []string{"Planning", "Excavation", "Foundation", "Framing", "Finishing"}
	ids := []string{"phase-0", "phase-1", "phase-2", "phase-3", "phase-4"}
	for p := 0; p <= 100; p++ {
		got := Derive(p)
		for i := range got {
			if got[i].Name != names[i] || got[i].Label != labels[i] || got[i].ID != ids[i] {
				t.Fatalf("Derive(%d)[%d] = %+v", p, i, got[i])
			}
		}
	}
}

func TestDerive_Invariants(t *testing.T) {
	rank := map[Status]int{Completed: 0, Active: 1, Upcoming: 2}
	for p := 0; p <= 100; p++ {
		got := Derive(p)
		active := 0
		for i, ph := range got {
			if ph.Progress < 0 || ph.Progress > 100 {
				t.Errorf("Derive(%d)[%d] progress %d out of range", p, i, ph.Progress)
			}
			switch ph.Status {
			case Active:
				active++
			case Completed:
				if ph.Progress != 100 {
					t.Errorf("Derive(%d)[%d] completed with progress %d", p, i, ph.Progress)
				}
			case Upcoming:
				if ph.Progress != 0 {
					t.Errorf("Derive(%d)[%d] upcoming with progress %d", p, i, ph.Progress)
				}
			}
			if i > 0 && rank[got[i-1].Status] > rank[ph.Status] {
				t.Errorf("Derive(%d): %s after %s breaks monotonicity", p, ph.Status, got[i-1].Status)
			}
		}
		if active > 1 {
			t.Errorf("Derive(%d) has %d active phases", p, active)
		}
		if p < 100 && active != 1 {
			t.Errorf("Derive(%d) has %d active phases, want 1", p, active)
		}
	}
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		overall int
		name    Name
	}{
		{0, Planning},
		{29, Excavation},
		{53, Foundation},
		{71, Framing},
		{97, Finishing},
		{100, Planning}, // nothing active: first phase
	}
	for _, tt := range tests {
		got := Current(Derive(tt.overall))
		if got.Name != tt.name {
			t.Errorf("Current(Derive(%d)) = %s, want %s", tt.overall, got.Name, tt.name)
		}
	}
}

func TestCurrent_Empty(t *testing.T) {
	if got := Current(nil); got != (Phase{}) {
		t.Errorf("Current(nil) = %+v, want zero", got)
	}
}

func TestClamp(t *testing.T) {
	tests := map[int]int{-1: 0, 0: 0, 42: 42, 100: 100, 101: 100}
	for in, want := range tests {
		if got := Clamp(in); got != want {
			t.Errorf("Clamp(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestLookup(t *testing.T) {
	def, ok := Lookup(Framing)
	if !ok || def.Threshold != 60 {
		t.Errorf("Lookup(FRAMING) = %+v, %v", def, ok)
	}
	if _, ok := Lookup("ROOFING"); ok {
		t.Error("Lookup(ROOFING) should fail")
	}
}

func TestTransitions(t *testing.T) {
	got := Transitions(35, 45)
	if len(got) != 2 {
		t.Fatalf("Transitions(35,45) = %d, want 2", len(got))
	}
	if got[0].Phase.Name != Excavation || !got[0].Completed() {
		t.Errorf("first transition = %+v, want EXCAVATION completed", got[0])
	}
	if got[1].Phase.Name != Foundation || !got[1].Started() {
		t.Errorf("second transition = %+v, want FOUNDATION started", got[1])
	}
}

func TestTransitions_WithinPhase(t *testing.T) {
	if got := Transitions(41, 58); len(got) != 0 {
		t.Errorf("Transitions(41,58) = %v, want none", got)
	}
}

func TestTransitions_ToHundred(t *testing.T) {
	got := Transitions(90, 100)
	if len(got) != 1 || got[0].Phase.Name != Finishing || !got[0].Completed() {
		t.Errorf("Transitions(90,100) = %+v", got)
	}
}
