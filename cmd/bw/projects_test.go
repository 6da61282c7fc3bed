package main

import (
	"strings"
	"testing"
)

func TestProjectsList_DemoFallback(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "-c", path, "--no-seed"); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "", "projects", "list", "-c", path)
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	for _, want := range []string{"ID", "PHASE", "The Meridian Residences", "Foundation 65%", "5 projects (Demo Data - Toronto)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProjectsList_Filter(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "-c", path); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "", "projects", "list", "-c", path, "--filter", "renovation")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 projects") || strings.Contains(out, "Meridian") {
		t.Errorf("renovation filter:\n%s", out)
	}

	out, err = runCmd(t, "", "projects", "list", "-c", path, "-f", "near-me", "--lat", "45.5", "--lng", "-73.5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No projects found.") {
		t.Errorf("near-me far away:\n%s", out)
	}

	if _, err := runCmd(t, "", "projects", "list", "-c", path, "-f", "skyscraper"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestProjectsShow(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "-c", path); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "", "projects", "show", "1", "-c", path)
	if err != nil {
		t.Fatalf("projects show: %v", err)
	}
	for _, want := range []string{"The Meridian Residences (1)", "$15,000,000", "phase-2", "Foundation", "Updates (2)", "Local Neighbor"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	_, err = runCmd(t, "", "projects", "show", "nope", "-c", path)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("missing project err = %v", err)
	}
}

func TestProjectsSearch(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "-c", path); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "", "projects", "search", "queen", "-c", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Queen Street Heritage Restoration") || !strings.Contains(out, "Harbourfront Towers") {
		t.Errorf("search output:\n%s", out)
	}

	out, err = runCmd(t, "", "projects", "search", "zzzz", "-c", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `No projects match "zzzz".`) {
		t.Errorf("no-match output:\n%s", out)
	}

	if _, err := runCmd(t, "", "projects", "search", "q", "-c", path); err == nil {
		t.Error("expected error for one-character query")
	}
}
