package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDBCmd_Help(t *testing.T) {
	out, err := runCmd(t, "", "db", "--help")
	if err != nil {
		t.Fatalf("db --help failed: %v", err)
	}
	if !strings.Contains(out, "Database management") {
		t.Errorf("expected help to mention 'Database management', got: %s", out)
	}
	if !strings.Contains(out, "init") || !strings.Contains(out, "reset") {
		t.Errorf("expected help to list init and reset, got: %s", out)
	}
}

func TestDBInitCmd_Help(t *testing.T) {
	out, err := runCmd(t, "", "db", "init", "--help")
	if err != nil {
		t.Fatalf("db init --help failed: %v", err)
	}
	if !strings.Contains(out, "--config") || !strings.Contains(out, "buildwatch.yaml") {
		t.Errorf("expected help to mention --config default, got: %s", out)
	}
}

func TestDBInitCmd_MissingConfig(t *testing.T) {
	_, err := runCmd(t, "", "db", "init", "--config", "/nonexistent/buildwatch.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestDBInitCmd_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildwatch.yaml")
	if err := os.WriteFile(path, []byte("source:\n  mode: carrier-pigeon\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := runCmd(t, "", "db", "init", "-c", path)
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	if !strings.Contains(err.Error(), "source.mode") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestDBInitCmd_SQLite(t *testing.T) {
	path := writeConfig(t, "")
	out, err := runCmd(t, "", "db", "init", "-c", path)
	if err != nil {
		t.Fatalf("db init: %v\n%s", err, out)
	}
	for _, want := range []string{"Migrated 4 tables", "Seeded 5 demo projects", "initialized successfully"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "bw.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	out, err = runCmd(t, "", "projects", "list", "-c", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "5 projects (database)") {
		t.Errorf("list after init:\n%s", out)
	}
}

func TestDBInitCmd_NoSeed(t *testing.T) {
	path := writeConfig(t, "")
	out, err := runCmd(t, "", "db", "init", "-c", path, "--no-seed")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Seeded") {
		t.Errorf("--no-seed still seeded:\n%s", out)
	}
}

func TestDBResetCmd_Aborted(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "-c", path); err != nil {
		t.Fatal(err)
	}
	out, err := runCmd(t, "no\n", "db", "reset", "-c", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "WARNING") || !strings.Contains(out, "Aborted.") {
		t.Errorf("output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "bw.db")); err != nil {
		t.Error("aborted reset removed the database")
	}
}

func TestDBResetCmd_Confirmed(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "-c", path); err != nil {
		t.Fatal(err)
	}
	out, err := runCmd(t, "yes\n", "db", "reset", "-c", path, "--no-seed")
	if err != nil {
		t.Fatalf("reset: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Dropped sqlite") || !strings.Contains(out, "Migrated 4 tables") {
		t.Errorf("output:\n%s", out)
	}

	out, err = runCmd(t, "", "projects", "list", "-c", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Demo Data - Toronto") {
		t.Errorf("reset store should fall back to demo:\n%s", out)
	}
}
