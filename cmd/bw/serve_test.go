package main

import (
	"strings"
	"testing"
)

func TestServeCmd_Help(t *testing.T) {
	out, err := runCmd(t, "", "serve", "--help")
	if err != nil {
		t.Fatalf("serve --help: %v", err)
	}
	for _, want := range []string{"--port", "--no-refresh", "--config"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q:\n%s", want, out)
		}
	}
}

func TestServeCmd_MissingConfig(t *testing.T) {
	_, err := runCmd(t, "", "serve", "-c", "/nonexistent/buildwatch.yaml")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("err = %v", err)
	}
}
