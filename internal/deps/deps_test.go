package deps

import (
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured detail, got %#v", results[2])
	}
}

func TestForConfigMarksToolsOptionalWhenCompressionDisabled(t *testing.T) {
	cfg := config.Default()

	reqs := ForConfig(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	for _, req := range reqs {
		if req.Optional {
			t.Errorf("%s should be required while compression is enabled", req.Name)
		}
	}

	cfg.Compression.Enabled = false
	for _, req := range ForConfig(&cfg) {
		if !req.Optional {
			t.Errorf("%s should be optional with compression disabled", req.Name)
		}
	}
}
