package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vigil/internal/config"
	"vigil/internal/events"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *events.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "recordings")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.Bucket = "vigil-test"
	cfgVal.Storage.AccessKeyID = "test"
	cfgVal.Storage.SecretAccessKey = "test"
	cfg := &cfgVal

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	store, err := events.Open(cfg)
	if err != nil {
		t.Fatalf("events.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\noutput_dir = %q\nlog_dir = %q\n\n"+
			"[storage]\nbucket = %q\naccess_key_id = %q\nsecret_access_key = %q\n\n"+
			"[[camera]]\nid = \"front\"\nsource = \"http://camera.test/video\"\nenabled = true\n",
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Storage.Bucket,
		cfg.Storage.AccessKeyID,
		cfg.Storage.SecretAccessKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func seedEvent(t *testing.T, env *cliTestEnv, cameraID string, status events.Status) *events.Event {
	t.Helper()
	ctx := context.Background()
	entry := time.Now().Add(-time.Minute)
	event, err := env.store.NewEvent(ctx, fmt.Sprintf("evt-%s-%s", cameraID, status), cameraID, entry, filepath.Join(env.baseDir, "clip.mjpeg"))
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	exit := entry.Add(30 * time.Second)
	event.ExitTime = &exit
	event.Status = status
	event.OriginalBytes = 4096
	if err := env.store.Update(ctx, event); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return event
}

func TestCLIEventsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	seedEvent(t, env, "front", events.StatusRecorded)
	completed := seedEvent(t, env, "yard", events.StatusCompleted)

	out, _, err := runCLI(t, []string{"events", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("events list: %v", err)
	}
	requireContains(t, out, "front")
	requireContains(t, out, "yard")
	requireContains(t, out, "recorded")

	out, _, err = runCLI(t, []string{"events", "list", "--status", "completed"}, env.configPath)
	if err != nil {
		t.Fatalf("events list --status: %v", err)
	}
	requireContains(t, out, "yard")
	if strings.Contains(out, "front") {
		t.Errorf("status filter leaked other statuses: %q", out)
	}

	_, _, err = runCLI(t, []string{"events", "list", "--status", "bogus"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}

	out, _, err = runCLI(t, []string{"events", "show", completed.EventID}, env.configPath)
	if err != nil {
		t.Fatalf("events show: %v", err)
	}
	requireContains(t, out, completed.EventID)
	requireContains(t, out, "yard")

	_, _, err = runCLI(t, []string{"events", "show", "missing"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCLIStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedEvent(t, env, "front", events.StatusFailed)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "failed:     1")
}

func TestCLIUploadRequiresArgument(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"upload"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--backlog") {
		t.Fatalf("expected usage error, got %v", err)
	}
}
