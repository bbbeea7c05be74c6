package daemon_test

import (
	"context"
	"testing"
	"time"

	"vigil/internal/compression"
	"vigil/internal/config"
	"vigil/internal/daemon"
	"vigil/internal/eventlog"
	"vigil/internal/events"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/testsupport"
	"vigil/internal/uploader"
	"vigil/internal/workflow"
)

func newDaemon(t *testing.T, cfg *config.Config, store *events.Store) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	notifier, err := notifications.NewService(cfg, logger)
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	compressor, err := compression.New(cfg, logger)
	if err != nil {
		t.Fatalf("compressor: %v", err)
	}
	audit := eventlog.New(cfg, logger)
	t.Cleanup(func() { _ = audit.Close() })
	uploads := uploader.NewManager(cfg, nil, logger)
	wf := workflow.NewManager(cfg, store, logger, notifier, audit, compressor, uploads)

	d, err := daemon.New(cfg, store, logger, wf)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, store)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second := newDaemon(t, cfg, store)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance must not acquire the lock")
	}
}

func TestStartRecoversInterruptedEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 3600
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	path := testsupport.WriteFile(t, cfg.Paths.OutputDir, "stuck.mjpeg", []byte("payload"))

	// An event stranded mid-compression by a crash.
	stuck, err := store.NewEvent(ctx, "evt-stuck", "cam1", time.Now().Add(-time.Hour), path)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	stuck.Status = events.StatusCompressing
	if err := store.Update(ctx, stuck); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// An event that never finished recording.
	orphan, err := store.NewEvent(ctx, "evt-orphan", "cam1", time.Now().Add(-time.Hour), path)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	d := newDaemon(t, cfg, store)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()

	recovered, err := store.GetByEventID(ctx, stuck.EventID)
	if err != nil {
		t.Fatalf("GetByEventID: %v", err)
	}
	// Rolled back to recorded, then cancelled while queued at shutdown.
	if recovered.Status != events.StatusCancelled {
		t.Fatalf("stuck status = %s", recovered.Status)
	}

	failed, err := store.GetByEventID(ctx, orphan.EventID)
	if err != nil {
		t.Fatalf("GetByEventID orphan: %v", err)
	}
	if failed.Status != events.StatusFailed {
		t.Fatalf("orphan status = %s, want failed", failed.Status)
	}
}

func TestStatusReportsRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Compression.Enabled = false
	store := testsupport.MustOpenStore(t, cfg)

	d := newDaemon(t, cfg, store)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("status should report running")
	}
	if status.DBPath != cfg.DatabasePath() {
		t.Fatalf("db path = %s", status.DBPath)
	}
}
