package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vigil/internal/config"
	"vigil/internal/events"
	"vigil/internal/logging"
	"vigil/internal/workflow"
)

// Daemon coordinates background processing and enforces single-instance
// execution via a lock file in the log directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *events.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Health       workflow.HealthReport
	DBPath       string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *events.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "vigild.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, rolls interrupted events back to their
// queue positions, and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vigil daemon instance is already running")
	}

	orphans, err := d.workflow.RecoverInterrupted(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover interrupted events: %w", err)
	}
	for _, event := range orphans {
		d.logger.Warn("recording interrupted by previous shutdown marked failed",
			logging.String(logging.FieldEventID, event.EventID),
			logging.String(logging.FieldCamera, event.CameraID))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("vigil daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vigil daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ListEvents returns recent events, optionally filtered to one status.
func (d *Daemon) ListEvents(ctx context.Context, status events.Status, limit int) ([]*events.Event, error) {
	if status == "" {
		return d.store.List(ctx, limit)
	}
	return d.store.ListByStatus(ctx, status)
}

// Status returns current runtime information.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	health, err := d.workflow.Health(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		Health:       health,
		DBPath:       d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}, nil
}
