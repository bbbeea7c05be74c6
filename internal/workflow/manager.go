package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vigil/internal/compression"
	"vigil/internal/config"
	"vigil/internal/eventlog"
	"vigil/internal/events"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/recorder"
	"vigil/internal/uploader"
)

// Manager drives queued events through the compression and upload stages
// and finalizes terminal outcomes with audit records and notifications.
type Manager struct {
	cfg          *config.Config
	store        *events.Store
	logger       *slog.Logger
	notifier     notifications.Service
	audit        *eventlog.Log
	uploads      *uploader.Manager
	recorder     *recorder.Recorder
	stages       []pipelineStage
	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error

	cameras []Camera
}

// NewManager wires the pipeline from its collaborators.
func NewManager(
	cfg *config.Config,
	store *events.Store,
	logger *slog.Logger,
	notifier notifications.Service,
	audit *eventlog.Log,
	compressor *compression.Compressor,
	uploads *uploader.Manager,
) *Manager {
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		notifier:     notifier,
		audit:        audit,
		uploads:      uploads,
		recorder:     recorder.New(cfg, logger),
		pollInterval: cfg.QueuePollInterval(),
	}
	m.stages = []pipelineStage{
		{
			name:       "compress",
			pending:    events.StatusRecorded,
			processing: events.StatusCompressing,
			done:       events.StatusCompressed,
			handler:    newCompressStage(cfg, compressor),
		},
		{
			name:       "upload",
			pending:    events.StatusCompressed,
			processing: events.StatusUploading,
			done:       events.StatusCompleted,
			handler:    newUploadStage(cfg, uploads),
		},
	}
	return m
}

// Start launches the upload pool, the camera loops, and the stage poller.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	cameras := m.cameras
	m.mu.Unlock()

	m.uploads.Start(runCtx)

	for _, camera := range cameras {
		m.wg.Add(1)
		go m.runCamera(runCtx, camera)
	}

	m.wg.Add(1)
	go m.runPipeline(runCtx)
	return nil
}

// Stop shuts the pipeline down: camera loops finalize open sessions as
// exits, queued events and upload jobs are cancelled with audit records,
// and in-flight work gets the configured grace period.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.uploads.Stop(m.cfg.ShutdownGrace())

	ctx, done := context.WithTimeout(context.Background(), 30*time.Second)
	defer done()
	cancelled, err := m.store.CancelQueued(ctx, events.ShutdownCancelReason)
	if err != nil {
		m.logger.Error("cancelling queued events failed", logging.Error(err))
	}
	for _, event := range cancelled {
		if err := m.audit.Record(event); err != nil {
			m.logger.Error("audit record for cancelled event failed",
				logging.String(logging.FieldEventID, event.EventID),
				logging.Error(err))
		}
	}
	m.logger.Info("workflow stopped", logging.Int("cancelled_events", len(cancelled)))
}

// RecoverInterrupted rolls events stranded mid-stage by an unclean
// shutdown back to their queue positions and writes audit records for
// recordings that lost their writer and cannot resume.
func (m *Manager) RecoverInterrupted(ctx context.Context) ([]*events.Event, error) {
	orphans, err := m.store.RecoverStuck(ctx)
	if err != nil {
		return nil, err
	}
	for _, event := range orphans {
		event.NotificationStatus = events.NotifySkipped
		if err := m.audit.Record(event); err != nil {
			m.logger.Error("audit record for interrupted recording failed",
				logging.String(logging.FieldEventID, event.EventID),
				logging.Error(err))
		}
		if err := m.store.Update(ctx, event); err != nil {
			m.logger.Error("persisting interrupted recording failed",
				logging.String(logging.FieldEventID, event.EventID),
				logging.Error(err))
		}
	}
	return orphans, nil
}

// LastError returns the most recent pipeline failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) runPipeline(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		progressed := false
		for i := range m.stages {
			if ctx.Err() != nil {
				return
			}
			if m.runStageOnce(ctx, &m.stages[i]) {
				progressed = true
			}
		}
		if !progressed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.pollInterval):
			}
		}
	}
}

// runStageOnce claims and processes at most one event for the stage,
// reporting whether it found work.
func (m *Manager) runStageOnce(ctx context.Context, st *pipelineStage) bool {
	event, err := m.store.NextForStatus(ctx, st.pending)
	if err != nil {
		m.setLastError(err)
		m.logger.Error("fetching next event failed",
			logging.String(logging.FieldStage, st.name),
			logging.Error(err))
		return false
	}
	if event == nil {
		return false
	}
	m.processEvent(ctx, st, event)
	return true
}

func (m *Manager) processEvent(ctx context.Context, st *pipelineStage, event *events.Event) {
	stageLogger := m.logger.With(
		logging.String(logging.FieldStage, st.name),
		logging.String(logging.FieldEventID, event.EventID),
		logging.String(logging.FieldCamera, event.CameraID))

	event.Status = st.processing
	event.ErrorMessage = ""
	if err := m.store.Update(ctx, event); err != nil {
		m.setLastError(err)
		stageLogger.Error("claiming event failed", logging.Error(err))
		return
	}
	stageLogger.Info("stage started")
	start := time.Now()

	if err := st.handler.Prepare(ctx, event); err != nil {
		m.failEvent(ctx, stageLogger, event, err)
		return
	}
	if err := st.handler.Execute(ctx, event); err != nil {
		if errors.Is(err, context.Canceled) {
			// The event stays in its processing status; startup recovery
			// rolls it back to the preceding queue position.
			stageLogger.Info("stage interrupted by shutdown")
			return
		}
		m.failEvent(ctx, stageLogger, event, err)
		return
	}

	event.Status = st.done
	if event.Status == events.StatusCompleted {
		m.finalizeCompleted(ctx, stageLogger, event)
	}
	if err := m.store.Update(ctx, event); err != nil {
		m.setLastError(err)
		stageLogger.Error("persisting stage result failed", logging.Error(err))
		return
	}
	stageLogger.Info("stage completed",
		logging.String("status", string(event.Status)),
		logging.Duration("stage_duration", time.Since(start)))
}

// failEvent marks the event permanently failed and finalizes it: one audit
// record, a best-effort failure notification, persisted terminal state.
func (m *Manager) failEvent(ctx context.Context, stageLogger *slog.Logger, event *events.Event, cause error) {
	m.setLastError(cause)
	stageLogger.Error("stage failed", logging.Error(cause))

	event.SetFailed(cause.Error())
	status, notifyErr := m.notifier.NotifyEventFailed(ctx, event)
	if notifyErr != nil {
		stageLogger.Warn("failure notification not delivered", logging.Error(notifyErr))
	}
	event.NotificationStatus = status

	if err := m.audit.Record(event); err != nil {
		stageLogger.Error("audit record failed", logging.Error(err))
	}
	if err := m.store.Update(ctx, event); err != nil {
		stageLogger.Error("persisting failed event failed", logging.Error(err))
	}
}

// finalizeCompleted runs once per successful event, before the terminal
// status persists: notification first, then the audit record capturing the
// delivery outcome.
func (m *Manager) finalizeCompleted(ctx context.Context, stageLogger *slog.Logger, event *events.Event) {
	status, notifyErr := m.notifier.NotifyEventCompleted(ctx, event)
	if notifyErr != nil {
		stageLogger.Warn("completion notification not delivered", logging.Error(notifyErr))
	}
	event.NotificationStatus = status

	if err := m.audit.Record(event); err != nil {
		stageLogger.Error("audit record failed", logging.Error(err))
	}
}
