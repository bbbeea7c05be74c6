package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vigil/internal/detection"
	"vigil/internal/events"
	"vigil/internal/fileutil"
	"vigil/internal/logging"
)

// Camera bundles one camera's frame source with its detector.
type Camera struct {
	ID       string
	Source   detection.Source
	Detector detection.Detector
}

// AttachCameras registers the live camera loops to run on Start. Must be
// called before Start.
func (m *Manager) AttachCameras(cameras ...Camera) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameras = append(m.cameras, cameras...)
}

// runCamera is the sequential detection loop for one camera. Tracking and
// recording happen synchronously here; nothing in this loop blocks on I/O
// beyond local disk writes.
func (m *Manager) runCamera(ctx context.Context, camera Camera) {
	defer m.wg.Done()
	defer camera.Source.Close()

	logger := m.logger.With(logging.String(logging.FieldCamera, camera.ID))
	tracker := detection.NewTracker(detection.ThresholdsFromConfig(m.cfg))
	var current *events.Event

	logger.Info("camera loop started")
	for {
		frame, err := camera.Source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				m.finalizeOpenSession(camera.ID, current, time.Now(), logger)
				return
			case errors.Is(err, io.EOF):
				logger.Info("camera stream ended")
				m.finalizeOpenSession(camera.ID, current, time.Now(), logger)
				return
			default:
				logger.Warn("frame read failed", logging.Error(err))
				select {
				case <-ctx.Done():
					m.finalizeOpenSession(camera.ID, current, time.Now(), logger)
					return
				case <-time.After(time.Second):
				}
				continue
			}
		}

		detections, err := camera.Detector.Detect(ctx, frame)
		if err != nil {
			logger.Warn("detector failed on frame", logging.Error(err))
			continue
		}

		transition := tracker.Observe(frame.Timestamp, detections)
		if transition != nil {
			switch transition.Kind {
			case detection.Entered:
				current = m.beginEvent(ctx, camera.ID, transition.Timestamp, logger)
			case detection.Exited:
				m.closeEvent(ctx, camera.ID, current, transition.Timestamp, logger)
				current = nil
			}
		}

		if current != nil && tracker.State() != detection.StateAbsent {
			if err := m.recorder.OnFrame(camera.ID, frame); err != nil {
				// Local-fatal: this event is lost, the camera keeps going.
				m.failLiveEvent(ctx, current, err, logger)
				current = nil
				tracker = detection.NewTracker(detection.ThresholdsFromConfig(m.cfg))
			}
		}
	}
}

// beginEvent opens the recording session and its event row.
func (m *Manager) beginEvent(ctx context.Context, cameraID string, entry time.Time, logger *slog.Logger) *events.Event {
	path, err := m.recorder.OnEntered(cameraID, entry)
	if err != nil {
		m.setLastError(err)
		logger.Error("recording session open failed", logging.Error(err))
		return nil
	}

	event, err := m.store.NewEvent(ctx, uuid.NewString(), cameraID, entry, path)
	if err != nil {
		m.setLastError(err)
		logger.Error("event row insert failed", logging.Error(err))
		m.recorder.Abort(cameraID)
		return nil
	}
	logger.Info("event opened",
		logging.String(logging.FieldEventID, event.EventID),
		logging.String("path", path))
	return event
}

// closeEvent finalizes the recording and queues the event for compression.
func (m *Manager) closeEvent(ctx context.Context, cameraID string, event *events.Event, exit time.Time, logger *slog.Logger) {
	if event == nil {
		return
	}
	result, err := m.recorder.OnExited(cameraID, exit)
	if err != nil {
		m.failLiveEvent(ctx, event, err, logger)
		return
	}

	size, err := fileutil.FileSize(result.Path)
	if err != nil {
		m.failLiveEvent(ctx, event, events.Wrap(events.ErrLocalFatal, "workflow", "close event", "stat recording", err), logger)
		return
	}

	event.ExitTime = &exit
	event.LocalPath = result.Path
	event.OriginalBytes = size
	event.Status = events.StatusRecorded
	if err := m.store.Update(ctx, event); err != nil {
		m.setLastError(err)
		logger.Error("queueing recorded event failed",
			logging.String(logging.FieldEventID, event.EventID),
			logging.Error(err))
		return
	}
	logger.Info("event recorded",
		logging.String(logging.FieldEventID, event.EventID),
		logging.Duration("duration", result.Duration()),
		logging.Int64("bytes", size))
}

// finalizeOpenSession treats shutdown or stream end as an exit so a partial
// recording still becomes a complete, uploadable event.
func (m *Manager) finalizeOpenSession(cameraID string, event *events.Event, at time.Time, logger *slog.Logger) {
	if event == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.closeEvent(ctx, cameraID, event, at, logger)
}

// failLiveEvent records a local-fatal recording failure: the event turns
// terminal immediately with an audit record, no compression or upload.
func (m *Manager) failLiveEvent(ctx context.Context, event *events.Event, cause error, logger *slog.Logger) {
	m.setLastError(cause)
	logger.Error("live event failed",
		logging.String(logging.FieldEventID, event.EventID),
		logging.Error(cause))

	event.SetFailed(cause.Error())
	status, notifyErr := m.notifier.NotifyEventFailed(ctx, event)
	if notifyErr != nil {
		logger.Warn("failure notification not delivered", logging.Error(notifyErr))
	}
	event.NotificationStatus = status

	if err := m.audit.Record(event); err != nil {
		logger.Error("audit record failed", logging.Error(err))
	}
	if err := m.store.Update(ctx, event); err != nil {
		logger.Error("persisting failed event failed", logging.Error(err))
	}
}
