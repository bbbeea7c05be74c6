package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vigil/internal/config"
	"vigil/internal/detection"
	"vigil/internal/events"
	"vigil/internal/fileutil"
	"vigil/internal/logging"
	"vigil/internal/textutil"
)

// Result describes a closed recording session.
type Result struct {
	CameraID string
	Path     string
	Started  time.Time
	Ended    time.Time
	Frames   int
	Bytes    int64
}

// Duration returns the wall-clock span of the session.
func (r Result) Duration() time.Duration {
	return r.Ended.Sub(r.Started)
}

type session struct {
	cameraID string
	path     string
	started  time.Time
	file     *os.File
	frames   int
	bytes    int64
}

// Recorder owns at most one open session per camera. All methods are safe
// for concurrent use across cameras; calls for a single camera come from
// that camera's sequential detection loop.
type Recorder struct {
	outputDir string
	container string
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds a Recorder writing session files under the configured output
// directory.
func New(cfg *config.Config, logger *slog.Logger) *Recorder {
	return &Recorder{
		outputDir: cfg.Paths.OutputDir,
		container: cfg.Detection.RecordingContainer,
		logger:    logging.NewComponentLogger(logger, "recorder"),
		sessions:  make(map[string]*session),
	}
}

// OnEntered opens a session for the camera and returns the file path that
// frames will accumulate into. A second call while a session is open is a
// no-op returning the open session's path; it indicates an orchestration
// bug upstream, so it logs a warning rather than failing the event.
func (r *Recorder) OnEntered(cameraID string, timestamp time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if open, ok := r.sessions[cameraID]; ok {
		r.logger.Warn("entry with session already open",
			logging.String(logging.FieldCamera, cameraID),
			logging.String("path", open.path))
		return open.path, nil
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", events.Wrap(events.ErrLocalFatal, "recorder", "open", "create output directory", err)
	}

	name := fmt.Sprintf("%s_%s.%s",
		textutil.SanitizeToken(cameraID),
		timestamp.Format("20060102_150405"),
		r.container)
	path := fileutil.UniquePath(filepath.Join(r.outputDir, name))

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", events.Wrap(events.ErrLocalFatal, "recorder", "open", "create session file", err)
	}

	r.sessions[cameraID] = &session{
		cameraID: cameraID,
		path:     path,
		started:  timestamp,
		file:     file,
	}
	r.logger.Info("recording started",
		logging.String(logging.FieldCamera, cameraID),
		logging.String("path", path))
	return path, nil
}

// OnFrame appends one encoded frame payload to the camera's open session.
// A write failure aborts the session and discards the partial file; the
// returned error carries the local-fatal marker so the orchestrator fails
// the event without attempting compression or upload.
func (r *Recorder) OnFrame(cameraID string, frame detection.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	open, ok := r.sessions[cameraID]
	if !ok {
		// Frames between exit and the next confirmed entry are expected;
		// nothing to do.
		return nil
	}

	n, err := open.file.Write(frame.Data)
	if err != nil {
		r.abortLocked(open)
		return events.Wrap(events.ErrLocalFatal, "recorder", "write", "append frame", err)
	}
	open.frames++
	open.bytes += int64(n)
	return nil
}

// OnExited flushes and closes the camera's session, returning the finished
// file. A close or sync failure discards the partial file like a write
// failure would.
func (r *Recorder) OnExited(cameraID string, timestamp time.Time) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	open, ok := r.sessions[cameraID]
	if !ok {
		return Result{}, events.Wrap(events.ErrLocalFatal, "recorder", "close", "no open session for "+cameraID, nil)
	}
	return r.closeLocked(open, timestamp)
}

// Abort discards the camera's open session, if any, removing the partial
// file. It reports whether a session was open.
func (r *Recorder) Abort(cameraID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	open, ok := r.sessions[cameraID]
	if !ok {
		return false
	}
	r.abortLocked(open)
	return true
}

// CloseAll finalizes every open session as an exit at the given timestamp.
// Used on shutdown so partial recordings survive as complete events.
func (r *Recorder) CloseAll(timestamp time.Time) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]Result, 0, len(r.sessions))
	for _, open := range r.sessions {
		result, err := r.closeLocked(open, timestamp)
		if err != nil {
			r.logger.Error("session finalize failed during shutdown",
				logging.String(logging.FieldCamera, open.cameraID),
				logging.Error(err))
			continue
		}
		results = append(results, result)
	}
	return results
}

// Open reports whether the camera has a session in progress.
func (r *Recorder) Open(cameraID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[cameraID]
	return ok
}

func (r *Recorder) closeLocked(open *session, timestamp time.Time) (Result, error) {
	delete(r.sessions, open.cameraID)

	if err := open.file.Sync(); err != nil {
		r.discard(open)
		return Result{}, events.Wrap(events.ErrLocalFatal, "recorder", "close", "sync session file", err)
	}
	if err := open.file.Close(); err != nil {
		r.discard(open)
		return Result{}, events.Wrap(events.ErrLocalFatal, "recorder", "close", "close session file", err)
	}

	result := Result{
		CameraID: open.cameraID,
		Path:     open.path,
		Started:  open.started,
		Ended:    timestamp,
		Frames:   open.frames,
		Bytes:    open.bytes,
	}
	r.logger.Info("recording finished",
		logging.String(logging.FieldCamera, open.cameraID),
		logging.String("path", open.path),
		logging.Int("frames", open.frames),
		logging.Int64("bytes", open.bytes),
		logging.Duration("duration", result.Duration()))
	return result, nil
}

func (r *Recorder) abortLocked(open *session) {
	delete(r.sessions, open.cameraID)
	r.discard(open)
	r.logger.Warn("recording aborted",
		logging.String(logging.FieldCamera, open.cameraID),
		logging.String("path", open.path))
}

func (r *Recorder) discard(open *session) {
	_ = open.file.Close()
	if err := os.Remove(open.path); err != nil && !os.IsNotExist(err) {
		r.logger.Error("partial file removal failed",
			logging.String("path", open.path),
			logging.Error(err))
	}
}
