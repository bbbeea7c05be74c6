// Package eventlog maintains the append-only audit trail of terminal event
// outcomes. One JSON line per event lands in a per-day file; records are
// never edited or deleted, so the log reads as a consistent history of
// completed outcomes rather than a progress trace.
package eventlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vigil/internal/config"
	"vigil/internal/events"
	"vigil/internal/logging"
)

const filePattern = "detection_events_%s.log"

// Record is one audit line. Times serialize as RFC 3339.
type Record struct {
	EventID    string     `json:"event_id"`
	CameraID   string     `json:"camera_id"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	VideoURL   string     `json:"video_url,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Notified   bool       `json:"notified"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Log appends terminal event records to per-day files under the log
// directory. Files open lazily and rotate at local-day boundaries.
type Log struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	file *os.File
	day  string
	seen map[string]bool
}

// New builds a Log writing under the configured log directory.
func New(cfg *config.Config, logger *slog.Logger) *Log {
	return newWithClock(cfg, logger, time.Now)
}

func newWithClock(cfg *config.Config, logger *slog.Logger, now func() time.Time) *Log {
	return &Log{
		dir:    cfg.Paths.LogDir,
		logger: logging.NewComponentLogger(logger, "eventlog"),
		now:    now,
		seen:   make(map[string]bool),
	}
}

// Record appends one audit line for a terminal event. Non-terminal events
// are rejected; recording the same event twice is a no-op, keeping the
// exactly-once guarantee across orchestration retries.
func (l *Log) Record(event *events.Event) error {
	if event == nil || event.EventID == "" {
		return events.Wrap(events.ErrConfiguration, "eventlog", "record", "event missing identifier", nil)
	}
	if !event.IsTerminal() {
		return events.Wrap(events.ErrConfiguration, "eventlog", "record",
			fmt.Sprintf("event %s is %s, not terminal", event.EventID, event.Status), nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[event.EventID] {
		l.logger.Warn("duplicate audit record suppressed",
			logging.String(logging.FieldEventID, event.EventID))
		return nil
	}

	now := l.now()
	if err := l.rotateLocked(now); err != nil {
		return err
	}

	record := Record{
		EventID:    event.EventID,
		CameraID:   event.CameraID,
		EntryTime:  event.EntryTime,
		ExitTime:   event.ExitTime,
		VideoURL:   event.RemoteURL,
		Status:     string(event.Status),
		Error:      event.ErrorMessage,
		Notified:   event.NotificationStatus == events.NotifyDelivered,
		RecordedAt: now,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return events.Wrap(events.ErrLocalFatal, "eventlog", "record", "marshal record", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return events.Wrap(events.ErrLocalFatal, "eventlog", "record", "append record", err)
	}

	l.seen[event.EventID] = true
	l.logger.Info("audit record written",
		logging.String(logging.FieldEventID, event.EventID),
		logging.String("status", string(event.Status)))
	return nil
}

// Path returns the file a record written at t would land in.
func (l *Log) Path(t time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf(filePattern, t.Format("20060102")))
}

// Close releases the open day file, if any.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.day = ""
	return err
}

// rotateLocked lazily opens the file for the current local day, closing
// the previous day's file at the boundary.
func (l *Log) rotateLocked(now time.Time) error {
	day := now.Format("20060102")
	if l.file != nil && l.day == day {
		return nil
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			l.logger.Warn("closing previous day file failed", logging.Error(err))
		}
		l.file = nil
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return events.Wrap(events.ErrLocalFatal, "eventlog", "rotate", "create log directory", err)
	}
	file, err := os.OpenFile(l.Path(now), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return events.Wrap(events.ErrLocalFatal, "eventlog", "rotate", "open day file", err)
	}
	l.file = file
	l.day = day
	return nil
}
