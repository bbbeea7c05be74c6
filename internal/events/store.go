package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vigil/internal/config"
)

// Store manages event persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the event database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewEvent inserts a freshly confirmed presence event in the recording state.
func (s *Store) NewEvent(ctx context.Context, eventID, cameraID string, entryTime time.Time, localPath string) (*Event, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, errors.New("event id is required")
	}
	if strings.TrimSpace(cameraID) == "" {
		return nil, errors.New("camera id is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO events (
            event_id, camera_id, entry_time, local_path, status,
            notification_status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		eventID,
		cameraID,
		entryTime.UTC().Format(time.RFC3339Nano),
		localPath,
		StatusRecording,
		NotifyPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an event by row identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM events WHERE id = ?", id)
	return scanEvent(row)
}

// GetByEventID fetches an event by its public identifier.
func (s *Store) GetByEventID(ctx context.Context, eventID string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM events WHERE event_id = ?", eventID)
	return scanEvent(row)
}

// Update persists all mutable fields of the event.
func (s *Store) Update(ctx context.Context, event *Event) error {
	if event == nil || event.ID == 0 {
		return errors.New("update requires a persisted event")
	}
	event.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`UPDATE events SET
            camera_id = ?, entry_time = ?, exit_time = ?, local_path = ?,
            compressed_path = ?, codec = ?, original_bytes = ?, final_bytes = ?,
            remote_key = ?, remote_url = ?, status = ?, error_message = ?,
            notification_status = ?, updated_at = ?
        WHERE id = ?`,
		event.CameraID,
		event.EntryTime.UTC().Format(time.RFC3339Nano),
		nullableTime(event.ExitTime),
		event.LocalPath,
		event.CompressedPath,
		event.Codec,
		event.OriginalBytes,
		event.FinalBytes,
		event.RemoteKey,
		event.RemoteURL,
		event.Status,
		event.ErrorMessage,
		event.NotificationStatus,
		event.UpdatedAt.Format(time.RFC3339Nano),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("update event %d: %w", event.ID, err)
	}
	return nil
}

// NextForStatus returns the oldest event in the given status, or nil when
// none exists. The pipeline consumes events strictly FIFO.
func (s *Store) NextForStatus(ctx context.Context, status Status) (*Event, error) {
	row := s.db.QueryRowContext(
		ctx, selectColumns+" FROM events WHERE status = ? ORDER BY id LIMIT 1", status,
	)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return event, err
}

// List returns the most recent events, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx, selectColumns+" FROM events ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListByStatus returns all events currently in the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Event, error) {
	rows, err := s.db.QueryContext(
		ctx, selectColumns+" FROM events WHERE status = ? ORDER BY id", status,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by status: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// Health returns aggregated lifecycle counts.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM events GROUP BY status")
	if err != nil {
		return HealthSummary{}, fmt.Errorf("event counts: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan count: %w", err)
		}
		summary.Total += count
		switch status {
		case StatusRecording:
			summary.Recording += count
		case StatusRecorded, StatusCompressed:
			summary.Queued += count
		case StatusCompressing, StatusUploading:
			summary.Processing += count
		case StatusCompleted:
			summary.Completed += count
		case StatusFailed:
			summary.Failed += count
		case StatusCancelled:
			summary.Cancelled += count
		}
	}
	return summary, rows.Err()
}

// RecoverStuck rolls interrupted work back to its resumable state after an
// unclean shutdown: compressing reverts to recorded, uploading to compressed.
// Events still marked recording have lost their writer and cannot resume, so
// they fail. Returns the failed events so callers can audit them.
func (s *Store) RecoverStuck(ctx context.Context) ([]*Event, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rollbacks := []struct{ from, to Status }{
		{StatusCompressing, StatusRecorded},
		{StatusUploading, StatusCompressed},
	}
	for _, tr := range rollbacks {
		if _, err := s.db.ExecContext(
			ctx, "UPDATE events SET status = ?, updated_at = ? WHERE status = ?",
			tr.to, now, tr.from,
		); err != nil {
			return nil, fmt.Errorf("roll back %s events: %w", tr.from, err)
		}
	}

	orphaned, err := s.ListByStatus(ctx, StatusRecording)
	if err != nil {
		return nil, err
	}
	for _, event := range orphaned {
		event.SetFailed("recording interrupted by daemon restart")
		if err := s.Update(ctx, event); err != nil {
			return nil, err
		}
	}
	return orphaned, nil
}

// CancelQueued marks all events awaiting a pipeline stage as cancelled and
// returns them so shutdown can write their audit records.
func (s *Store) CancelQueued(ctx context.Context, reason string) ([]*Event, error) {
	if strings.TrimSpace(reason) == "" {
		reason = ShutdownCancelReason
	}
	var cancelled []*Event
	for _, status := range []Status{StatusRecorded, StatusCompressed} {
		queued, err := s.ListByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		for _, event := range queued {
			event.Status = StatusCancelled
			event.ErrorMessage = reason
			if err := s.Update(ctx, event); err != nil {
				return nil, err
			}
			cancelled = append(cancelled, event)
		}
	}
	return cancelled, nil
}

const selectColumns = `SELECT
    id, event_id, camera_id, entry_time, exit_time, local_path,
    compressed_path, codec, original_bytes, final_bytes, remote_key,
    remote_url, status, error_message, notification_status, created_at,
    updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		event      Event
		entryTime  string
		exitTime   sql.NullString
		status     string
		notifState string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(
		&event.ID,
		&event.EventID,
		&event.CameraID,
		&entryTime,
		&exitTime,
		&event.LocalPath,
		&event.CompressedPath,
		&event.Codec,
		&event.OriginalBytes,
		&event.FinalBytes,
		&event.RemoteKey,
		&event.RemoteURL,
		&status,
		&event.ErrorMessage,
		&notifState,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Status = Status(status)
	event.NotificationStatus = NotificationStatus(notifState)
	if event.EntryTime, err = parseTime(entryTime); err != nil {
		return nil, fmt.Errorf("parse entry_time: %w", err)
	}
	if exitTime.Valid && exitTime.String != "" {
		parsed, err := parseTime(exitTime.String)
		if err != nil {
			return nil, fmt.Errorf("parse exit_time: %w", err)
		}
		event.ExitTime = &parsed
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &event, nil
}

func collectEvents(rows *sql.Rows) ([]*Event, error) {
	var out []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
