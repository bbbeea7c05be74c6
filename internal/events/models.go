package events

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a detection event.
type Status string

const (
	// StatusRecording covers the interval between confirmed entry and
	// confirmed exit while frames are being written to disk.
	StatusRecording Status = "recording"
	// StatusRecorded marks a closed recording awaiting compression.
	StatusRecorded    Status = "recorded"
	StatusCompressing Status = "compressing"
	// StatusCompressed marks a file ready for upload (possibly the original
	// when every codec candidate failed).
	StatusCompressed Status = "compressed"
	StatusUploading  Status = "uploading"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// ShutdownCancelReason is set on queued events discarded during shutdown.
const ShutdownCancelReason = "daemon stopped before processing"

var allStatuses = []Status{
	StatusRecording,
	StatusRecorded,
	StatusCompressing,
	StatusCompressed,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusCompressing: {},
	StatusUploading:   {},
}

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// NotificationStatus records the outcome of the best-effort alert send.
type NotificationStatus string

const (
	NotifyPending   NotificationStatus = "pending"
	NotifyDelivered NotificationStatus = "delivered"
	NotifyFailed    NotificationStatus = "failed"
	NotifySkipped   NotificationStatus = "skipped"
)

// Event represents a detection event persisted in SQLite. One row exists per
// confirmed presence interval, owned by the workflow manager for its
// lifetime.
type Event struct {
	ID                 int64
	EventID            string
	CameraID           string
	EntryTime          time.Time
	ExitTime           *time.Time
	LocalPath          string
	CompressedPath     string
	Codec              string
	OriginalBytes      int64
	FinalBytes         int64
	RemoteKey          string
	RemoteURL          string
	Status             Status
	ErrorMessage       string
	NotificationStatus NotificationStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HealthSummary describes aggregated event counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Recording  int
	Queued     int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// IsProcessing reports whether the status reflects an in-flight pipeline stage.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsTerminal reports whether the event admits no further transitions.
func (e *Event) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// UploadPath returns the file the uploader should send: the compressed
// artifact when one exists, otherwise the raw recording.
func (e *Event) UploadPath() string {
	if strings.TrimSpace(e.CompressedPath) != "" {
		return e.CompressedPath
	}
	return e.LocalPath
}

// Duration returns the presence interval length, or zero while still open.
func (e *Event) Duration() time.Duration {
	if e.ExitTime == nil {
		return 0
	}
	return e.ExitTime.Sub(e.EntryTime)
}

// SetFailed marks the event as failed with the given error message.
func (e *Event) SetFailed(message string) {
	e.Status = StatusFailed
	e.ErrorMessage = message
}
