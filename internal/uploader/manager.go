package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vigil/internal/config"
	"vigil/internal/events"
	"vigil/internal/fileutil"
	"vigil/internal/logging"
)

// Status is the lifecycle position of one upload job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrDuplicateKey rejects a submission whose destination key already has a
// job in flight.
var ErrDuplicateKey = errors.New("upload already in flight for key")

// Job is one file bound for one destination key.
type Job struct {
	EventID string
	Path    string
	Key     string
}

// Result is a job's terminal outcome.
type Result struct {
	Key      string
	URL      string
	Status   Status
	Checksum string
	Bytes    int64
	Err      error
}

// Handle observes one submitted job. Progress is written by exactly one
// worker and may be read by any goroutine.
type Handle struct {
	job      Job
	progress atomic.Int64
	done     chan struct{}

	mu     sync.Mutex
	result Result
}

// Key returns the job's destination key.
func (h *Handle) Key() string { return h.job.Key }

// Progress returns bytes transferred so far.
func (h *Handle) Progress() int64 { return h.progress.Load() }

// Done returns a channel closed when the job reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Await blocks until the job is terminal or the context ends.
func (h *Handle) Await(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.result.Err
}

func (h *Handle) finish(result Result) {
	h.mu.Lock()
	h.result = result
	h.mu.Unlock()
	close(h.done)
}

// Manager runs the bounded upload worker pool. Submissions queue FIFO with
// no priority; workers pull in order.
type Manager struct {
	cfg    *config.Config
	store  ObjectStore
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Handle
	byKey  map[string]*Handle
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds a Manager over the given object store. Call Start
// before submitting.
func NewManager(cfg *config.Config, store ObjectStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "uploader"),
		byKey:  make(map[string]*Handle),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Start launches the worker pool. Workers exit when Stop runs or the
// context is cancelled.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	workers := m.cfg.Storage.UploadConcurrency
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		m.closed = true
		m.cond.Broadcast()
		m.mu.Unlock()
	}()
}

// Submit queues one job. Submitting a key whose prior job succeeded returns
// the finished handle with the cached URL; a key still in flight is
// rejected with ErrDuplicateKey. Failed and cancelled keys may be
// resubmitted.
func (m *Manager) Submit(job Job) (*Handle, error) {
	if job.Key == "" || job.Path == "" {
		return nil, events.Wrap(events.ErrConfiguration, "uploader", "submit", "job needs path and key", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, events.Wrap(events.ErrTransient, "uploader", "submit", "manager stopped", nil)
	}

	if prior, ok := m.byKey[job.Key]; ok {
		select {
		case <-prior.done:
			prior.mu.Lock()
			status := prior.result.Status
			prior.mu.Unlock()
			if status == StatusCompleted {
				return prior, nil
			}
			// Failed or cancelled keys queue again below.
		default:
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, job.Key)
		}
	}

	handle := &Handle{job: job, done: make(chan struct{})}
	m.byKey[job.Key] = handle
	m.queue = append(m.queue, handle)
	m.cond.Signal()
	return handle, nil
}

// SubmitDir queues every video file in dir as an independent job keyed by
// file name. Submission errors for individual files are reported on their
// handles, not returned; duplicate keys are skipped.
func (m *Manager) SubmitDir(dir string) ([]*Handle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, events.Wrap(events.ErrLocalFatal, "uploader", "submit dir", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isVideoFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	handles := make([]*Handle, 0, len(names))
	for _, name := range names {
		handle, err := m.Submit(Job{Path: filepath.Join(dir, name), Key: name})
		if err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				m.logger.Warn("backlog file already queued", logging.String("key", name))
				continue
			}
			return handles, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// Stop discards queued-but-unstarted jobs as cancelled, then waits up to
// grace for in-flight uploads before hard-cancelling them. It returns the
// cancelled jobs so the caller can record them.
func (m *Manager) Stop(grace time.Duration) []Result {
	m.mu.Lock()
	m.closed = true
	cancelled := make([]Result, 0, len(m.queue))
	for _, handle := range m.queue {
		result := Result{
			Key:    handle.job.Key,
			Status: StatusCancelled,
			Err:    events.Wrap(events.ErrTransient, "uploader", "cancel", "discarded at shutdown", nil),
		}
		handle.finish(result)
		cancelled = append(cancelled, result)
		m.logger.Info("queued upload cancelled", logging.String("key", handle.job.Key))
	}
	m.queue = nil
	m.cond.Broadcast()
	m.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(grace):
		m.logger.Warn("grace period elapsed, aborting in-flight uploads")
		if m.cancel != nil {
			m.cancel()
		}
		<-finished
	}
	if m.cancel != nil {
		m.cancel()
	}
	return cancelled
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		handle := m.next()
		if handle == nil {
			return
		}
		m.run(ctx, handle)
	}
}

func (m *Manager) next() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return nil
	}
	handle := m.queue[0]
	m.queue = m.queue[1:]
	return handle
}

func (m *Manager) run(ctx context.Context, handle *Handle) {
	job := handle.job
	result := Result{Key: job.Key, Status: StatusUploading}

	size, err := fileutil.FileSize(job.Path)
	if err != nil {
		result.Status = StatusFailed
		result.Err = events.Wrap(events.ErrLocalFatal, "uploader", "stat", job.Path, err)
		handle.finish(result)
		return
	}
	checksum, err := fileutil.Checksum(job.Path)
	if err != nil {
		result.Status = StatusFailed
		result.Err = events.Wrap(events.ErrLocalFatal, "uploader", "checksum", job.Path, err)
		handle.finish(result)
		return
	}
	result.Checksum = checksum
	result.Bytes = size

	m.logger.Info("upload started",
		logging.String("key", job.Key),
		logging.String(logging.FieldEventID, job.EventID),
		logging.Int64("bytes", size))

	if size > m.cfg.MultipartThresholdBytes() {
		err = m.uploadMultipart(ctx, handle, size)
	} else {
		err = m.uploadWhole(ctx, handle, size)
	}
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		m.logger.Error("upload failed",
			logging.String("key", job.Key),
			logging.Error(err))
		handle.finish(result)
		return
	}

	result.Status = StatusCompleted
	result.URL = m.store.URL(job.Key)
	m.logger.Info("upload completed",
		logging.String("key", job.Key),
		logging.String("url", result.URL))
	handle.finish(result)
}

func (m *Manager) uploadWhole(ctx context.Context, handle *Handle, size int64) error {
	return m.withRetry(ctx, handle.job.Key+" put", func() error {
		file, err := os.Open(handle.job.Path)
		if err != nil {
			return events.Wrap(events.ErrLocalFatal, "uploader", "open", handle.job.Path, err)
		}
		defer file.Close()

		handle.progress.Store(0)
		reader := &progressReader{r: file, counter: &handle.progress}
		return m.store.Put(ctx, handle.job.Key, reader, size)
	})
}

func (m *Manager) uploadMultipart(ctx context.Context, handle *Handle, size int64) error {
	job := handle.job
	file, err := os.Open(job.Path)
	if err != nil {
		return events.Wrap(events.ErrLocalFatal, "uploader", "open", job.Path, err)
	}
	defer file.Close()

	uploadID, err := m.store.CreateMultipart(ctx, job.Key)
	if err != nil {
		return err
	}

	partSize := m.cfg.PartSizeBytes()
	if partSize <= 0 {
		partSize = size
	}
	var completed []CompletedPart
	var number int32 = 1
	for offset := int64(0); offset < size; offset += partSize {
		length := partSize
		if remaining := size - offset; remaining < length {
			length = remaining
		}

		partOffset := offset
		partNumber := number
		var etag string
		err = m.withRetry(ctx, fmt.Sprintf("%s part %d", job.Key, partNumber), func() error {
			section := io.NewSectionReader(file, partOffset, length)
			tag, err := m.store.UploadPart(ctx, job.Key, uploadID, partNumber, section, length)
			if err != nil {
				return err
			}
			etag = tag
			return nil
		})
		if err != nil {
			m.abort(job.Key, uploadID)
			return err
		}
		completed = append(completed, CompletedPart{Number: partNumber, ETag: etag})
		handle.progress.Add(length)
		number++
	}

	if err := m.store.CompleteMultipart(ctx, job.Key, uploadID, completed); err != nil {
		m.abort(job.Key, uploadID)
		return err
	}
	return nil
}

// withRetry runs fn with bounded exponential backoff. Local-fatal and
// configuration errors never retry.
func (m *Manager) withRetry(ctx context.Context, what string, fn func() error) error {
	attempts := m.cfg.Storage.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := m.cfg.RetryBackoff()

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, events.ErrLocalFatal) || errors.Is(err, events.ErrConfiguration) {
			return err
		}
		if attempt == attempts {
			break
		}
		m.logger.Warn("attempt failed, retrying",
			logging.String("operation", what),
			logging.Int("attempt", attempt),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return events.Wrap(events.ErrTransient, "uploader", "retry", what+" cancelled", ctx.Err())
		case <-time.After(backoff << (attempt - 1)):
		}
	}
	return events.Wrap(events.ErrTransient, "uploader", "retry", fmt.Sprintf("%s exhausted %d attempts", what, attempts), err)
}

// abort cleans up partial remote state after permanent failure so no
// orphaned parts accrue storage.
func (m *Manager) abort(key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.store.AbortMultipart(ctx, key, uploadID); err != nil {
		m.logger.Error("multipart abort failed",
			logging.String("key", key),
			logging.Error(err))
	}
}

type progressReader struct {
	r       io.Reader
	counter *atomic.Int64
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.counter.Add(int64(n))
	}
	return n, err
}

func isVideoFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".webm", ".mkv", ".avi", ".mov", ".mjpeg":
		return true
	default:
		return false
	}
}
