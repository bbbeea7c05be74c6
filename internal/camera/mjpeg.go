package camera

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"vigil/internal/detection"
	"vigil/internal/events"
)

// maxFrameBytes bounds a single part read so a misbehaving stream cannot
// exhaust memory.
const maxFrameBytes = 32 << 20

// MJPEGSource reads frames from an HTTP multipart/x-mixed-replace stream,
// the format served by most IP cameras and by ffmpeg's mpjpeg muxer. The
// connection is opened lazily on the first Next call and reopened after a
// stream error, so transient camera outages surface as read errors the
// caller can back off on.
type MJPEGSource struct {
	cameraID string
	url      string
	client   *http.Client
	now      func() time.Time

	mu     sync.Mutex
	body   io.ReadCloser
	stream *multipart.Reader
}

// NewMJPEGSource creates a source for one camera stream URL.
func NewMJPEGSource(cameraID, url string) *MJPEGSource {
	return &MJPEGSource{
		cameraID: cameraID,
		url:      url,
		client:   &http.Client{},
		now:      time.Now,
	}
}

// Next returns the next frame from the stream. It returns io.EOF when the
// camera closes the stream cleanly; any other error drops the connection so
// a later call reconnects.
func (s *MJPEGSource) Next(ctx context.Context) (detection.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		if err := s.connectLocked(ctx); err != nil {
			return detection.Frame{}, err
		}
	}

	part, err := s.stream.NextPart()
	if err != nil {
		s.dropLocked()
		if err == io.EOF {
			return detection.Frame{}, io.EOF
		}
		return detection.Frame{}, fmt.Errorf("read stream part from %s: %w", s.url, err)
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxFrameBytes))
	if err != nil {
		s.dropLocked()
		return detection.Frame{}, fmt.Errorf("read frame payload from %s: %w", s.url, err)
	}

	return detection.Frame{CameraID: s.cameraID, Timestamp: s.now(), Data: data}, nil
}

// Close terminates the stream connection. A subsequent Next reconnects.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
	return nil
}

// connectLocked opens the stream. The request is bound to the context of
// the Next call that opened it; the per-camera loop passes the same context
// for the life of the loop.
func (s *MJPEGSource) connectLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return events.Wrap(events.ErrConfiguration, "camera", "connect", fmt.Sprintf("invalid stream url %q", s.url), err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to camera stream %s: %w", s.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("camera stream %s returned status %d", s.url, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || params["boundary"] == "" {
		resp.Body.Close()
		return fmt.Errorf("camera stream %s is not a multipart stream (content type %q)", s.url, resp.Header.Get("Content-Type"))
	}
	if mediaType != "multipart/x-mixed-replace" {
		resp.Body.Close()
		return fmt.Errorf("camera stream %s has unexpected media type %q", s.url, mediaType)
	}

	s.body = resp.Body
	s.stream = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

func (s *MJPEGSource) dropLocked() {
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.stream = nil
}
