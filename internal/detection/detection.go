package detection

import (
	"context"
	"time"
)

// BoundingBox is an axis-aligned box in pixel coordinates.
type BoundingBox struct {
	X int
	Y int
	W int
	H int
}

// Area returns the box area in square pixels.
func (b BoundingBox) Area() int {
	return b.W * b.H
}

// Detection is a single tracked object reported by the external detector for
// one frame. Detections are ephemeral; nothing retains them across frames.
type Detection struct {
	TrackID    int
	Box        BoundingBox
	Confidence float64
}

// valid reports whether the detection is well formed. Malformed detections
// (non-positive area, confidence outside [0,1]) are dropped silently before
// qualification; they indicate detector noise, not a tracker fault.
func (d Detection) valid() bool {
	return d.Box.W > 0 && d.Box.H > 0 && d.Confidence >= 0 && d.Confidence <= 1
}

// Frame is a timestamped raw frame from a camera stream. Data holds the
// encoded frame payload as delivered by the source (e.g. one JPEG of an
// MJPEG stream); this package never decodes it.
type Frame struct {
	CameraID  string
	Timestamp time.Time
	Data      []byte
}

// Source delivers timestamped frames from a single camera. Next returns
// io.EOF at end of stream; any other error is a read error and is reported
// distinctly by the caller.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Detector produces per-frame detections. Implementations wrap the external
// object-detection model; ordering across track IDs is not guaranteed.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}
