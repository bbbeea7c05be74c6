package workflow

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"vigil/internal/detection"
	"vigil/internal/events"
)

var occupiedMarker = []byte("person")

// scriptedSource plays a fixed frame sequence and then ends the stream.
type scriptedSource struct {
	cameraID string
	frames   [][]byte
	index    int
	start    time.Time
}

func newScriptedSource(cameraID string, frames [][]byte) *scriptedSource {
	return &scriptedSource{
		cameraID: cameraID,
		frames:   frames,
		start:    time.Now(),
	}
}

func (s *scriptedSource) Next(ctx context.Context) (detection.Frame, error) {
	if err := ctx.Err(); err != nil {
		return detection.Frame{}, err
	}
	if s.index >= len(s.frames) {
		return detection.Frame{}, io.EOF
	}
	frame := detection.Frame{
		CameraID:  s.cameraID,
		Timestamp: s.start.Add(time.Duration(s.index) * 100 * time.Millisecond),
		Data:      s.frames[s.index],
	}
	s.index++
	return frame, nil
}

func (s *scriptedSource) Close() error { return nil }

// markerDetector reports a person when the frame payload carries the marker.
type markerDetector struct{}

func (markerDetector) Detect(_ context.Context, frame detection.Frame) ([]detection.Detection, error) {
	if !bytes.Contains(frame.Data, occupiedMarker) {
		return nil, nil
	}
	return []detection.Detection{{
		TrackID:    1,
		Box:        detection.BoundingBox{X: 0, Y: 0, W: 100, H: 100},
		Confidence: 0.9,
	}}, nil
}

func occupiedFrames(n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = append([]byte("frame "), occupiedMarker...)
	}
	return frames
}

func emptyFrames(n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = []byte("frame empty")
	}
	return frames
}

func TestCameraLoopProducesCompletedEvent(t *testing.T) {
	f := newFixture(t)
	f.cfg.Detection.ThresholdFrames = 3
	f.cfg.Detection.ExitPatienceSecs = 1
	f.cfg.Compression.Enabled = false

	// Entry confirmation, presence, then enough empty frames to pass the
	// one second exit patience at 100ms per frame.
	var frames [][]byte
	frames = append(frames, occupiedFrames(5)...)
	frames = append(frames, emptyFrames(12)...)

	f.manager.AttachCameras(Camera{
		ID:       "cam1",
		Source:   newScriptedSource("cam1", frames),
		Detector: markerDetector{},
	})
	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.manager.Stop()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		list, err := f.store.List(context.Background(), 10)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) == 1 && list[0].Status == events.StatusCompleted {
			event := list[0]
			if event.CameraID != "cam1" {
				t.Fatalf("camera = %s", event.CameraID)
			}
			if event.ExitTime == nil {
				t.Fatal("exit time not recorded")
			}
			if event.OriginalBytes == 0 {
				t.Fatal("recording is empty")
			}
			if event.RemoteURL == "" {
				t.Fatal("no remote url after upload")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("camera loop never produced a completed event")
}

func TestCameraLoopBelowThresholdRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.cfg.Detection.ThresholdFrames = 5

	frames := append(occupiedFrames(3), emptyFrames(3)...)
	f.manager.AttachCameras(Camera{
		ID:       "cam1",
		Source:   newScriptedSource("cam1", frames),
		Detector: markerDetector{},
	})
	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.manager.Stop()

	// Let the scripted stream run out.
	time.Sleep(300 * time.Millisecond)
	list, err := f.store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no events below threshold, got %d", len(list))
	}
}

func TestShutdownFinalizesOpenSession(t *testing.T) {
	f := newFixture(t)
	f.cfg.Detection.ThresholdFrames = 2
	f.manager.pollInterval = time.Hour // keep the event queued after finalize

	// The stream stays occupied; no exit happens before shutdown.
	source := newScriptedSource("cam1", occupiedFrames(10_000))
	f.manager.AttachCameras(Camera{ID: "cam1", Source: source, Detector: markerDetector{}})
	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Wait for the session to open.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if list, _ := f.store.List(context.Background(), 10); len(list) == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	f.manager.Stop()

	list, err := f.store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("events = %d, want 1", len(list))
	}
	event := list[0]
	// Finalized as an exit at shutdown, then cancelled while queued.
	if event.ExitTime == nil {
		t.Fatal("open session was not finalized as an exit")
	}
	if event.Status != events.StatusCancelled {
		t.Fatalf("status = %s, want cancelled after shutdown", event.Status)
	}
}
