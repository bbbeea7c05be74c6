package detection_test

import (
	"testing"
	"time"

	"vigil/internal/detection"
)

var base = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func thresholds() detection.Thresholds {
	return detection.Thresholds{
		Confidence:    0.5,
		MinArea:       2000,
		ConfirmFrames: 5,
		ExitPatience:  5 * time.Second,
	}
}

func person() detection.Detection {
	return detection.Detection{
		TrackID:    1,
		Box:        detection.BoundingBox{X: 10, Y: 10, W: 80, H: 120},
		Confidence: 0.9,
	}
}

// feed advances the tracker one frame per 100ms and returns all transitions.
func feed(t *testing.T, tracker *detection.Tracker, frames []bool) []detection.Transition {
	t.Helper()
	var out []detection.Transition
	for i, occupied := range frames {
		ts := base.Add(time.Duration(i) * 100 * time.Millisecond)
		var dets []detection.Detection
		if occupied {
			dets = []detection.Detection{person()}
		}
		if tr := tracker.Observe(ts, dets); tr != nil {
			out = append(out, *tr)
		}
	}
	return out
}

func TestNoEntryBelowThreshold(t *testing.T) {
	cases := []struct {
		name   string
		frames []bool
	}{
		{"single frame", []bool{true}},
		{"four frames", []bool{true, true, true, true}},
		{"interrupted runs", []bool{true, true, false, true, true, false, true, true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracker := detection.NewTracker(thresholds())
			transitions := feed(t, tracker, tc.frames)
			if len(transitions) != 0 {
				t.Fatalf("expected no transitions, got %v", transitions)
			}
			if tracker.State() == detection.StatePresent {
				t.Fatal("tracker must not reach present below threshold")
			}
		})
	}
}

func TestEntryAfterThreshold(t *testing.T) {
	tracker := detection.NewTracker(thresholds())
	transitions := feed(t, tracker, []bool{true, true, true, true, true})
	if len(transitions) != 1 || transitions[0].Kind != detection.Entered {
		t.Fatalf("expected single entry, got %v", transitions)
	}
	if tracker.State() != detection.StatePresent {
		t.Fatalf("state = %s, want present", tracker.State())
	}
}

func TestInterruptedConfirmationEmitsOneEntry(t *testing.T) {
	// 4 qualifying frames, 1 empty frame, 5 qualifying frames: exactly one
	// entry, confirmed by the second run only.
	tracker := detection.NewTracker(thresholds())
	frames := []bool{true, true, true, true, false, true, true, true, true, true}
	transitions := feed(t, tracker, frames)
	if len(transitions) != 1 {
		t.Fatalf("expected exactly one transition, got %v", transitions)
	}
	if transitions[0].Kind != detection.Entered {
		t.Fatalf("expected entry, got %v", transitions[0].Kind)
	}
	wantTime := base.Add(9 * 100 * time.Millisecond)
	if !transitions[0].Timestamp.Equal(wantTime) {
		t.Fatalf("entry confirmed at %v, want %v", transitions[0].Timestamp, wantTime)
	}
}

func TestBriefOcclusionDoesNotExit(t *testing.T) {
	tracker := detection.NewTracker(thresholds())
	feed(t, tracker, []bool{true, true, true, true, true})

	// 2 seconds of empty frames, below the 5 second patience, then
	// reappearance. No exit may fire.
	ts := base.Add(time.Second)
	for i := 0; i < 20; i++ {
		if tr := tracker.Observe(ts.Add(time.Duration(i)*100*time.Millisecond), nil); tr != nil {
			t.Fatalf("unexpected transition during occlusion: %v", tr)
		}
	}
	if tracker.State() != detection.StateVacating {
		t.Fatalf("state = %s, want vacating", tracker.State())
	}

	if tr := tracker.Observe(ts.Add(3*time.Second), []detection.Detection{person()}); tr != nil {
		t.Fatalf("reappearance must not emit a transition, got %v", tr)
	}
	if tracker.State() != detection.StatePresent {
		t.Fatalf("state = %s, want present after reappearance", tracker.State())
	}
}

func TestExitAfterPatience(t *testing.T) {
	tracker := detection.NewTracker(thresholds())
	feed(t, tracker, []bool{true, true, true, true, true})

	ts := base.Add(time.Second)
	if tr := tracker.Observe(ts, nil); tr != nil {
		t.Fatalf("vacating must not emit immediately: %v", tr)
	}
	tr := tracker.Observe(ts.Add(5*time.Second), nil)
	if tr == nil || tr.Kind != detection.Exited {
		t.Fatalf("expected exit after patience, got %v", tr)
	}
	if tracker.State() != detection.StateAbsent {
		t.Fatalf("state = %s, want absent", tracker.State())
	}

	// A fresh entry afterwards requires full confirmation again.
	transitions := feed(t, tracker, []bool{true, true, true})
	if len(transitions) != 0 {
		t.Fatalf("expected no transitions after partial re-entry, got %v", transitions)
	}
}

func TestMalformedDetectionsDropped(t *testing.T) {
	tracker := detection.NewTracker(thresholds())
	malformed := []detection.Detection{
		{TrackID: 1, Box: detection.BoundingBox{W: -10, H: 50}, Confidence: 0.9},
		{TrackID: 2, Box: detection.BoundingBox{W: 100, H: 100}, Confidence: 1.5},
		{TrackID: 3, Box: detection.BoundingBox{W: 100, H: 100}, Confidence: -0.1},
		{TrackID: 4, Box: detection.BoundingBox{W: 0, H: 0}, Confidence: 0.9},
	}
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * 100 * time.Millisecond)
		if tr := tracker.Observe(ts, malformed); tr != nil {
			t.Fatalf("malformed detections produced transition %v", tr)
		}
	}
	if tracker.State() != detection.StateAbsent {
		t.Fatalf("state = %s, want absent", tracker.State())
	}
}

func TestQualificationThresholds(t *testing.T) {
	cases := []struct {
		name     string
		det      detection.Detection
		occupies bool
	}{
		{"qualifying", person(), true},
		{"small area", detection.Detection{Box: detection.BoundingBox{W: 10, H: 10}, Confidence: 0.9}, false},
		{"low confidence", detection.Detection{Box: detection.BoundingBox{W: 80, H: 120}, Confidence: 0.2}, false},
		{"boundary area", detection.Detection{Box: detection.BoundingBox{W: 40, H: 50}, Confidence: 0.5}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracker := detection.NewTracker(detection.Thresholds{
				Confidence:    0.5,
				MinArea:       2000,
				ConfirmFrames: 1,
				ExitPatience:  time.Second,
			})
			tr := tracker.Observe(base, []detection.Detection{tc.det})
			got := tr != nil
			if got != tc.occupies {
				t.Fatalf("occupancy = %v, want %v", got, tc.occupies)
			}
		})
	}
}

func TestSingleFrameThresholdEntersImmediately(t *testing.T) {
	tracker := detection.NewTracker(detection.Thresholds{
		Confidence:    0.5,
		MinArea:       100,
		ConfirmFrames: 1,
		ExitPatience:  time.Second,
	})
	tr := tracker.Observe(base, []detection.Detection{person()})
	if tr == nil || tr.Kind != detection.Entered {
		t.Fatalf("expected immediate entry with threshold 1, got %v", tr)
	}
}
