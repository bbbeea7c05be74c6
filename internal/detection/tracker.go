package detection

import (
	"fmt"
	"time"

	"vigil/internal/config"
)

// State is the explicit occupancy state of a monitored camera.
type State int

const (
	StateAbsent State = iota
	StateConfirming
	StatePresent
	StateVacating
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateConfirming:
		return "confirming"
	case StatePresent:
		return "present"
	case StateVacating:
		return "vacating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransitionKind enumerates the two observable occupancy transitions.
type TransitionKind int

const (
	Entered TransitionKind = iota
	Exited
)

// String returns the lowercase transition name.
func (k TransitionKind) String() string {
	if k == Entered {
		return "entered"
	}
	return "exited"
}

// Transition is emitted when the state machine confirms an entry or exit.
type Transition struct {
	Kind      TransitionKind
	Timestamp time.Time
}

// Thresholds holds the hysteresis parameters for one tracker.
type Thresholds struct {
	// Confidence is the minimum detector confidence for a detection to
	// count toward presence.
	Confidence float64
	// MinArea is the minimum bounding-box area in square pixels.
	MinArea int
	// ConfirmFrames is the number of consecutive qualifying frames required
	// before an entry is confirmed.
	ConfirmFrames int
	// ExitPatience is how long the camera must stay empty before an exit is
	// confirmed.
	ExitPatience time.Duration
}

// ThresholdsFromConfig extracts tracker thresholds from the application config.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		Confidence:    cfg.Detection.Confidence,
		MinArea:       cfg.Detection.MinPersonArea,
		ConfirmFrames: cfg.Detection.ThresholdFrames,
		ExitPatience:  cfg.ExitPatience(),
	}
}

// Tracker debounces per-frame detections into entry/exit transitions for a
// single camera. It is driven synchronously from the camera loop and is not
// safe for concurrent use.
type Tracker struct {
	thresholds Thresholds

	state       State
	consecutive int
	lastSeen    time.Time
}

// NewTracker constructs a tracker starting in the absent state.
func NewTracker(thresholds Thresholds) *Tracker {
	if thresholds.ConfirmFrames <= 0 {
		thresholds.ConfirmFrames = 1
	}
	return &Tracker{thresholds: thresholds}
}

// State returns the current occupancy state.
func (t *Tracker) State() State {
	return t.state
}

// Observe feeds one frame's detections through the state machine and returns
// the confirmed transition, if any. Transitions never skip intermediate
// states: Absent -> Confirming -> Present -> Vacating -> Absent.
func (t *Tracker) Observe(timestamp time.Time, detections []Detection) *Transition {
	occupied := t.occupied(detections)

	switch t.state {
	case StateAbsent:
		if occupied {
			t.state = StateConfirming
			t.consecutive = 1
			return t.maybeConfirmEntry(timestamp)
		}

	case StateConfirming:
		if occupied {
			t.consecutive++
			return t.maybeConfirmEntry(timestamp)
		}
		// A single empty frame resets the entry evidence entirely.
		t.consecutive = 0
		t.state = StateAbsent

	case StatePresent:
		if !occupied {
			t.state = StateVacating
			t.lastSeen = timestamp
		}

	case StateVacating:
		if occupied {
			// Reappearance within the patience window cancels the exit.
			t.state = StatePresent
			t.lastSeen = time.Time{}
			return nil
		}
		if timestamp.Sub(t.lastSeen) >= t.thresholds.ExitPatience {
			t.state = StateAbsent
			t.consecutive = 0
			t.lastSeen = time.Time{}
			return &Transition{Kind: Exited, Timestamp: timestamp}
		}
	}
	return nil
}

func (t *Tracker) maybeConfirmEntry(timestamp time.Time) *Transition {
	if t.consecutive < t.thresholds.ConfirmFrames {
		return nil
	}
	t.state = StatePresent
	return &Transition{Kind: Entered, Timestamp: timestamp}
}

// occupied reports whether any qualifying detection is present in the frame.
func (t *Tracker) occupied(detections []Detection) bool {
	for _, d := range detections {
		if !d.valid() {
			continue
		}
		if d.Box.Area() >= t.thresholds.MinArea && d.Confidence >= t.thresholds.Confidence {
			return true
		}
	}
	return false
}
