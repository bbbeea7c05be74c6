// Package detection converts noisy per-frame object detections into a
// debounced binary occupancy signal.
//
// The Tracker holds one explicit state machine per camera: Absent,
// Confirming, Present, Vacating. Entry requires a configurable number of
// consecutive qualifying frames; exit requires a patience window with no
// qualifying detections, so single-frame false positives and brief
// occlusions never produce transitions. The external detector and camera
// stream are consumed through the Detector and Source interfaces.
package detection
