// Package workflow coordinates the event pipeline. Per-camera loops run
// detection, tracking, and recording synchronously; closed recordings enter
// the event store and move through compression and upload stages driven by
// a polling manager. Terminal events produce exactly one audit record and
// at most one notification.
package workflow
