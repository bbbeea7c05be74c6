// Package recorder manages per-camera recording sessions. A session opens
// when a camera's tracker confirms an entry, appends encoded frame payloads
// while the subject is present, and closes on exit, producing one local file
// per event. Sessions never overlap per camera and never touch remote
// storage; handoff to compression and upload happens downstream.
package recorder
