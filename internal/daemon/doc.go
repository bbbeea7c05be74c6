// Package daemon owns the long-running process lifecycle: single-instance
// locking, startup recovery of events stranded mid-stage by a crash, and
// starting and stopping the workflow manager.
package daemon
