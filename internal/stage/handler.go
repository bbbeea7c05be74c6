package stage

import (
	"context"

	"vigil/internal/events"
)

// Handler describes the contract the workflow manager needs from each
// pipeline stage. Prepare claims the event, Execute performs the work and
// mutates the event in place, and HealthCheck reports readiness for the
// daemon's health summary.
type Handler interface {
	Prepare(context.Context, *events.Event) error
	Execute(context.Context, *events.Event) error
	HealthCheck(context.Context) Health
}

// Health is one stage's readiness as surfaced in the daemon status output.
// Detail is only set when the stage is not ready.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a ready stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage that cannot process events right now.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
