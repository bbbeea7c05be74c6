package workflow

import (
	"context"

	"vigil/internal/events"
	"vigil/internal/stage"
)

// HealthReport aggregates stage readiness with event store counts.
type HealthReport struct {
	Stages []stage.Health
	Store  events.HealthSummary
}

// Ready reports whether every stage passed its health check.
func (h HealthReport) Ready() bool {
	for _, s := range h.Stages {
		if !s.Ready {
			return false
		}
	}
	return true
}

// Health runs each stage's health check and snapshots the store.
func (m *Manager) Health(ctx context.Context) (HealthReport, error) {
	report := HealthReport{}
	for _, st := range m.stages {
		report.Stages = append(report.Stages, st.handler.HealthCheck(ctx))
	}
	summary, err := m.store.Health(ctx)
	if err != nil {
		return report, err
	}
	report.Store = summary
	return report, nil
}
