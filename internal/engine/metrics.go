package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/stack21/flowengine/pkg/schema"
)

const meterName = "github.com/stack21/flowengine/internal/engine"

// Metrics holds the interpreter's OpenTelemetry instruments.
type Metrics struct {
	runsStarted  metric.Int64Counter
	runsFinished metric.Int64Counter
	stepsRun     metric.Int64Counter
	runDuration  metric.Float64Histogram
}

// NewMetrics creates the instruments on meter. A nil meter uses the global
// provider, which is a no-op until one is installed.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	var (
		m   Metrics
		err error
	)
	if m.runsStarted, err = meter.Int64Counter("flowengine.runs.started",
		metric.WithDescription("Workflow runs started")); err != nil {
		return nil, err
	}
	if m.runsFinished, err = meter.Int64Counter("flowengine.runs.finished",
		metric.WithDescription("Workflow runs finished, by status")); err != nil {
		return nil, err
	}
	if m.stepsRun, err = meter.Int64Counter("flowengine.steps.executed",
		metric.WithDescription("Steps executed, by type and status")); err != nil {
		return nil, err
	}
	if m.runDuration, err = meter.Float64Histogram("flowengine.run.duration",
		metric.WithDescription("Run wall time"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) runStarted(ctx context.Context, workflowID string) {
	if m == nil {
		return
	}
	m.runsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow.id", workflowID)))
}

func (m *Metrics) runFinished(ctx context.Context, run *schema.WorkflowRun) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("workflow.id", run.WorkflowID),
		attribute.String("run.status", string(run.Status)),
	)
	m.runsFinished.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, float64(run.Duration), attrs)
}

func (m *Metrics) stepFinished(ctx context.Context, step *schema.RunStep) {
	if m == nil {
		return
	}
	m.stepsRun.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step.type", string(step.Type)),
		attribute.String("step.status", string(step.Status)),
	))
}
