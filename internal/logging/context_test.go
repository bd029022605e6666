package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", WorkflowID(ctx))
	assert.Equal(t, "", RunID(ctx))
	assert.Equal(t, "", StepID(ctx))

	ctx = WithRun(ctx, "wf-123", "run_1_abcdef")
	ctx = WithStepID(ctx, "s1")

	assert.Equal(t, "wf-123", WorkflowID(ctx))
	assert.Equal(t, "run_1_abcdef", RunID(ctx))
	assert.Equal(t, "s1", StepID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithWorkflowID(context.Background(), "wf-only")
	LogWith(ctx, logger).Info("partial context")

	output := buf.String()
	assert.Contains(t, output, "workflow_id=wf-only")
	assert.NotContains(t, output, "run_id")
	assert.NotContains(t, output, "step_id")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithStepID(WithRun(context.Background(), "wf-auto", "run-auto"), "step-auto")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"workflow_id":"wf-auto"`)
	assert.Contains(t, output, `"run_id":"run-auto"`)
	assert.Contains(t, output, `"step_id":"step-auto"`)
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "bare log")

	output := buf.String()
	assert.NotContains(t, output, "workflow_id")
	assert.Contains(t, output, "bare log")
}

func TestCorrelationHandlerExplicitAttrWins(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRunID(context.Background(), "from-ctx")
	logger.InfoContext(ctx, "explicit", "run_id", "from-call")

	output := buf.String()
	assert.Contains(t, output, `"run_id":"from-call"`)
	assert.NotContains(t, output, "from-ctx")
}

func TestCorrelationHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCorrelationHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "engine")}))

	logger.InfoContext(WithWorkflowID(context.Background(), "wf-attr"), "with attrs")

	output := buf.String()
	assert.Contains(t, output, `"workflow_id":"wf-attr"`)
	assert.Contains(t, output, `"component":"engine"`)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.WarnContext(WithRunID(context.Background(), "run-9"), "shown")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, `"msg":"shown"`)
	assert.Contains(t, output, `"run_id":"run-9"`)

	buf.Reset()
	NewLogger(&buf, "bogus", "text").Info("plain")
	assert.Contains(t, buf.String(), "level=INFO msg=plain")
}
