package steps

import (
	"context"
	"log/slog"

	"github.com/stack21/flowengine/internal/logging"
	"github.com/stack21/flowengine/pkg/schema"
)

// LogHandler implements the log step: write config.message and the input at
// config.level (default info), then pass the input through.
type LogHandler struct {
	logger *slog.Logger
}

func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Type() schema.StepType { return schema.StepTypeLog }

func (h *LogHandler) Description() string {
	return "Log a message with the current data and pass the data through."
}

func (h *LogHandler) Validate(config map[string]any) error {
	if _, ok := config["message"]; ok {
		if _, isString := config["message"].(string); !isString {
			return schema.NewError(schema.ErrCodeValidation, "log: 'message' must be a string")
		}
	}
	return nil
}

func (h *LogHandler) Execute(ctx context.Context, in Input) (any, error) {
	cfg := in.Config()
	message := stringParam(cfg, "message", "")

	attrs := []slog.Attr{
		slog.String("workflow_id", in.WorkflowID),
		slog.String("run_id", in.RunID),
		slog.Any("data", in.Data),
	}
	if in.Step != nil {
		attrs = append(attrs, slog.String("step_id", in.Step.ID))
	}

	h.logger.LogAttrs(ctx, logging.ParseLevel(stringParam(cfg, "level", "info")), message, attrs...)
	return in.Data, nil
}
