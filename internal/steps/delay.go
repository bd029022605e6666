package steps

import (
	"context"
	"time"

	"github.com/stack21/flowengine/pkg/schema"
)

const defaultDelay = time.Second

// DelayHandler implements the delay step: wait config.duration
// milliseconds (default 1000), then pass the input through. The wait ends
// early with an error if ctx is cancelled.
type DelayHandler struct{}

func NewDelayHandler() *DelayHandler { return &DelayHandler{} }

func (h *DelayHandler) Type() schema.StepType { return schema.StepTypeDelay }

func (h *DelayHandler) Description() string {
	return "Wait for config.duration milliseconds and pass the data through."
}

func (h *DelayHandler) Validate(config map[string]any) error {
	if _, ok := durationParam(config, "duration", defaultDelay); !ok {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"delay: 'duration' must be milliseconds or a duration string, got %v", config["duration"])
	}
	return nil
}

func (h *DelayHandler) Execute(ctx context.Context, in Input) (any, error) {
	d, ok := durationParam(in.Config(), "duration", defaultDelay)
	if !ok {
		d = defaultDelay
	}
	if d <= 0 {
		return in.Data, nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return in.Data, nil
	case <-ctx.Done():
		return nil, schema.NewErrorf(schema.ErrCodeCancelled, "delay interrupted: %v", ctx.Err()).
			WithCause(ctx.Err())
	}
}
