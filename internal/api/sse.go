package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stack21/flowengine/internal/streaming"
	"github.com/stack21/flowengine/pkg/schema"
)

// stream serves live run events as Server-Sent Events.
// GET /api/v1/stream?workflowId=&runId=&types=a,b
func (s *Server) stream(c echo.Context) error {
	if s.deps.Hub == nil {
		return schema.NewError(schema.ErrCodeNotFound, "event streaming is not enabled")
	}

	filter := streaming.EventFilter{
		WorkflowID: c.QueryParam("workflowId"),
		RunID:      c.QueryParam("runId"),
	}
	if raw := c.QueryParam("types"); raw != "" {
		filter.EventTypes = strings.Split(raw, ",")
	}

	ctx := c.Request().Context()
	ch, cancel, err := s.deps.Hub.Subscribe(ctx, filter)
	if err != nil {
		return schema.NewError(schema.ErrCodeExecution, "subscribe failed").WithCause(err)
	}
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.deps.Logger.Warn("sse: cannot encode event", slog.String("error", err.Error()))
				continue
			}
			if err := writeEvent(w, event, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// writeEvent writes one SSE frame. Events without a sequence (no event log
// behind the hub) are sent without an id line.
func writeEvent(w io.Writer, event schema.RunEvent, data []byte) error {
	if event.Sequence > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", event.Sequence); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
