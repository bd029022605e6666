package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/stack21/flowengine/internal/streaming"
	"github.com/stack21/flowengine/pkg/schema"
)

// RunNotifier pushes finished-run events from the hub to every connected
// MCP client as notifications/message. Best-effort.
type RunNotifier struct {
	server *FlowServer
	hub    streaming.EventHub
}

func NewRunNotifier(s *FlowServer, hub streaming.EventHub) *RunNotifier {
	return &RunNotifier{server: s, hub: hub}
}

// Run forwards events until ctx is done.
func (n *RunNotifier) Run(ctx context.Context) error {
	ch, cancel, err := n.hub.Subscribe(ctx, streaming.EventFilter{
		EventTypes: []string{schema.EventRunCompleted, schema.EventRunFailed},
	})
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			n.server.mcpServer.SendNotificationToAllClients("notifications/message", notificationParams(event))
			n.server.logger.Debug("mcp: run notification sent",
				slog.String("run_id", event.RunID),
				slog.String("type", event.Type),
			)
		}
	}
}

func notificationParams(event schema.RunEvent) map[string]any {
	data := map[string]any{
		"runId":      event.RunID,
		"workflowId": event.WorkflowID,
		"event":      event.Type,
	}
	var payload schema.RunEventPayload
	if len(event.Payload) > 0 && json.Unmarshal(event.Payload, &payload) == nil {
		data["status"] = payload.Status
		data["duration"] = payload.Duration
		if payload.ErrorMessage != "" {
			data["error"] = payload.ErrorMessage
		}
	}

	level := "info"
	if event.Type == schema.EventRunFailed {
		level = "error"
	}
	return map[string]any{
		"level":  level,
		"logger": "flowengine",
		"data":   data,
	}
}
