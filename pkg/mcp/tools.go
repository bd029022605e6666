package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stack21/flowengine/internal/diagram"
	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/pkg/schema"
)

// workflowSummary is the workflow.list row.
type workflowSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TriggerType string `json:"triggerType"`
	Steps       int    `json:"steps"`
}

func (s *FlowServer) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflows, err := s.svc.ListWorkflows(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	out := make([]workflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, workflowSummary{
			ID:          wf.ID,
			Name:        wf.Name,
			Description: wf.Description,
			TriggerType: wf.Trigger.Type,
			Steps:       len(wf.Steps),
		})
	}
	return marshalResult(map[string]any{"workflows": out})
}

func (s *FlowServer) handleDefine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defRaw := mcp.ParseStringMap(req, "definition", nil)
	if defRaw == nil {
		return mcp.NewToolResultError("definition is required"), nil
	}

	// Round-trip through JSON to get a typed definition.
	defBytes, err := json.Marshal(defRaw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}
	var def schema.WorkflowDefinition
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}

	result, err := s.svc.DefineWorkflow(ctx, &def)
	if err != nil {
		return errorResult("define failed", err), nil
	}
	return marshalResult(result)
}

// handleExecute runs synchronously. A failed run is a successful tool call
// whose result carries status "failed".
func (s *FlowServer) handleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	data := mcp.ParseStringMap(req, "data", nil)

	run, err := s.svc.ExecuteWorkflow(ctx, workflowID, data)
	if err != nil {
		return errorResult("execute failed", err), nil
	}
	return marshalResult(run)
}

func (s *FlowServer) handleRunGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id is required"), nil
	}
	run, err := s.svc.GetRun(ctx, runID)
	if err != nil {
		return errorResult("run lookup failed", err), nil
	}
	return marshalResult(run)
}

func (s *FlowServer) handleRunList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := mcp.ParseStringMap(req, "filter", nil)

	rf := store.RunFilter{
		Limit: extractInt(filter, "limit", 50),
	}
	if id, ok := filter["workflow_id"].(string); ok {
		rf.WorkflowID = id
	}
	if status, ok := filter["status"].(string); ok {
		rf.Status = schema.RunStatus(status)
	}

	runs, err := s.svc.ListRuns(ctx, rf)
	if err != nil {
		return errorResult("query failed", err), nil
	}
	return marshalResult(map[string]any{"runs": runs})
}

func (s *FlowServer) handleRunEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id is required"), nil
	}
	since := int64(req.GetFloat("since", 0))

	events, err := s.svc.RunEvents(ctx, runID, since)
	if err != nil {
		return errorResult("query failed", err), nil
	}
	return marshalResult(map[string]any{"events": events})
}

// --- Internal helpers ---

// errorResult renders err as a tool error, keeping the error code when
// there is one.
// handleDiagram renders a workflow's step chain, optionally with a run's
// step states laid over it.
func (s *FlowServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	format := req.GetString("format", "mermaid")

	model, err := s.svc.Diagram(ctx, workflowID, req.GetString("run_id", ""))
	if err != nil {
		return errorResult("diagram failed", err), nil
	}

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	case "image":
		png, err := diagram.RenderImage(ctx, model, diagram.FormatPNG)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", err)), nil
		}
		return mcp.NewToolResultImage("workflow diagram", base64.StdEncoding.EncodeToString(png), "image/png"), nil
	default:
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}
}

func errorResult(prefix string, err error) *mcp.CallToolResult {
	if se, ok := err.(*schema.Error); ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s: [%s] %s", prefix, se.Code, se.Message))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
