package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/stack21/flowengine/internal/diagram"
	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/pkg/schema"
)

func (s *Server) health(c echo.Context) error {
	body := map[string]any{"status": "ok"}
	if s.deps.Health != nil {
		for k, v := range s.deps.Health() {
			body[k] = v
		}
	}
	return c.JSON(http.StatusOK, body)
}

// GET /api/v1/workflows
func (s *Server) listWorkflows(c echo.Context) error {
	workflows, err := s.deps.Service.ListWorkflows(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflows)
}

// PUT /api/v1/workflows
func (s *Server) putWorkflow(c echo.Context) error {
	var def schema.WorkflowDefinition
	if err := c.Bind(&def); err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid request body").WithCause(err)
	}
	result, err := s.deps.Service.DefineWorkflow(c.Request().Context(), &def)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GET /api/v1/workflows/:id
func (s *Server) getWorkflow(c echo.Context) error {
	wf, err := s.deps.Service.GetWorkflow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wf)
}

// GET /api/v1/workflows/:id/diagram?format=mermaid|ascii|png|svg&runId=
func (s *Server) workflowDiagram(c echo.Context) error {
	ctx := c.Request().Context()
	model, err := s.deps.Service.Diagram(ctx, c.Param("id"), c.QueryParam("runId"))
	if err != nil {
		return err
	}

	switch format := c.QueryParam("format"); format {
	case "", "mermaid":
		return c.String(http.StatusOK, diagram.RenderMermaid(model))
	case "ascii":
		return c.String(http.StatusOK, diagram.RenderASCII(model))
	case diagram.FormatPNG, diagram.FormatSVG:
		img, err := diagram.RenderImage(ctx, model, format)
		if err != nil {
			return err
		}
		contentType := "image/png"
		if format == diagram.FormatSVG {
			contentType = "image/svg+xml"
		}
		return c.Blob(http.StatusOK, contentType, img)
	default:
		return schema.NewErrorf(schema.ErrCodeValidation, "format must be mermaid, ascii, png or svg, got %q", format)
	}
}

// POST /api/v1/workflows/:id/execute runs the workflow and waits for it.
// A failed run is still 200: the failure is in the run record.
func (s *Server) executeWorkflow(c echo.Context) error {
	data, err := readPayload(c)
	if err != nil {
		return err
	}
	run, err := s.deps.Service.ExecuteWorkflow(c.Request().Context(), c.Param("id"), data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

// POST /webhooks/:workflowId
func (s *Server) webhook(c echo.Context) error {
	payload, err := readPayload(c)
	if err != nil {
		return err
	}
	id := c.Param("workflowId")
	if err := s.deps.Service.TriggerWebhook(c.Request().Context(), id, payload); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]any{"accepted": true, "workflowId": id})
}

// GET /api/v1/runs?workflowId=&status=&limit=
func (s *Server) listRuns(c echo.Context) error {
	filter := store.RunFilter{
		WorkflowID: c.QueryParam("workflowId"),
		Status:     schema.RunStatus(c.QueryParam("status")),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return schema.NewErrorf(schema.ErrCodeValidation, "invalid limit %q", raw)
		}
		filter.Limit = n
	}
	runs, err := s.deps.Service.ListRuns(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

// GET /api/v1/runs/:id
func (s *Server) getRun(c echo.Context) error {
	run, err := s.deps.Service.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

// GET /api/v1/runs/:id/events?since=
func (s *Server) runEvents(c echo.Context) error {
	var since int64
	if raw := c.QueryParam("since"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return schema.NewErrorf(schema.ErrCodeValidation, "invalid since %q", raw)
		}
		since = n
	}
	events, err := s.deps.Service.RunEvents(c.Request().Context(), c.Param("id"), since)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// readPayload decodes an optional JSON object body. An empty body is an
// empty payload.
func readPayload(c echo.Context) (map[string]any, error) {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "cannot read request body").WithCause(err)
	}
	payload := map[string]any{}
	if len(raw) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "request body must be a JSON object").WithCause(err)
	}
	return payload, nil
}
