package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stack21/flowengine/internal/service"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// FlowServerDeps holds the dependencies for creating a FlowServer.
type FlowServerDeps struct {
	Service *service.WorkflowService
	Logger  *slog.Logger
}

// FlowServer wraps an MCP server with the workflow tool handlers.
type FlowServer struct {
	svc       *service.WorkflowService
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewFlowServer creates a FlowServer with all tools registered.
func NewFlowServer(deps FlowServerDeps) *FlowServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &FlowServer{
		svc:    deps.Service,
		logger: logger,
	}

	mcpSrv := server.NewMCPServer(
		"flowengine",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("flowengine runs linear workflows of typed steps. Use workflow.list to see definitions, workflow.define to add or replace one, workflow.execute to run it and wait for the result, run.get, run.list or run.events to inspect past runs, and workflow.diagram to draw a workflow."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *FlowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: listTool(), Handler: s.handleList},
		{Tool: defineTool(), Handler: s.handleDefine},
		{Tool: executeTool(), Handler: s.handleExecute},
		{Tool: runGetTool(), Handler: s.handleRunGet},
		{Tool: runListTool(), Handler: s.handleRunList},
		{Tool: runEventsTool(), Handler: s.handleRunEvents},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func listTool() mcp.Tool {
	return mcp.NewTool("workflow.list",
		mcp.WithDescription("List workflow definitions"),
	)
}

func defineTool() mcp.Tool {
	return mcp.NewTool("workflow.define",
		mcp.WithDescription("Create or replace a workflow definition"),
		mcp.WithObject("definition", mcp.Required(),
			mcp.Description("Workflow definition: id (optional), name, trigger {type, config}, steps [{id, type, name, config, next}]"),
		),
	)
}

func executeTool() mcp.Tool {
	return mcp.NewTool("workflow.execute",
		mcp.WithDescription("Run a workflow and return the finished run"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("ID of the workflow to run")),
		mcp.WithObject("data", mcp.Description("Trigger data passed to the first step")),
	)
}

func runGetTool() mcp.Tool {
	return mcp.NewTool("run.get",
		mcp.WithDescription("Get a workflow run with its step records"),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the run")),
	)
}

func runListTool() mcp.Tool {
	return mcp.NewTool("run.list",
		mcp.WithDescription("List workflow runs, newest first"),
		mcp.WithObject("filter", mcp.Description("Filter criteria (workflow_id, status, limit)")),
	)
}

func runEventsTool() mcp.Tool {
	return mcp.NewTool("run.events",
		mcp.WithDescription("List the recorded lifecycle events of a run"),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the run")),
		mcp.WithNumber("since", mcp.Description("Only events with a greater sequence number")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("workflow.diagram",
		mcp.WithDescription("Draw a workflow's step chain. Returns ASCII art, Mermaid flowchart syntax, or a PNG image"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("ID of the workflow to draw")),
		mcp.WithString("run_id", mcp.Description("Overlay the step states recorded by this run")),
		mcp.WithString("format",
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format (default mermaid)"),
		),
	)
}
