package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlowServer(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		toolName    string
		description string
	}{
		{"workflow.list", "List workflow definitions"},
		{"workflow.define", "Create or replace a workflow definition"},
		{"workflow.execute", "Run a workflow and return the finished run"},
		{"run.get", "Get a workflow run with its step records"},
		{"run.list", "List workflow runs, newest first"},
		{"run.events", "List the recorded lifecycle events of a run"},
	}

	s := NewFlowServer(FlowServerDeps{})
	require.Len(t, s.mcpServer.ListTools(), len(tests))

	for _, tc := range tests {
		t.Run(tc.toolName, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}
