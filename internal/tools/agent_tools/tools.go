// Package agent_tools exposes the planning crew as the
// task_and_schedule_planer MCP tool.
package agent_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/common"
)

// ToolName keeps the historical spelling clients already call.
const ToolName = "task_and_schedule_planer"

// RegisterAgentTools registers task_and_schedule_planer.
func RegisterAgentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	tool := mcp.NewTool(ToolName,
		mcp.WithDescription("Plan and schedule tasks using the calendar crew agent. Use this for ANY task-related request including planning, scheduling, creating, or organizing tasks."),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("The task description or query from the user"),
		),
	)
	s.AddTool(tool, common.Instrumented(ToolName, instrumentation.ProviderAgent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handlePlan(ctx, request, sc)
		}))
	return nil
}

// handlePlan returns delegate failures as handler errors so the caller
// sees a failed call rather than a result.
func handlePlan(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	logger := logging.WithTool(sc.Logger(), ToolName)
	logger.Info("running planner", "topic_len", len(topic))

	result, err := sc.Delegate().Run(ctx, topic)
	if err != nil {
		logger.Error("error executing tool", logging.Err(err))
		return nil, err
	}
	return mcp.NewToolResultText(result), nil
}
