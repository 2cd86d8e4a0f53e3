// Package project_tools exposes project-creation intents.
//
// create_project never creates anything itself. It returns a
// create_project_intent object that the calling client applies.
package project_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/intent"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/common"
)

// RegisterProjectTools registers create_project.
func RegisterProjectTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	tool := mcp.NewTool("create_project",
		mcp.WithDescription("Create a new project. Returns a create_project_intent that the client applies; nothing is created on the server."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("description",
			mcp.Description("Short project description"),
		),
		mcp.WithString("color_hex",
			mcp.Description("Project color as #RRGGBB"),
			mcp.DefaultString(intent.DefaultColorHex),
		),
		mcp.WithString("icon",
			mcp.Description("Icon name"),
			mcp.DefaultString(intent.DefaultIcon),
		),
	)
	s.AddTool(tool, common.Instrumented("create_project", "", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateProject(ctx, request, sc)
		}))
	return nil
}

func handleCreateProject(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	in, err := intent.NewCreateProject(
		request.GetString("name", ""),
		request.GetString("description", ""),
		request.GetString("color_hex", intent.DefaultColorHex),
		request.GetString("icon", intent.DefaultIcon),
		sc.Now(),
	)
	if err != nil {
		return common.ErrorPayload(err.Error()), nil
	}
	return common.JSONResult(in)
}
