// Package search_tools exposes web search as the web_search MCP tool.
package search_tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
	"github.com/teemow/calendar-mcp/internal/search"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/common"
)

// RegisterSearchTools registers web_search.
func RegisterSearchTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	tool := mcp.NewTool("web_search",
		mcp.WithDescription("Search the web and return the top results as a numbered list with title, snippet and URL."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
	)
	s.AddTool(tool, common.Instrumented("web_search", instrumentation.ProviderSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleWebSearch(ctx, request, sc)
		}))
	return nil
}

// handleWebSearch answers in plain text, errors included.
func handleWebSearch(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")

	results, err := sc.Search().Search(ctx, query)
	if err != nil {
		logging.WithTool(sc.Logger(), "web_search").Warn("search failed", logging.Err(err))
		res := mcp.NewToolResultText("Search failed: " + err.Error())
		res.IsError = true
		return res, nil
	}
	return mcp.NewToolResultText(search.Summarize(strings.TrimSpace(query), results)), nil
}
