package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/server"
)

// Handler is the mcp-go tool handler signature.
type Handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Instrumented wraps handler with a tool span, invocation metrics and an
// audit record. provider names the upstream the tool talks to and may be
// empty for tools that make no outbound call.
//
// Usage:
//
//	s.AddTool(tool, common.Instrumented("check_gmail", instrumentation.ProviderGmail, sc, handler))
func Instrumented(toolName, provider string, sc *server.ServerContext, handler Handler) Handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)

		invocation := instrumentation.NewToolInvocation(toolName).
			WithUser(UserID(request)).
			WithSpanContext(ctx)
		if provider != "" {
			invocation.WithProvider(provider)
		}

		result, err := handler(ctx, request)

		outcome := err
		if outcome == nil && result != nil && result.IsError {
			outcome = errors.New(resultText(result))
		}
		instrumentation.EndSpan(span, outcome)
		invocation.Complete(outcome)

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), time.Since(start))
		sc.Audit().LogToolInvocation(invocation)

		if err != nil {
			sc.Logger().Warn("tool failed", "tool", toolName, "error", err)
		}
		return result, err
	}
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return "tool returned an error result"
}
