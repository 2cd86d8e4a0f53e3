package common

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// JSONResult encodes v as the text content of a tool result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ErrorPayload returns {"error": msg} as text content and marks the result
// as an error so instrumentation counts it as a failure.
func ErrorPayload(msg string) *mcp.CallToolResult {
	data, _ := json.Marshal(map[string]string{"error": msg})
	res := mcp.NewToolResultText(string(data))
	res.IsError = true
	return res
}
