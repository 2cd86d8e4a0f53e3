package common

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultUserID is used when a tool call names no user.
const DefaultUserID = "default"

// UserID returns the "user_id" argument, or DefaultUserID when it is
// missing or blank.
func UserID(request mcp.CallToolRequest) string {
	if id := strings.TrimSpace(request.GetString("user_id", "")); id != "" {
		return id
	}
	return DefaultUserID
}
