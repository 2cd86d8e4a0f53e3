// Package resources provides read-only MCP resources describing the Gmail
// accounts known to the server. They let an assistant see which user_id
// values are connected before calling a Gmail tool.
package resources
