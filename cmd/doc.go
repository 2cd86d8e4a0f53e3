// Package cmd implements the command-line interface for calendar-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server (stdio or streamable HTTP)
//   - api: Start the HTTP API in front of the planning agent delegate
//   - auth login: Authorize a Gmail account in the browser
//   - accounts: List, inspect and forget stored credentials
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
