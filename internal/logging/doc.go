// Package logging provides structured logging utilities for calendar-mcp.
//
// All logging goes through log/slog. The helpers here keep attribute names
// consistent and make sure user identifiers and tokens never reach the logs
// in clear text.
//
// # Usage Patterns
//
//	logger := logging.New(os.Stderr, slog.LevelInfo, logging.FormatText)
//	logger = logging.WithTool(logger, "check_gmail")
//	logger.Info("inbox checked", logging.UserHash(userID), logging.Status("success"))
//
// # Stdio transport
//
// When serving MCP over stdio, stdout carries protocol frames. Loggers must be
// created on os.Stderr and child process output is routed through a LineWriter.
package logging
