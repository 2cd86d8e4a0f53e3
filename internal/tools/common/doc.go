// Package common holds helpers shared by the MCP tool packages: argument
// helpers, result builders and the instrumentation wrapper.
package common
