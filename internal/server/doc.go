// Package server holds the runtime shared by the MCP transports.
//
// ServerContext carries the credential manager, the provider adapters and
// the agent delegate that tool handlers use. It never runs an interactive
// OAuth flow: Gmail clients are built from the headless token path only.
//
// HealthChecker serves /healthz and /readyz next to the streamable HTTP
// transport, and MetricsServer exposes Prometheus metrics on a separate
// listener.
package server
