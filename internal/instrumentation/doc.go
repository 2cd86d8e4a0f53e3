// Package instrumentation wires OpenTelemetry metrics and tracing for calendar-mcp.
//
// Metrics:
//   - http_requests_total, http_request_duration_seconds: REST and streamable-HTTP requests
//   - provider_calls_total, provider_call_duration_seconds: outbound calls by provider and operation
//   - oauth_token_refresh_total: token refresh attempts by result
//   - oauth_auth_required_total: headless requests that need an interactive login, by reason
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: MCP tool calls by tool and status
//
// Prometheus is the default exporter and is served by the metrics server.
// OTLP and stdout exporters are available for metrics and traces; the stdout
// exporters write to stderr so they never corrupt the MCP stdio stream.
//
// Environment:
//   - INSTRUMENTATION_ENABLED (default true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout
//   - TRACING_EXPORTER: otlp, stdout, none
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default 0.1)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
package instrumentation
