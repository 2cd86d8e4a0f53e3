package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calendar-mcp/internal/agent"
	"github.com/teemow/calendar-mcp/internal/credentials"
	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/server"
)

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	store := credentials.NewStore(t.TempDir(), credentials.WithoutIndex())
	sc, err := server.NewServerContext(context.Background(), server.Config{
		Manager:  google.NewManager(store, nil),
		Delegate: agent.Unavailable(errors.New("not configured")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestRegisterAllTools(t *testing.T) {
	tools, err := listTools(context.Background(), t.TempDir())
	require.NoError(t, err)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)

	assert.Equal(t, []string{
		"check_gmail",
		"create_project",
		"get_location",
		"get_weather",
		"switch_gmail_account",
		"task_and_schedule_planer",
		"web_search",
	}, names)
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"check_gmail", "Gmail Tools"},
		{"switch_gmail_account", "Gmail Tools"},
		{"get_weather", "Location Tools"},
		{"web_search", "Search Tools"},
		{"create_project", "Project Tools"},
		{"task_and_schedule_planer", "Planning Tools"},
		{"something_else", "Other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getCategoryFromToolName(tt.name))
		})
	}
}

func TestGenerateToolsMarkdown(t *testing.T) {
	tools, err := listTools(context.Background(), t.TempDir())
	require.NoError(t, err)

	md := generateToolsMarkdown(tools)
	assert.Contains(t, md, "# MCP Tools Reference")
	assert.Contains(t, md, "## Gmail Tools")
	assert.Contains(t, md, "### check_gmail")
	assert.Contains(t, md, "| `latitude` | number | yes |")
	assert.Contains(t, md, "| `user_id` | string | no |")
	assert.Contains(t, md, "`accounts://list`")
}

func TestLoadMetricsEnvVars(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want MetricsConfig
	}{
		{
			name: "defaults",
			want: MetricsConfig{Enabled: true, Addr: ":9090"},
		},
		{
			name: "env applies",
			env:  map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": ":9999"},
			want: MetricsConfig{Enabled: false, Addr: ":9999"},
		},
		{
			name: "flag wins",
			args: []string{"--metrics-addr", ":7000"},
			env:  map[string]string{"METRICS_ADDR": ":9999"},
			want: MetricsConfig{Enabled: true, Addr: ":7000"},
		},
		{
			name: "invalid bool ignored",
			env:  map[string]string{"METRICS_ENABLED": "maybe"},
			want: MetricsConfig{Enabled: true, Addr: ":9090"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("METRICS_ENABLED", "")
			t.Setenv("METRICS_ADDR", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var enabled bool
			var addr string
			cmd := &cobra.Command{Use: "test"}
			addMetricsFlags(cmd, &enabled, &addr)
			require.NoError(t, cmd.ParseFlags(tt.args))

			mc := MetricsConfig{Enabled: enabled, Addr: addr}
			loadMetricsEnvVars(cmd, &mc)
			assert.Equal(t, tt.want, mc)
		})
	}
}

func TestStreamableHTTPHandler_Health(t *testing.T) {
	handler, health := newStreamableHTTPHandler(newMCPServer(), newTestServerContext(t), "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	health.SetReady(false)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunServe_UnknownTransport(t *testing.T) {
	err := runServe("carrier-pigeon", ":0", "", MetricsConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport type")
}

func TestRunServe_RefusesPublicBindWithoutToken(t *testing.T) {
	err := runServe(transportStreamableHTTP, ":8080", "", MetricsConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to serve unauthenticated MCP")
}

func TestServeCmd_DefaultsToLoopback(t *testing.T) {
	cmd := newServeCmd()
	assert.Equal(t, "127.0.0.1:8080", cmd.Flags().Lookup("http-addr").DefValue)
}

func TestStreamableHTTPHandler_RequiresToken(t *testing.T) {
	handler, _ := newStreamableHTTPHandler(newMCPServer(), newTestServerContext(t), "s3cret")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health endpoints stay open for orchestrators
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "calendar-mcp version 1.2.3\n", out.String())
}
