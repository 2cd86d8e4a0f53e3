package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
	"github.com/teemow/calendar-mcp/internal/resources"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/agent_tools"
	"github.com/teemow/calendar-mcp/internal/tools/gmail_tools"
	"github.com/teemow/calendar-mcp/internal/tools/location_tools"
	"github.com/teemow/calendar-mcp/internal/tools/project_tools"
	"github.com/teemow/calendar-mcp/internal/tools/search_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	httpShutdownTimeout = 30 * time.Second
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		transport      string
		httpAddr       string
		authToken      string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Gmail, location,
weather, web search, project and planning tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp, with /healthz and /readyz

The HTTP transport listens on 127.0.0.1 by default. Binding any other address
requires a bearer token (--auth-token or CALENDAR_MCP_AUTH_TOKEN) that clients
send as "Authorization: Bearer <token>".

Gmail credentials:
  Tools never open a browser. Authorize each account beforehand with
  "calendar-mcp auth login --user <id>". Credentials are read from --token-dir
  and refreshed with the client secret in --credentials-file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsConfig := MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr}
			loadMetricsEnvVars(cmd, &metricsConfig)
			if !cmd.Flags().Changed("auth-token") {
				authToken = os.Getenv("CALENDAR_MCP_AUTH_TOKEN")
			}
			return runServe(transport, httpAddr, authToken, metricsConfig)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&authToken, "auth-token", "", "Bearer token required on /mcp. Can also use CALENDAR_MCP_AUTH_TOKEN env var.")
	addMetricsFlags(cmd, &metricsEnabled, &metricsAddr)

	return cmd
}

func addMetricsFlags(cmd *cobra.Command, enabled *bool, addr *string) {
	cmd.Flags().BoolVar(enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
}

// loadMetricsEnvVars applies METRICS_* variables unless the matching flag was
// set on the command line.
func loadMetricsEnvVars(cmd *cobra.Command, mc *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				mc.Enabled = enabled
			}
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			mc.Addr = addr
		}
	}
}

func runServe(transport, httpAddr, authToken string, metricsConfig MetricsConfig) error {
	switch transport {
	case transportStdio:
	case transportStreamableHTTP:
		if err := server.ValidateListenAddr(httpAddr, authToken != ""); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger().With(logging.Transport(transport))

	provider, err := newInstrumentation(shutdownCtx, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	serverContext, err := newServerContext(shutdownCtx, appConfig, provider, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	switch transport {
	case transportStreamableHTTP:
		// stdio keeps the process quiet apart from the protocol stream
		startMetricsServer(shutdownCtx, metricsConfig, provider, logger)
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, httpAddr, authToken, logger)
	default:
		return runStdioServer(mcpSrv, logger)
	}
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("calendar-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

// startMetricsServer runs the Prometheus endpoint in the background until ctx
// is done. Exporters other than Prometheus leave nothing to serve.
func startMetricsServer(ctx context.Context, mc MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) {
	if !mc.Enabled {
		return
	}
	metricsServer, err := server.NewMetricsServer(mc.Addr, provider, logger)
	if errors.Is(err, server.ErrMetricsUnavailable) {
		logger.Debug("metrics server not started", logging.Err(err))
		return
	}
	if err != nil {
		logger.Warn("metrics server not started", logging.Err(err))
		return
	}
	go func() {
		if err := metricsServer.Run(ctx); err != nil {
			logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
}

func runStdioServer(mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv,
			mcpserver.WithErrorLogger(logging.StdLogger(logger, slog.LevelError)),
		); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Gmail",
			register: func() error {
				return gmail_tools.RegisterGmailTools(mcpSrv, sc)
			},
		},
		{
			name: "Location",
			register: func() error {
				return location_tools.RegisterLocationTools(mcpSrv, sc)
			},
		},
		{
			name: "Search",
			register: func() error {
				return search_tools.RegisterSearchTools(mcpSrv, sc)
			},
		},
		{
			name: "Project",
			register: func() error {
				return project_tools.RegisterProjectTools(mcpSrv, sc)
			},
		},
		{
			name: "Agent",
			register: func() error {
				return agent_tools.RegisterAgentTools(mcpSrv, sc)
			},
		},
		{
			name: "Account Resources",
			register: func() error {
				return resources.RegisterAccountResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

// newStreamableHTTPHandler mounts the MCP endpoint next to the health
// endpoints. Only /mcp sits behind the bearer token.
func newStreamableHTTPHandler(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, authToken string) (http.Handler, *server.HealthChecker) {
	mux := http.NewServeMux()
	mux.Handle("/mcp", server.RequireBearerToken(authToken, mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)))

	health := server.NewHealthChecker(sc)
	health.RegisterHealthEndpoints(mux)
	return mux, health
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, addr, authToken string, logger *slog.Logger) error {
	handler, health := newStreamableHTTPHandler(mcpSrv, sc, authToken)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		logger.Info("starting MCP server", "addr", addr, "endpoint", "/mcp", "auth", authToken != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
