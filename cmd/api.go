package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calendar-mcp/internal/api"
	"github.com/teemow/calendar-mcp/internal/logging"
)

func newAPICmd() *cobra.Command {
	var (
		host           string
		port           int
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Start the HTTP API for the planning agent",
		Long: `Start the HTTP API that forwards planning requests to the agent delegate.

Endpoints:
  GET  /health       liveness check
  POST /run          {"input_task": "..."} returns the plan
  POST /mcp/invoke   MCP-style envelope, the input is read from
                     inputs.input, topic, input_task, task or text

The delegate is either an HTTP endpoint (AGENT_MODE=http, AGENT_URL) or a
local command (AGENT_MODE=command, AGENT_COMMAND).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				appConfig.API.Host = host
			}
			if cmd.Flags().Changed("port") {
				appConfig.API.Port = port
			}
			metricsConfig := MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr}
			loadMetricsEnvVars(cmd, &metricsConfig)
			return runAPI(metricsConfig)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (can also be set via API_HOST, default 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (can also be set via API_PORT, default 8000)")
	addMetricsFlags(cmd, &metricsEnabled, &metricsAddr)

	return cmd
}

func runAPI(metricsConfig MetricsConfig) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger().With(logging.Transport("http"))

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

	delegate, err := newDelegate(appConfig, provider.Metrics(), logger)
	if err != nil {
		return fmt.Errorf("failed to create agent delegate: %w", err)
	}

	startMetricsServer(shutdownCtx, metricsConfig, provider, logger)

	apiServer := api.NewServer(delegate,
		api.WithMetrics(provider.Metrics()),
		api.WithLogger(logger),
		api.WithDelegateTimeout(appConfig.Agent.Timeout),
	)

	addr := appConfig.API.Addr()
	logger.Info("starting API server", "addr", addr, "agent_mode", appConfig.Agent.Mode)
	return apiServer.ListenAndServe(shutdownCtx, addr)
}
