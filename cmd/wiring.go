package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"github.com/teemow/calendar-mcp/internal/agent"
	"github.com/teemow/calendar-mcp/internal/config"
	"github.com/teemow/calendar-mcp/internal/credentials"
	"github.com/teemow/calendar-mcp/internal/geo"
	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/search"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/weather"
)

// newInstrumentation starts the OpenTelemetry provider. Callers must defer
// Shutdown on the returned provider.
func newInstrumentation(ctx context.Context, logger *slog.Logger) (*instrumentation.Provider, error) {
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrumentationConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	if provider.Enabled() {
		logger.Info("instrumentation initialized",
			"metrics_exporter", instrumentationConfig.MetricsExporter,
			"tracing_exporter", instrumentationConfig.TracingExporter)
	}
	return provider, nil
}

// loadClientConfig returns nil without an error when the client secret file
// does not exist. Stored credentials keep working until they expire.
func loadClientConfig(cfg *config.Config, logger *slog.Logger) (*oauth2.Config, error) {
	if _, err := os.Stat(cfg.CredentialsFile); errors.Is(err, os.ErrNotExist) {
		logger.Warn("OAuth client secret file not found, token refresh and login are unavailable",
			"credentials_file", cfg.CredentialsFile)
		return nil, nil
	}
	return google.LoadClientConfig(cfg.CredentialsFile)
}

// newManager opens the credential store and builds the credential manager.
func newManager(cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (*google.Manager, error) {
	clientConfig, err := loadClientConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	store := credentials.NewStore(cfg.TokenDir, credentials.WithLogger(logger))
	return google.NewManager(store, clientConfig,
		google.WithMetrics(metrics),
		google.WithLogger(logger),
	), nil
}

// newDelegate builds the planning agent delegate selected by the config.
func newDelegate(cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (agent.Delegate, error) {
	opts := []agent.Option{
		agent.WithTimeout(cfg.Agent.Timeout),
		agent.WithPreferencesFile(cfg.Agent.PreferencesFile),
		agent.WithMetrics(metrics),
		agent.WithLogger(logger),
	}

	switch cfg.Agent.Mode {
	case config.AgentModeCommand:
		return agent.NewCommandDelegate(cfg.Agent.Command, opts...)
	default:
		// The delegate applies its own deadline, the client only bounds idle connections.
		return agent.NewHTTPDelegate(cfg.Agent.URL, cfg.Agent.Token, &http.Client{}, opts...)
	}
}

// newServerContext wires every provider client into a ServerContext.
func newServerContext(ctx context.Context, cfg *config.Config, provider *instrumentation.Provider, logger *slog.Logger) (*server.ServerContext, error) {
	metrics := provider.Metrics()

	manager, err := newManager(cfg, metrics, logger)
	if err != nil {
		return nil, err
	}

	delegate, err := newDelegate(cfg, metrics, logger)
	if err != nil {
		logger.Warn("agent delegate not configured, the planning tool will fail", "error", err)
		delegate = agent.Unavailable(err)
	}

	instrumentationConfig := instrumentation.DefaultConfig()
	sc, err := server.NewServerContext(ctx, server.Config{
		Manager:         manager,
		Delegate:        delegate,
		Geo:             geo.NewClient(cfg.Providers.GeolocationURL, metrics),
		Weather:         weather.NewClient(cfg.Providers.WeatherURL, metrics),
		Search:          search.NewClient(cfg.Providers.SearchURL, metrics),
		MaxEmailResults: cfg.MaxEmailResults,
		Metrics:         metrics,
		Audit:           instrumentation.NewAuditLogger(logger, instrumentationConfig.AuditLogging),
		Logger:          logger,
	})
	if err != nil {
		_ = manager.Store().Close()
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	return sc, nil
}
