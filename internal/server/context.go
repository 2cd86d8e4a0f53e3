package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/api/option"

	"github.com/teemow/calendar-mcp/internal/agent"
	"github.com/teemow/calendar-mcp/internal/geo"
	"github.com/teemow/calendar-mcp/internal/gmail"
	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/search"
	"github.com/teemow/calendar-mcp/internal/weather"
)

// Config wires the dependencies of a ServerContext. Manager and Delegate
// are required; nil adapters are created with their default endpoints.
type Config struct {
	Manager  *google.Manager
	Delegate agent.Delegate

	Geo     *geo.Client
	Weather *weather.Client
	Search  *search.Client

	// GmailOptions are passed to every Gmail client, e.g. an endpoint override.
	GmailOptions    []option.ClientOption
	MaxEmailResults int

	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
	Now     func() time.Time
}

// ServerContext holds the dependencies shared by all tool handlers.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	manager  *google.Manager
	delegate agent.Delegate
	geo      *geo.Client
	weather  *weather.Client
	search   *search.Client

	gmailOptions    []option.ClientOption
	maxEmailResults int

	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a ServerContext bound to ctx.
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	if cfg.Manager == nil {
		return nil, errors.New("credential manager is required")
	}
	if cfg.Delegate == nil {
		return nil, errors.New("agent delegate is required")
	}

	if cfg.Geo == nil {
		cfg.Geo = geo.NewClient("", cfg.Metrics)
	}
	if cfg.Weather == nil {
		cfg.Weather = weather.NewClient("", cfg.Metrics)
	}
	if cfg.Search == nil {
		cfg.Search = search.NewClient("", cfg.Metrics)
	}
	if cfg.MaxEmailResults <= 0 || cfg.MaxEmailResults > gmail.MaxResultsCeiling {
		cfg.MaxEmailResults = gmail.MaxResultsCeiling
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		manager:         cfg.Manager,
		delegate:        cfg.Delegate,
		geo:             cfg.Geo,
		weather:         cfg.Weather,
		search:          cfg.Search,
		gmailOptions:    cfg.GmailOptions,
		maxEmailResults: cfg.MaxEmailResults,
		metrics:         cfg.Metrics,
		audit:           cfg.Audit,
		logger:          cfg.Logger,
		now:             cfg.Now,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// GmailClient returns a Gmail client authorized as userID. It never
// prompts; a missing or unusable credential yields *google.AuthRequiredError.
func (sc *ServerContext) GmailClient(ctx context.Context, userID string) (*gmail.Client, error) {
	httpClient, err := sc.manager.HTTPClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	return gmail.NewClient(ctx, httpClient, sc.metrics, sc.gmailOptions...)
}

// Manager returns the credential manager.
func (sc *ServerContext) Manager() *google.Manager { return sc.manager }

// Delegate returns the agent delegate.
func (sc *ServerContext) Delegate() agent.Delegate { return sc.delegate }

func (sc *ServerContext) Geo() *geo.Client         { return sc.geo }
func (sc *ServerContext) Weather() *weather.Client { return sc.weather }
func (sc *ServerContext) Search() *search.Client   { return sc.search }

// MaxEmailResults is the configured upper bound for check_gmail.
func (sc *ServerContext) MaxEmailResults() int { return sc.maxEmailResults }

func (sc *ServerContext) Metrics() *instrumentation.Metrics   { return sc.metrics }
func (sc *ServerContext) Audit() *instrumentation.AuditLogger { return sc.audit }
func (sc *ServerContext) Logger() *slog.Logger                { return sc.logger }

// Now returns the current time from the configured clock.
func (sc *ServerContext) Now() time.Time { return sc.now() }

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the context and closes the credential store.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return sc.manager.Store().Close()
}
