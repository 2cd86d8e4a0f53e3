package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/calendar-mcp/internal/agent"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
)

const (
	// DefaultReadHeaderTimeout bounds reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// writeTimeoutSlack is added to the delegate timeout for the server's
	// write timeout so a slow crew run can still be answered.
	writeTimeoutSlack = 10 * time.Second

	// maxBodyBytes caps request bodies.
	maxBodyBytes = 1 << 20
)

// Server serves the REST API.
type Server struct {
	delegate        agent.Delegate
	metrics         *instrumentation.Metrics
	logger          *slog.Logger
	delegateTimeout time.Duration
	newID           func() string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records HTTP request metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDelegateTimeout sizes the write timeout of ListenAndServe.
func WithDelegateTimeout(d time.Duration) Option {
	return func(s *Server) { s.delegateTimeout = d }
}

// NewServer creates a Server that hands work to d.
func NewServer(d agent.Delegate, opts ...Option) *Server {
	s := &Server{
		delegate:        d,
		logger:          slog.Default(),
		delegateTimeout: agent.DefaultTimeout,
		newID:           newInvocationID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Post("/run", s.handleRun)
	r.Post("/mcp/invoke", s.handleInvoke)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      s.delegateTimeout + writeTimeoutSlack,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          logging.StdLogger(s.logger, slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("REST API listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down REST API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// observe logs each request and records HTTP metrics by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, status, duration)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", path,
			"status", status,
			logging.KeyDuration, duration,
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}
