package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
)

// DefaultTimeout bounds a single crew run.
const DefaultTimeout = 10 * time.Minute

// ErrEmptyTopic is returned when there is nothing to plan.
var ErrEmptyTopic = errors.New("topic must not be empty")

// Delegate runs the planning crew for one request.
type Delegate interface {
	Run(ctx context.Context, topic string) (string, error)
}

// Inputs is the payload handed to the crew.
type Inputs struct {
	Topic       string `json:"topic"`
	Preferences string `json:"preferences,omitempty"`
}

// runner is what the concrete delegates implement.
type runner interface {
	run(ctx context.Context, in Inputs) (string, error)
}

// delegate applies the behavior shared by every transport: input checks,
// preferences, the timeout, instrumentation and error wrapping.
type delegate struct {
	runner          runner
	timeout         time.Duration
	preferencesFile string
	metrics         *instrumentation.Metrics
	logger          *slog.Logger
}

// Option configures a delegate.
type Option func(*delegate)

// WithTimeout overrides DefaultTimeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(dl *delegate) {
		if d > 0 {
			dl.timeout = d
		}
	}
}

// WithPreferencesFile adds the file's contents to every run. A missing file
// is not an error.
func WithPreferencesFile(path string) Option {
	return func(dl *delegate) { dl.preferencesFile = path }
}

// WithMetrics records crew runs as provider calls.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(dl *delegate) { dl.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(dl *delegate) {
		if l != nil {
			dl.logger = l
		}
	}
}

func newDelegate(r runner, opts ...Option) *delegate {
	d := &delegate{
		runner:  r,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run implements Delegate.
func (d *delegate) Run(ctx context.Context, topic string) (result string, err error) {
	if strings.TrimSpace(topic) == "" {
		return "", ErrEmptyTopic
	}

	start := time.Now()
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderAgent, instrumentation.OperationRun)
	defer func() {
		instrumentation.EndSpan(span, err)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		d.metrics.RecordProviderCall(ctx, instrumentation.ProviderAgent, instrumentation.OperationRun, status, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	in := Inputs{Topic: topic, Preferences: d.loadPreferences()}
	d.logger.Debug("running agent crew", "topic_len", len(topic), "has_preferences", in.Preferences != "")

	out, err := d.runner.run(ctx, in)
	if err != nil {
		return "", fmt.Errorf("agent delegate: %w", err)
	}
	return out, nil
}

func (d *delegate) loadPreferences() string {
	if d.preferencesFile == "" {
		return ""
	}
	data, err := os.ReadFile(d.preferencesFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("could not read preferences file", "path", d.preferencesFile, "error", err)
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

type unavailable struct{ err error }

// Unavailable returns a Delegate whose every run fails with err. It stands
// in when the server starts without a usable delegate configuration.
func Unavailable(err error) Delegate {
	return unavailable{err: err}
}

func (u unavailable) Run(context.Context, string) (string, error) {
	return "", fmt.Errorf("agent delegate: %w", u.err)
}
