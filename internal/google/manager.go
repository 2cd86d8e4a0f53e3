package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/calendar-mcp/internal/credentials"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
)

const (
	// DefaultTokenTimeout bounds calls to the OAuth token endpoint.
	DefaultTokenTimeout = 15 * time.Second

	// DefaultAPITimeout bounds a single Google API request made with HTTPClient.
	DefaultAPITimeout = 30 * time.Second
)

// TokenProvider returns a usable access token for a user without interaction.
type TokenProvider interface {
	Token(ctx context.Context, userID string) (*oauth2.Token, error)
}

// Manager is the headless side of the credential lifecycle.
type Manager struct {
	store      *credentials.Store
	config     *oauth2.Config
	httpClient *http.Client
	apiTimeout time.Duration
	now        func() time.Time
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient sets the client used to talk to the token endpoint.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = c }
}

// WithAPITimeout sets the timeout of clients returned by HTTPClient.
func WithAPITimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.apiTimeout = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithMetrics records refresh and auth-required metrics.
func WithMetrics(metrics *instrumentation.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager. config may be nil when no client secret is
// configured; refreshes then fail with ReasonNoClientConfig.
func NewManager(store *credentials.Store, config *oauth2.Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		config:     config,
		httpClient: &http.Client{Timeout: DefaultTokenTimeout},
		apiTimeout: DefaultAPITimeout,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying credential store.
func (m *Manager) Store() *credentials.Store {
	return m.store
}

// Config returns the OAuth client configuration, which may be nil.
func (m *Manager) Config() *oauth2.Config {
	return m.config
}

// Token returns a valid token for userID. A valid stored credential is
// returned without any network call. An expired one is refreshed once and
// persisted. Every other case yields an *AuthRequiredError.
func (m *Manager) Token(ctx context.Context, userID string) (*oauth2.Token, error) {
	logger := logging.WithOperation(m.logger, "token.get").With(logging.UserHash(userID))

	cred, err := m.store.Load(ctx, userID)
	if errors.Is(err, credentials.ErrNotFound) {
		return nil, m.authRequired(ctx, userID, ReasonNoCredential, nil)
	}
	if err != nil {
		return nil, err
	}

	switch credentials.StateOf(cred, m.now()) {
	case credentials.StateValid:
		return cred.Token(), nil
	case credentials.StateExpiredRefreshable:
		logger.Debug("access token expired, refreshing")
		return m.refresh(ctx, userID, cred)
	default:
		return nil, m.authRequired(ctx, userID, ReasonNoRefreshToken, nil)
	}
}

// State reports the lifecycle state of the stored credential for userID.
func (m *Manager) State(ctx context.Context, userID string) (credentials.State, error) {
	cred, err := m.store.Load(ctx, userID)
	if errors.Is(err, credentials.ErrNotFound) {
		return credentials.StateAbsent, nil
	}
	if err != nil {
		return credentials.StateAbsent, err
	}
	return credentials.StateOf(cred, m.now()), nil
}

// SwitchAccount forgets the stored credential so the next request needs a
// new login. It reports whether a credential was removed.
func (m *Manager) SwitchAccount(ctx context.Context, userID string) (bool, error) {
	existed, err := m.store.Delete(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("remove credential: %w", err)
	}
	m.logger.Info("credential removed", logging.UserHash(userID), slog.Bool("existed", existed))
	return existed, nil
}

// HTTPClient returns an authorized client for userID. It fails fast with an
// *AuthRequiredError when no usable credential exists. Later refreshes made
// by the client are persisted through Token.
func (m *Manager) HTTPClient(ctx context.Context, userID string) (*http.Client, error) {
	tok, err := m.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	src := oauth2.ReuseTokenSource(tok, &storeTokenSource{ctx: ctx, manager: m, userID: userID})
	client := oauth2.NewClient(m.tokenContext(ctx), src)
	client.Timeout = m.apiTimeout
	return client, nil
}

func (m *Manager) refresh(ctx context.Context, userID string, cred *credentials.AccountCredential) (*oauth2.Token, error) {
	if m.config == nil {
		return nil, m.authRequired(ctx, userID, ReasonNoClientConfig, errors.New("no OAuth client secret configured"))
	}

	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderOAuth, instrumentation.OperationRefresh)
	// an empty access token forces the token source to hit the endpoint
	src := m.config.TokenSource(m.tokenContext(ctx), &oauth2.Token{
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
	})
	tok, err := src.Token()
	instrumentation.EndSpan(span, err)
	if err != nil {
		m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		return nil, m.authRequired(ctx, userID, ReasonRefreshFailed, err)
	}
	m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSuccess)

	updated := credentials.FromToken(userID, tok, nil, cred)
	if err := m.store.Save(ctx, userID, updated); err != nil {
		// the new token is still usable for this request
		m.logger.Warn("failed to save refreshed credential", logging.UserHash(userID), logging.Err(err))
	} else if err := m.store.MarkRefreshed(ctx, userID); err != nil {
		m.logger.Warn("failed to record refresh time", logging.UserHash(userID), logging.Err(err))
	}
	return updated.Token(), nil
}

func (m *Manager) authRequired(ctx context.Context, userID string, reason AuthReason, cause error) error {
	m.metrics.RecordAuthRequired(ctx, string(reason))
	m.logger.Warn("authentication required",
		logging.UserHash(userID),
		slog.String("reason", string(reason)),
		logging.Err(cause))
	return &AuthRequiredError{UserID: userID, Reason: reason, Err: cause}
}

// tokenContext routes oauth2 token calls through the manager's client.
func (m *Manager) tokenContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// storeTokenSource re-enters the headless path whenever the cached token
// of an HTTPClient expires.
type storeTokenSource struct {
	ctx     context.Context
	manager *Manager
	userID  string
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	return s.manager.Token(s.ctx, s.userID)
}
