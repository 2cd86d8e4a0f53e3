package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/calendar-mcp/internal/credentials"
	"github.com/teemow/calendar-mcp/internal/logging"
)

const (
	// DefaultCallbackTimeout is how long Login waits for the browser to return.
	DefaultCallbackTimeout = 5 * time.Minute

	callbackPath = "/oauth2/callback"
)

// Interactive runs the browser consent flow. It must only be used from a
// terminal session, never from a request path.
type Interactive struct {
	manager     *Manager
	listenAddr  string
	timeout     time.Duration
	force       bool
	openBrowser func(url string) error
	out         io.Writer
}

// InteractiveOption configures Interactive.
type InteractiveOption func(*Interactive)

// WithListenAddr sets the loopback address of the callback listener.
func WithListenAddr(addr string) InteractiveOption {
	return func(i *Interactive) { i.listenAddr = addr }
}

// WithCallbackTimeout bounds the wait for the callback.
func WithCallbackTimeout(d time.Duration) InteractiveOption {
	return func(i *Interactive) { i.timeout = d }
}

// WithForce skips reuse of a stored credential.
func WithForce(force bool) InteractiveOption {
	return func(i *Interactive) { i.force = force }
}

// WithBrowserOpener replaces the function used to open the consent URL.
func WithBrowserOpener(open func(url string) error) InteractiveOption {
	return func(i *Interactive) { i.openBrowser = open }
}

// WithOutput sets where instructions for the operator are printed.
func WithOutput(w io.Writer) InteractiveOption {
	return func(i *Interactive) { i.out = w }
}

// NewInteractive creates the interactive flow on top of m.
func NewInteractive(m *Manager, opts ...InteractiveOption) *Interactive {
	i := &Interactive{
		manager:     m,
		listenAddr:  "127.0.0.1:0",
		timeout:     DefaultCallbackTimeout,
		openBrowser: openBrowser,
		out:         os.Stderr,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Login makes sure userID has a usable credential. A valid or refreshable
// credential is reused; otherwise the consent flow runs and its result is saved.
func (i *Interactive) Login(ctx context.Context, userID string) (*oauth2.Token, error) {
	if userID == "" {
		return nil, credentials.ErrInvalidUserID
	}

	if !i.force {
		tok, err := i.manager.Token(ctx, userID)
		if err == nil {
			fmt.Fprintf(i.out, "Existing credential for %s is valid.\n", userID)
			return tok, nil
		}
		if !IsAuthRequired(err) {
			return nil, err
		}
	}

	if i.manager.config == nil {
		return nil, errors.New("an OAuth client secret file is required for login")
	}
	return i.consent(ctx, userID)
}

type callbackResult struct {
	code string
	err  error
}

func (i *Interactive) consent(ctx context.Context, userID string) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", i.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("start callback listener: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	cfg := *i.manager.config
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d%s", port, callbackPath)

	state, err := randomState()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	var once sync.Once
	deliver := func(r callbackResult) { once.Do(func() { results <- r }) }

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("callback state mismatch")})
		case q.Get("error") != "":
			http.Error(w, "Authorization was denied.", http.StatusBadRequest)
			deliver(callbackResult{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
		case q.Get("code") == "":
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("callback without authorization code")})
		default:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "Authorization complete. You can close this window.\n")
			deliver(callbackResult{code: q.Get("code")})
		}
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StdLogger(i.manager.logger, slog.LevelDebug),
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("login_hint", userID),
		oauth2.S256ChallengeOption(verifier),
	)
	fmt.Fprintf(i.out, "Authorize %s by visiting:\n\n  %s\n\nWaiting for the browser to return to %s ...\n", userID, authURL, cfg.RedirectURL)
	if err := i.openBrowser(authURL); err != nil {
		i.manager.logger.Debug("could not open a browser", logging.Err(err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("timed out waiting for authorization: %w", waitCtx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := cfg.Exchange(i.manager.tokenContext(ctx), res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	previous, _ := i.manager.store.Load(ctx, userID)
	cred := credentials.FromToken(userID, tok, cfg.Scopes, previous)
	if err := i.manager.store.Save(ctx, userID, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	fmt.Fprintf(i.out, "Credential for %s saved to %s\n", userID, i.manager.store.Path(userID))
	return cred.Token(), nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
