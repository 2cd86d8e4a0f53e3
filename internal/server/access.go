package server

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// DefaultHTTPAddr keeps the streamable HTTP transport on the local machine.
const DefaultHTTPAddr = "127.0.0.1:8080"

// ValidateListenAddr refuses to expose the MCP endpoint beyond loopback unless
// requests are authenticated. An empty host ("":8080") binds every interface
// and counts as non-loopback.
func ValidateListenAddr(addr string, authenticated bool) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if authenticated || isLoopbackHost(host) {
		return nil
	}
	return fmt.Errorf("refusing to serve unauthenticated MCP on %s: bind to 127.0.0.1 or set --auth-token", addr)
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// RequireBearerToken rejects requests whose Authorization header does not
// carry token. An empty token disables the check.
func RequireBearerToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="calendar-mcp"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
