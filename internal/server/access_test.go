package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateListenAddr(t *testing.T) {
	tests := []struct {
		name          string
		addr          string
		authenticated bool
		wantErr       bool
	}{
		{name: "default address", addr: DefaultHTTPAddr},
		{name: "localhost", addr: "localhost:8080"},
		{name: "IPv6 loopback", addr: "[::1]:8080"},
		{name: "other loopback", addr: "127.0.0.2:8080"},
		{name: "all interfaces", addr: ":8080", wantErr: true},
		{name: "wildcard IPv4", addr: "0.0.0.0:8080", wantErr: true},
		{name: "public host", addr: "mcp.example.com:8080", wantErr: true},
		{name: "localhost lookalike", addr: "localhost.example.com:8080", wantErr: true},
		{name: "all interfaces with token", addr: ":8080", authenticated: true},
		{name: "missing port", addr: "127.0.0.1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateListenAddr(tt.addr, tt.authenticated)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRequireBearerToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireBearerToken("s3cret", next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no header", want: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer s3cret", want: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer s3cret", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}

func TestRequireBearerToken_EmptyTokenPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	RequireBearerToken("", next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
