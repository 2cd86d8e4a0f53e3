package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDelegate(t *testing.T) {
	prefs := filepath.Join(t.TempDir(), "user_preference.txt")
	require.NoError(t, os.WriteFile(prefs, []byte("No meetings before 10am\n"), 0o600))

	var got map[string]Inputs
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":"Scheduled: write report, Tue 10:00"}`))
	}))
	defer srv.Close()

	d, err := NewHTTPDelegate(srv.URL, "secret", srv.Client(), WithPreferencesFile(prefs))
	require.NoError(t, err)

	out, err := d.Run(context.Background(), "write report")
	require.NoError(t, err)
	assert.Equal(t, "Scheduled: write report, Tue 10:00", out)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, Inputs{Topic: "write report", Preferences: "No meetings before 10am"}, got["inputs"])
}

func TestHTTPDelegate_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "crew exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, err := NewHTTPDelegate(srv.URL, "", nil, WithPreferencesFile(filepath.Join(t.TempDir(), "missing.txt")))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), "plan my week")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "agent delegate: "))
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), "crew exploded")
}

func TestHTTPDelegate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	d, err := NewHTTPDelegate(srv.URL, "", nil, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), "plan")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDelegate_EmptyTopic(t *testing.T) {
	d, err := NewHTTPDelegate("http://127.0.0.1:1", "", nil)
	require.NoError(t, err)

	_, err = d.Run(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestNewDelegate_RequiresTarget(t *testing.T) {
	_, err := NewHTTPDelegate("", "", nil)
	assert.Error(t, err)
	_, err = NewCommandDelegate("   ")
	assert.Error(t, err)
}

func TestResultText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"result string", `{"result":"done"}`, "done"},
		{"raw field", `{"raw":"crew output","tasks_output":[]}`, "crew output"},
		{"structured result", `{"result":{"tasks":2}}`, `{"tasks":2}`},
		{"plain text", "  all set\n", "all set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resultText([]byte(tt.in)))
		})
	}
}

func TestCommandDelegate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := filepath.Join(t.TempDir(), "crew.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"progress: thinking\" >&2\nprintf 'planned %s' \"$1\"\n"), 0o700))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	d, err := NewCommandDelegate(script, WithLogger(logger))
	require.NoError(t, err)

	out, err := d.Run(context.Background(), "gym")
	require.NoError(t, err)
	assert.Equal(t, `planned {"topic":"gym"}`, out)
	assert.Contains(t, logs.String(), "progress: thinking")
}

func TestCommandDelegate_ExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := filepath.Join(t.TempDir(), "crew.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 3\n"), 0o700))

	d, err := NewCommandDelegate(script)
	require.NoError(t, err)

	_, err = d.Run(context.Background(), "gym")
	assert.ErrorContains(t, err, "exited with code 3")
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("agent URL is required")
	_, err := Unavailable(cause).Run(context.Background(), "plan")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "agent delegate")
}
