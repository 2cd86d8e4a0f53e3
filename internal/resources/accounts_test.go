package resources

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calendar-mcp/internal/agent"
	"github.com/teemow/calendar-mcp/internal/credentials"
	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/server"
)

func newTestContext(t *testing.T) *server.ServerContext {
	t.Helper()
	store := credentials.NewStore(filepath.Join(t.TempDir(), "tokens"))
	sc, err := server.NewServerContext(context.Background(), server.Config{
		Manager:  google.NewManager(store, nil),
		Delegate: agent.Unavailable(errors.New("unused")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	require.NoError(t, store.Save(context.Background(), "alice@example.com", &credentials.AccountCredential{
		AccessToken: "access",
		Expiry:      time.Now().Add(time.Hour),
	}))
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	return req
}

func decode[T any](t *testing.T, contents []mcp.ResourceContents) T {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)

	var v T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &v))
	return v
}

func TestAccountList(t *testing.T) {
	sc := newTestContext(t)

	contents, err := handleAccountList(context.Background(), readRequest(AccountsURI), sc)
	require.NoError(t, err)

	statuses := decode[[]AccountStatus](t, contents)
	require.Len(t, statuses, 1)
	assert.Equal(t, "alice@example.com", statuses[0].UserID)
	assert.Equal(t, "valid", statuses[0].State)
	assert.NotNil(t, statuses[0].UpdatedAt)
}

func TestAccountStatus(t *testing.T) {
	sc := newTestContext(t)

	tests := []struct {
		uri   string
		user  string
		state string
	}{
		{"accounts://alice@example.com/status", "alice@example.com", "valid"},
		{"accounts://bob/status", "bob", "absent"},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			contents, err := handleAccountStatus(context.Background(), readRequest(tt.uri), sc)
			require.NoError(t, err)
			status := decode[AccountStatus](t, contents)
			assert.Equal(t, tt.user, status.UserID)
			assert.Equal(t, tt.state, status.State)
		})
	}
}

func TestUserIDFromURI(t *testing.T) {
	for _, uri := range []string{"accounts:///status", "accounts://a/b/status", "user://alice/status", "accounts://alice"} {
		_, err := userIDFromURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestRegisterAccountResources(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithResourceCapabilities(false, false))
	require.NoError(t, RegisterAccountResources(s, newTestContext(t)))
}

func TestAccountStatus_LookalikeIsAbsentAndReadOnly(t *testing.T) {
	sc := newTestContext(t)
	dir := sc.Manager().Store().Dir()

	oldFile := filepath.Join(dir, "token_alice_at_example_com.json")
	require.NoError(t, os.WriteFile(oldFile, []byte(`{"token":"alice-access"}`), 0o600))

	contents, err := handleAccountStatus(context.Background(), readRequest("accounts://alice_at_example_com/status"), sc)
	require.NoError(t, err)
	assert.Equal(t, "absent", decode[AccountStatus](t, contents).State)

	_, err = os.Stat(oldFile)
	assert.NoError(t, err)
	_, err = os.Stat(sc.Manager().Store().Path("alice_at_example_com"))
	assert.True(t, os.IsNotExist(err))
}
