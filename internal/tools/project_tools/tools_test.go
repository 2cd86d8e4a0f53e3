package project_tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calendar-mcp/internal/credentials"
	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/server"
)

type nopDelegate struct{}

func (nopDelegate) Run(context.Context, string) (string, error) { return "", nil }

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestCreateProject(t *testing.T) {
	now := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	store := credentials.NewStore(t.TempDir(), credentials.WithoutIndex())
	sc, err := server.NewServerContext(context.Background(), server.Config{
		Manager:  google.NewManager(store, nil),
		Delegate: nopDelegate{},
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)

	res, err := handleCreateProject(context.Background(), call(map[string]any{"name": "X", "description": "Y"}), sc)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &got))
	assert.Equal(t, "create_project_intent", got["type"])
	assert.Equal(t, "X", got["name"])
	assert.Equal(t, "Y", got["description"])
	assert.Equal(t, "#4F46E5", got["color_hex"])
	assert.Equal(t, "Folder", got["icon"])
	ts, err := time.Parse(time.RFC3339, got["timestamp"])
	require.NoError(t, err)
	assert.True(t, ts.Equal(now))

	for _, args := range []map[string]any{
		{"description": "no name"},
		{"name": "X", "color_hex": "purple"},
	} {
		res, err := handleCreateProject(context.Background(), call(args), sc)
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, res.Content[0].(mcp.TextContent).Text, `"error"`)
	}
}

func TestCreateProject_KeepsNameVerbatim(t *testing.T) {
	store := credentials.NewStore(t.TempDir(), credentials.WithoutIndex())
	sc, err := server.NewServerContext(context.Background(), server.Config{
		Manager:  google.NewManager(store, nil),
		Delegate: nopDelegate{},
	})
	require.NoError(t, err)

	for _, name := range []string{"  X  ", "Q3 plan\t", "café"} {
		res, err := handleCreateProject(context.Background(), call(map[string]any{"name": name, "description": " Y "}), sc)
		require.NoError(t, err)
		require.False(t, res.IsError)

		var got map[string]string
		require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &got))
		assert.Equal(t, name, got["name"])
		assert.Equal(t, " Y ", got["description"])
	}
}
