package location_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calendar-mcp/internal/credentials"
	"github.com/teemow/calendar-mcp/internal/geo"
	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/weather"
)

type nopDelegate struct{}

func (nopDelegate) Run(context.Context, string) (string, error) { return "", nil }

func newContext(t *testing.T, geoURL, weatherURL string) *server.ServerContext {
	t.Helper()
	store := credentials.NewStore(t.TempDir(), credentials.WithoutIndex())
	sc, err := server.NewServerContext(context.Background(), server.Config{
		Manager:  google.NewManager(store, nil),
		Delegate: nopDelegate{},
		Geo:      geo.NewClient(geoURL, nil),
		Weather:  weather.NewClient(weatherURL, nil),
	})
	require.NoError(t, err)
	return sc
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestGetLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"city":"Cologne","region":"North Rhine-Westphalia","country_name":"Germany","latitude":50.94,"longitude":6.96,"postal":"50667","timezone":"Europe/Berlin"}`))
	}))
	defer srv.Close()

	res, err := handleGetLocation(context.Background(), call(nil), newContext(t, srv.URL, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"Cologne","region":"North Rhine-Westphalia","country":"Germany","latitude":50.94,"longitude":6.96,"postal":"50667","timezone":"Europe/Berlin"}`, text(res))
}

func TestGetLocation_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
	}))
	defer srv.Close()

	res, err := handleGetLocation(context.Background(), call(nil), newContext(t, srv.URL, ""))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(text(res)), &payload))
	assert.Contains(t, payload["error"], "RateLimited")
}

func TestGetWeather(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":21.5,"weathercode":0}}`))
	}))
	defer srv.Close()
	sc := newContext(t, "", srv.URL)

	res, err := handleGetWeather(context.Background(), call(map[string]any{"latitude": 50.94, "longitude": 6.96}), sc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature":21.5,"unit":"°C","status":"Clear sky","weather_code":0}`, text(res))

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing latitude", map[string]any{"longitude": 1.0}},
		{"latitude out of range", map[string]any{"latitude": 91.0, "longitude": 1.0}},
		{"longitude out of range", map[string]any{"latitude": 1.0, "longitude": -181.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handleGetWeather(context.Background(), call(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, text(res), `"error"`)
		})
	}
	assert.Equal(t, int32(1), hits.Load())
}
