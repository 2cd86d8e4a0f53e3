// Package location_tools exposes geolocation and current weather.
package location_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/common"
	"github.com/teemow/calendar-mcp/internal/weather"
)

// RegisterLocationTools registers get_location and get_weather.
func RegisterLocationTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	locationTool := mcp.NewTool("get_location",
		mcp.WithDescription("Get the approximate current location (city, region, country, coordinates, timezone) from the server's public IP address."),
	)
	s.AddTool(locationTool, common.Instrumented("get_location", instrumentation.ProviderGeolocation, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetLocation(ctx, request, sc)
		}))

	weatherTool := mcp.NewTool("get_weather",
		mcp.WithDescription("Get the current weather (temperature in °C and conditions) at the given coordinates. Use get_location first if the coordinates are unknown."),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("Latitude in decimal degrees (-90 to 90)"),
			mcp.Min(-90),
			mcp.Max(90),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("Longitude in decimal degrees (-180 to 180)"),
			mcp.Min(-180),
			mcp.Max(180),
		),
	)
	s.AddTool(weatherTool, common.Instrumented("get_weather", instrumentation.ProviderWeather, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetWeather(ctx, request, sc)
		}))

	return nil
}

func handleGetLocation(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	loc, err := sc.Geo().Lookup(ctx)
	if err != nil {
		logging.WithTool(sc.Logger(), "get_location").Warn("location lookup failed", logging.Err(err))
		return common.ErrorPayload(err.Error()), nil
	}
	return common.JSONResult(loc)
}

func handleGetWeather(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	lat, err := request.RequireFloat("latitude")
	if err != nil {
		return common.ErrorPayload(err.Error()), nil
	}
	lon, err := request.RequireFloat("longitude")
	if err != nil {
		return common.ErrorPayload(err.Error()), nil
	}
	if err := weather.ValidateCoordinates(lat, lon); err != nil {
		return common.ErrorPayload(err.Error()), nil
	}

	cond, err := sc.Weather().Current(ctx, lat, lon)
	if err != nil {
		logging.WithTool(sc.Logger(), "get_weather").Warn("weather lookup failed", logging.Err(err))
		return common.ErrorPayload(err.Error()), nil
	}
	return common.JSONResult(cond)
}
