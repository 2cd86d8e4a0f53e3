// Package weather reads current conditions from the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
)

const (
	// DefaultURL is the Open-Meteo forecast endpoint.
	DefaultURL = "https://api.open-meteo.com/v1/forecast"

	// DefaultTimeout bounds a lookup.
	DefaultTimeout = 5 * time.Second

	// Unit is the temperature unit Open-Meteo reports by default.
	Unit = "°C"
)

// Conditions is the normalized current weather.
type Conditions struct {
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	Status      string  `json:"status"`
	WeatherCode int     `json:"weather_code"`
}

// Client queries current weather.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
}

// NewClient creates a Client. An empty baseURL selects DefaultURL.
func NewClient(baseURL string, metrics *instrumentation.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		metrics:    metrics,
	}
}

// ValidateCoordinates rejects values outside the WGS84 range.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %v", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %v", lon)
	}
	return nil
}

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Current returns the current conditions at the given coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (cond *Conditions, err error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderWeather, instrumentation.OperationLookup)
	defer func() {
		instrumentation.EndSpan(span, err)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		c.metrics.RecordProviderCall(ctx, instrumentation.ProviderWeather, instrumentation.OperationLookup, status, time.Since(start))
	}()

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode weather response (HTTP %d): %w", resp.StatusCode, err)
	}
	if body.Error || resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather provider returned HTTP %d: %s", resp.StatusCode, body.Reason)
	}
	if body.CurrentWeather == nil {
		return nil, fmt.Errorf("weather provider returned no current conditions")
	}

	return &Conditions{
		Temperature: body.CurrentWeather.Temperature,
		Unit:        Unit,
		Status:      Describe(body.CurrentWeather.WeatherCode),
		WeatherCode: body.CurrentWeather.WeatherCode,
	}, nil
}
