// Package geo resolves the approximate location of the server's public IP.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
)

const (
	// DefaultURL is the ipapi.co endpoint for the caller's own address.
	DefaultURL = "https://ipapi.co/json/"

	// DefaultTimeout bounds a lookup.
	DefaultTimeout = 5 * time.Second
)

// Location is the normalized lookup result.
type Location struct {
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Postal    string  `json:"postal"`
	Timezone  string  `json:"timezone"`
}

// Client looks up the current location.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
}

// NewClient creates a Client. An empty url selects DefaultURL.
func NewClient(url string, metrics *instrumentation.Metrics) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		metrics:    metrics,
	}
}

// ipapiResponse mirrors the fields of ipapi.co we use. Errors are reported
// in-band with "error": true.
type ipapiResponse struct {
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Postal      string  `json:"postal"`
	Timezone    string  `json:"timezone"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

// Lookup performs one request to the geolocation provider.
func (c *Client) Lookup(ctx context.Context) (loc *Location, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderGeolocation, instrumentation.OperationLookup)
	defer func() {
		instrumentation.EndSpan(span, err)
		c.metrics.RecordProviderCall(ctx, instrumentation.ProviderGeolocation, instrumentation.OperationLookup, statusOf(err), time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "calendar-mcp")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation provider returned HTTP %d", resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geolocation response: %w", err)
	}
	if body.Error {
		reason := body.Reason
		if reason == "" {
			reason = "unknown error"
		}
		return nil, errors.New("geolocation provider: " + reason)
	}

	return &Location{
		City:      body.City,
		Region:    body.Region,
		Country:   body.CountryName,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		Postal:    body.Postal,
		Timezone:  body.Timezone,
	}, nil
}

func statusOf(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
