// Package search runs web searches against the DuckDuckGo HTML endpoint.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
)

const (
	// DefaultURL is the no-JavaScript DuckDuckGo results page.
	DefaultURL = "https://html.duckduckgo.com/html/"

	// DefaultTimeout bounds a search.
	DefaultTimeout = 10 * time.Second

	// MaxResults is the number of results kept from a page.
	MaxResults = 5

	userAgent = "Lynx/2.8.9rel.1 libwww-FM/2.14"
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query must not be empty")

// Result is one organic search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client performs searches.
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

// Search returns up to MaxResults hits for query.
func (c *Client) Search(ctx context.Context, query string) (results []Result, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderSearch, instrumentation.OperationSearch)
	defer func() {
		instrumentation.EndSpan(span, err)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		c.metrics.RecordProviderCall(ctx, instrumentation.ProviderSearch, instrumentation.OperationSearch, status, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search provider returned HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}
	return parseResults(doc, MaxResults), nil
}

// Summarize renders results as a numbered plain-text list.
func Summarize(query string, results []Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, r.Title)
		if r.Snippet != "" {
			sb.WriteString("\n   " + r.Snippet)
		}
		sb.WriteString("\n   " + r.URL)
	}
	return sb.String()
}
