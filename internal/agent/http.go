package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBytes caps how much of a crew response is read.
const maxResponseBytes = 4 << 20

type httpRunner struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewHTTPDelegate posts {"inputs": {...}} to url. A non-empty token is sent
// as a bearer credential.
func NewHTTPDelegate(url, token string, httpClient *http.Client, opts ...Option) (Delegate, error) {
	if url == "" {
		return nil, fmt.Errorf("agent URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return newDelegate(&httpRunner{url: url, token: token, httpClient: httpClient}, opts...), nil
}

func (r *httpRunner) run(ctx context.Context, in Inputs) (string, error) {
	body, err := json.Marshal(map[string]Inputs{"inputs": in})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read crew response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("crew returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return resultText(data), nil
}

// resultText extracts the crew output. JSON objects with a "result" or
// "raw" field yield that field; anything else is returned as text.
func resultText(data []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		for _, key := range []string{"result", "raw", "output"} {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return s
			}
			return string(raw)
		}
	}
	return strings.TrimSpace(string(data))
}
