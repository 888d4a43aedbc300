package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiClient talks to a running detective server.
type apiClient struct {
	baseURL    string
	gatewayKey string
	http       *http.Client
}

func newAPIClient(opts *cliOptions) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(opts.serverURL, "/"),
		gatewayKey: opts.gatewayKey,
		http:       &http.Client{Timeout: 5 * time.Minute},
	}
}

// do sends body (if any) as JSON and decodes a 2xx answer into out.
// It returns the x-run-id response header.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) (string, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.gatewayKey != "" {
		req.Header.Set("X-Gateway-Key", c.gatewayKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	runID := resp.Header.Get("x-run-id")
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return runID, fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return runID, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return runID, fmt.Errorf("decode response: %w", err)
		}
	}
	return runID, nil
}
