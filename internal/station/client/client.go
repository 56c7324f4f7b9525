// Package client fetches station status from the radio site's API server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"family-radio/companion/internal/station/domain"
)

const defaultTimeout = 10 * time.Second

// Client calls GET /api/status against the server base URL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a status client for the given server base URL (no trailing slash).
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Status fetches the current station status. Callers on the polling path swallow the error;
// it is returned so opt-in paths can distinguish a dead server from an empty answer.
func (c *Client) Status(ctx context.Context) (*domain.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("station: status request failed status=%d", resp.StatusCode)
	}
	var st domain.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("station: decode status: %w", err)
	}
	return &st, nil
}
