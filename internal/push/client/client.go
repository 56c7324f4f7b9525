// Package client talks to the server's push API: key discovery and (de)registration.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"family-radio/companion/internal/push/domain"
)

const defaultTimeout = 15 * time.Second

// Client calls the /api/push/* endpoints on the server base URL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a push API client for the given server base URL (no trailing slash).
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// VAPIDKey fetches the server's public application key. A non-success response means
// push is not set up server-side and maps to ErrServerNotConfigured.
func (c *Client) VAPIDKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/push/vapid-key", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w (status %d)", domain.ErrServerNotConfigured, resp.StatusCode)
	}
	var body struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("push: decode vapid key: %w", err)
	}
	if body.PublicKey == "" {
		return "", domain.ErrServerNotConfigured
	}
	return body.PublicKey, nil
}

// Register stores the subscription record server-side.
func (c *Client) Register(ctx context.Context, rec domain.Record) error {
	return c.post(ctx, "/api/push/subscribe", rec)
}

// Deregister removes the subscription record server-side.
func (c *Client) Deregister(ctx context.Context, rec domain.Record) error {
	return c.post(ctx, "/api/push/unsubscribe", rec)
}

func (c *Client) post(ctx context.Context, path string, rec domain.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push: %s failed status=%d", path, resp.StatusCode)
	}
	return nil
}
