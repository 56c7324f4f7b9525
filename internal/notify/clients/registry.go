// Package clients tracks open page contexts and carries messages to them over
// their control endpoints.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"family-radio/companion/internal/notify"
)

const controlTimeout = 3 * time.Second

// Registry is the sqlite-backed page-context registry. Page processes register a
// control URL on startup; the worker messages them through it. Rows are
// best-effort: a client that stops answering is dropped.
type Registry struct {
	db *sqlx.DB
	// BaseURL resolves site-relative navigation targets for OpenWindow.
	BaseURL string
	// OpenCommand is the program that opens a page context, invoked with the full
	// URL as its single argument.
	OpenCommand string

	HTTPClient *http.Client
}

func NewRegistry(db *sqlx.DB, baseURL, openCommand string) *Registry {
	return &Registry{
		db:          db,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		OpenCommand: openCommand,
		HTTPClient:  &http.Client{Timeout: controlTimeout},
	}
}

// Register records a page context. Called by the page process on startup.
func (r *Registry) Register(ctx context.Context, c notify.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO page_clients (id, control_url, page, registered_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET control_url = excluded.control_url,
			page = excluded.page, registered_at = excluded.registered_at`,
		c.ID, c.ControlURL, c.Page, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clients: register: %w", err)
	}
	return nil
}

// Deregister removes a page context. Called by the page process on shutdown.
func (r *Registry) Deregister(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM page_clients WHERE id = ?`, id); err != nil {
		return fmt.Errorf("clients: deregister: %w", err)
	}
	return nil
}

func (r *Registry) List(ctx context.Context) ([]notify.Client, error) {
	var rows []struct {
		ID         string `db:"id"`
		ControlURL string `db:"control_url"`
		Page       string `db:"page"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, control_url, page FROM page_clients ORDER BY registered_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	out := make([]notify.Client, 0, len(rows))
	for _, row := range rows {
		out = append(out, notify.Client{ID: row.ID, ControlURL: row.ControlURL, Page: row.Page})
	}
	return out, nil
}

// Message posts msg to the client's control endpoint. An unreachable client is
// dropped from the registry and the error returned so the router moves on.
func (r *Registry) Message(ctx context.Context, c notify.Client, msg notify.NavigateMessage) error {
	if err := r.post(ctx, c.ControlURL+"/client/message", msg); err != nil {
		if derr := r.Deregister(ctx, c.ID); derr != nil {
			log.Printf("clients: drop stale client %s: %v", c.ID, derr)
		}
		return err
	}
	return nil
}

func (r *Registry) Focus(ctx context.Context, c notify.Client) error {
	return r.post(ctx, c.ControlURL+"/client/focus", struct{}{})
}

// OpenWindow launches a fresh page context at the resolved URL.
func (r *Registry) OpenWindow(ctx context.Context, url string) error {
	if r.OpenCommand == "" {
		return fmt.Errorf("clients: no open command configured")
	}
	full := url
	if strings.HasPrefix(url, "/") {
		full = r.BaseURL + url
	}
	if err := exec.CommandContext(ctx, r.OpenCommand, full).Start(); err != nil {
		return fmt.Errorf("clients: open window: %w", err)
	}
	return nil
}

// Claim notifies every registered client that a new worker instance is in
// control, pruning the ones that no longer answer.
func (r *Registry) Claim(ctx context.Context) error {
	clients, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range clients {
		if err := r.post(ctx, c.ControlURL+"/client/message", notify.NavigateMessage{Type: "claim"}); err != nil {
			if derr := r.Deregister(ctx, c.ID); derr != nil {
				log.Printf("clients: drop stale client %s: %v", c.ID, derr)
			}
		}
	}
	return nil
}

func (r *Registry) post(ctx context.Context, url string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("clients: post %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("clients: post %s status=%d", url, resp.StatusCode)
	}
	return nil
}
