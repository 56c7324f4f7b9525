package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"context"

	"family-radio/companion/internal/playback/domain"
)

// FileRepository stores the playback record as a JSON file under the runtime
// directory, keyed by session ID. The runtime dir lives on session-scoped storage
// (tmpfs), so the host clears the record at session end without our involvement.
type FileRepository struct {
	path string
}

// NewFileRepository returns a session repository writing to dir/playback-<sessionID>.json.
func NewFileRepository(dir, sessionID string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("playback: create runtime dir: %w", err)
	}
	return &FileRepository{path: filepath.Join(dir, "playback-"+sessionID+".json")}, nil
}

// Get returns the persisted session record, or nil when none exists yet.
func (r *FileRepository) Get(ctx context.Context) (*domain.Session, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A torn write from a dying session is the same as no record.
		return nil, nil
	}
	return &s, nil
}

// Put stores or replaces the session record. The write is atomic (tmp + rename) so a
// concurrently loading page never reads a half-written record.
func (r *FileRepository) Put(ctx context.Context, s domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// Clear removes the session record.
func (r *FileRepository) Clear(ctx context.Context) error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
