// Package service keeps the cached station identity in sync with the server.
package service

import (
	"context"
	"time"

	"family-radio/companion/internal/station/domain"
	"family-radio/companion/internal/station/repository"
)

// StatusFetcher is the part of the station API client the identity service needs.
type StatusFetcher interface {
	Status(ctx context.Context) (*domain.Status, error)
}

// Identity serves the cached station name immediately and refreshes it from the
// server on every page load, replacing the displayed value in place when it differs.
type Identity struct {
	origin string
	api    StatusFetcher
	repo   repository.Repository
	nowF   func() time.Time
}

// NewIdentity returns an identity service for the given origin.
func NewIdentity(origin string, api StatusFetcher, repo repository.Repository) *Identity {
	return &Identity{origin: origin, api: api, repo: repo, nowF: time.Now}
}

// CachedName returns the last stored station name, or the default before any fetch succeeded.
// Storage errors degrade to the default name; this path must never block a page render.
func (s *Identity) CachedName(ctx context.Context) string {
	ident, err := s.repo.Get(ctx, s.origin)
	if err != nil || ident == nil || ident.Name == "" {
		return domain.DefaultName
	}
	return ident.Name
}

// CachedStreamURL returns the origin-cached public stream URL, or "" when none is stored.
func (s *Identity) CachedStreamURL(ctx context.Context) string {
	ident, err := s.repo.Get(ctx, s.origin)
	if err != nil || ident == nil {
		return ""
	}
	return ident.StreamURL
}

// Refresh fetches the current status, updates the cache, and reports whether the
// station name differs from what was shown (the caller swaps the text in place, no reflow).
// The public stream URL is kept in sync on every call: stored when present, cleared when absent.
func (s *Identity) Refresh(ctx context.Context, shown string) (*domain.Status, bool, error) {
	st, err := s.api.Status(ctx)
	if err != nil {
		return nil, false, err
	}
	name := st.StationName
	if name == "" {
		name = domain.DefaultName
	}
	ident := &domain.Identity{
		Origin:    s.origin,
		Name:      name,
		StreamURL: st.PublicStreamURL,
		UpdatedAt: s.nowF().UTC(),
	}
	if err := s.repo.Put(ctx, ident); err != nil {
		// Cache write failure degrades freshness on the next load only.
		return st, name != shown, nil
	}
	if st.PublicStreamURL == "" {
		_ = s.repo.ClearStreamURL(ctx, s.origin)
	}
	return st, name != shown, nil
}
