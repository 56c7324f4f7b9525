package repository

import (
	"context"

	"family-radio/companion/internal/station/domain"
)

// Repository defines persistence for the origin-scoped station identity cache.
type Repository interface {
	// Get returns the cached identity for origin, or nil if never stored.
	// It returns an error only for storage failures, not for missing rows.
	Get(ctx context.Context, origin string) (*domain.Identity, error)
	// Put stores or replaces the identity for its origin.
	Put(ctx context.Context, ident *domain.Identity) error
	// ClearStreamURL removes the cached public stream URL for origin, keeping the name.
	ClearStreamURL(ctx context.Context, origin string) error
}
