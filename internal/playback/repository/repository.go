package repository

import (
	"context"

	"family-radio/companion/internal/playback/domain"
)

// Repository defines persistence for the session-scoped playback record.
// Implementations must scope the record to the browsing session: it survives
// navigation, not session end.
type Repository interface {
	// Get returns the persisted session record, or nil when none exists yet.
	// It returns an error only for storage failures, not for a missing record.
	Get(ctx context.Context) (*domain.Session, error)
	// Put stores or replaces the session record.
	Put(ctx context.Context, s domain.Session) error
	// Clear removes the session record.
	Clear(ctx context.Context) error
}
