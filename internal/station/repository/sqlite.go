package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"family-radio/companion/internal/station/domain"
)

// SQLiteRepository persists the identity cache in the origin-scoped sqlite store.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository returns an identity repository backed by the given database.
func NewSQLiteRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the cached identity for origin, or nil if never stored.
func (r *SQLiteRepository) Get(ctx context.Context, origin string) (*domain.Identity, error) {
	var ident domain.Identity
	err := r.db.GetContext(ctx, &ident,
		`SELECT origin, name, stream_url, updated_at FROM station_identity WHERE origin = ?`, origin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ident, nil
}

// Put stores or replaces the identity for its origin.
func (r *SQLiteRepository) Put(ctx context.Context, ident *domain.Identity) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO station_identity (origin, name, stream_url, updated_at)
		 VALUES (:origin, :name, :stream_url, :updated_at)
		 ON CONFLICT(origin) DO UPDATE SET
		   name = excluded.name, stream_url = excluded.stream_url, updated_at = excluded.updated_at`,
		ident)
	return err
}

// ClearStreamURL removes the cached public stream URL for origin, keeping the name.
func (r *SQLiteRepository) ClearStreamURL(ctx context.Context, origin string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE station_identity SET stream_url = '' WHERE origin = ?`, origin)
	return err
}
