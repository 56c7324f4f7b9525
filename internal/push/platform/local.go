package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"family-radio/companion/internal/push/domain"
	"family-radio/companion/internal/webpush"
)

// readyPollInterval is how often Ready re-checks for a worker registration.
const readyPollInterval = 200 * time.Millisecond

// LocalService is the sqlite-backed push service. Subscriptions are real key
// material: a fresh P-256 pair and auth secret per subscription, with the endpoint
// routed at the background worker's push listener.
type LocalService struct {
	db *sqlx.DB
}

func NewLocalService(db *sqlx.DB) *LocalService {
	return &LocalService{db: db}
}

// Ready blocks until a background worker registration exists. Callers bound the
// wait with their context.
func (s *LocalService) Ready(ctx context.Context) error {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		var n int
		err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM worker_registration`)
		if err != nil {
			return fmt.Errorf("platform: check worker registration: %w", err)
		}
		if n > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("platform: waiting for worker registration: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *LocalService) Permission(ctx context.Context) (Permission, error) {
	var state string
	err := s.db.GetContext(ctx, &state, `SELECT state FROM push_permission WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return PermissionDefault, nil
	}
	if err != nil {
		return "", fmt.Errorf("platform: read permission: %w", err)
	}
	return Permission(state), nil
}

func (s *LocalService) RequestPermission(ctx context.Context, prompt Prompt) (Permission, error) {
	current, err := s.Permission(ctx)
	if err != nil {
		return "", err
	}
	if current != PermissionDefault {
		return current, nil
	}
	granted, err := prompt.Ask(ctx)
	if err != nil {
		return "", fmt.Errorf("platform: permission prompt: %w", err)
	}
	next := PermissionDenied
	if granted {
		next = PermissionGranted
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO push_permission (id, state, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(next), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("platform: store permission: %w", err)
	}
	return next, nil
}

func (s *LocalService) GetSubscription(ctx context.Context) (*domain.Subscription, error) {
	var row subscriptionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, endpoint, p256dh, auth, ua_private_key, server_key, created_at
		FROM push_subscription LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("platform: read subscription: %w", err)
	}
	return row.subscription(), nil
}

// Subscribe returns the existing subscription when it carries the same server key.
// A different key is an error; the caller must unsubscribe first.
func (s *LocalService) Subscribe(ctx context.Context, serverKey string) (*domain.Subscription, error) {
	existing, err := s.GetSubscription(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.ServerKey == serverKey {
			return existing, nil
		}
		return nil, errors.New("platform: a subscription with a different application server key exists")
	}

	base, err := s.endpointBase(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := webpush.GenerateKeys()
	if err != nil {
		return nil, err
	}
	sub := &domain.Subscription{
		ID:           uuid.NewString(),
		P256dh:       keys.P256dh,
		Auth:         keys.Auth,
		UAPrivateKey: keys.Private.Bytes(),
		ServerKey:    serverKey,
		CreatedAt:    time.Now().UTC(),
	}
	sub.Endpoint = base + "/" + sub.ID
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO push_subscription (id, endpoint, p256dh, auth, ua_private_key, server_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Endpoint, sub.P256dh, sub.Auth, sub.UAPrivateKey, sub.ServerKey, sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("platform: store subscription: %w", err)
	}
	return sub, nil
}

func (s *LocalService) Unsubscribe(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM push_subscription`); err != nil {
		return fmt.Errorf("platform: drop subscription: %w", err)
	}
	return nil
}

func (s *LocalService) endpointBase(ctx context.Context) (string, error) {
	var base string
	err := s.db.GetContext(ctx, &base, `SELECT endpoint_base FROM worker_registration WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("platform: no worker registration, push endpoint unknown")
	}
	if err != nil {
		return "", fmt.Errorf("platform: read worker registration: %w", err)
	}
	return base, nil
}

type subscriptionRow struct {
	ID           string    `db:"id"`
	Endpoint     string    `db:"endpoint"`
	P256dh       string    `db:"p256dh"`
	Auth         string    `db:"auth"`
	UAPrivateKey []byte    `db:"ua_private_key"`
	ServerKey    string    `db:"server_key"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r subscriptionRow) subscription() *domain.Subscription {
	return &domain.Subscription{
		ID:           r.ID,
		Endpoint:     r.Endpoint,
		P256dh:       r.P256dh,
		Auth:         r.Auth,
		UAPrivateKey: r.UAPrivateKey,
		ServerKey:    r.ServerKey,
		CreatedAt:    r.CreatedAt,
	}
}
