// Package service implements the push subscription manager: the decision layer
// between the platform push service and the server's push API.
package service

import (
	"context"
	"fmt"

	"family-radio/companion/internal/push/domain"
	"family-radio/companion/internal/push/platform"
)

// ServerAPI is the server-side half of a subscription's lifecycle.
type ServerAPI interface {
	VAPIDKey(ctx context.Context) (string, error)
	Register(ctx context.Context, rec domain.Record) error
	Deregister(ctx context.Context, rec domain.Record) error
}

// Manager holds no subscription state of its own. Every question is answered by
// querying the platform, so concurrent contexts always agree.
type Manager struct {
	env    platform.Environment
	svc    platform.PushService
	api    ServerAPI
	prompt platform.Prompt
}

func NewManager(env platform.Environment, svc platform.PushService, api ServerAPI, prompt platform.Prompt) *Manager {
	return &Manager{env: env, svc: svc, api: api, prompt: prompt}
}

// IsSupported reports whether the platform can do push at all.
func (m *Manager) IsSupported() bool {
	return m.env.Supported()
}

// NeedsInstall returns the install guidance kind, or InstallNone when push works
// directly.
func (m *Manager) NeedsInstall() domain.InstallKind {
	return m.env.InstallKind()
}

// IsSubscribed reports whether a live subscription exists. Queries degrade to
// false rather than erroring; the caller only drives UI state with this.
func (m *Manager) IsSubscribed(ctx context.Context) bool {
	if !m.env.Supported() {
		return false
	}
	sub, err := m.svc.GetSubscription(ctx)
	return err == nil && sub != nil
}

// Subscribe runs the full enable sequence: wait for the worker, secure
// permission, fetch the server key, obtain a platform subscription (reusing a
// matching one), and register it server-side.
//
// If server registration fails the platform subscription is kept; retrying
// Subscribe reuses it, so no duplicate endpoint is ever created.
func (m *Manager) Subscribe(ctx context.Context) (*domain.Subscription, error) {
	if !m.env.Supported() {
		return nil, domain.ErrUnsupported
	}
	if err := m.svc.Ready(ctx); err != nil {
		return nil, err
	}

	perm, err := m.svc.Permission(ctx)
	if err != nil {
		return nil, err
	}
	if perm == platform.PermissionDefault {
		perm, err = m.svc.RequestPermission(ctx, m.prompt)
		if err != nil {
			return nil, err
		}
	}
	if perm != platform.PermissionGranted {
		return nil, domain.ErrPermissionDenied
	}

	serverKey, err := m.api.VAPIDKey(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := m.svc.Subscribe(ctx, serverKey)
	if err != nil {
		return nil, fmt.Errorf("push: platform subscribe: %w", err)
	}
	if err := m.api.Register(ctx, sub.Record()); err != nil {
		return nil, fmt.Errorf("push: register subscription: %w", err)
	}
	return sub, nil
}

// Unsubscribe deregisters server-side first, then drops the platform
// subscription. No subscription is a success, so retries converge.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	sub, err := m.svc.GetSubscription(ctx)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}
	if err := m.api.Deregister(ctx, sub.Record()); err != nil {
		return fmt.Errorf("push: deregister subscription: %w", err)
	}
	if err := m.svc.Unsubscribe(ctx); err != nil {
		return fmt.Errorf("push: platform unsubscribe: %w", err)
	}
	return nil
}
