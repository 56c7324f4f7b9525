// Package platform models the browser-platform surfaces the subscription manager
// depends on: capability probes, the notification permission, and the push service
// that issues subscriptions. State lives in the platform's own storage, never in
// process memory.
package platform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"family-radio/companion/internal/push/domain"
)

// Permission is the notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Environment probes platform capabilities. Pure: no state transitions.
type Environment interface {
	// Supported reports whether worker, push, and notification capabilities exist.
	Supported() bool
	// InstallKind distinguishes "must install to a home-screen context first" from
	// "supported directly".
	InstallKind() domain.InstallKind
}

// Prompt asks the user for notification permission; it suspends for user interaction.
type Prompt interface {
	Ask(ctx context.Context) (granted bool, err error)
}

// PushService is the platform push service plus the worker registration in front of it.
type PushService interface {
	// Ready suspends until the background worker registration is active.
	Ready(ctx context.Context) error
	// Permission returns the current notification permission.
	Permission(ctx context.Context) (Permission, error)
	// RequestPermission prompts the user if the permission is still default and
	// returns the resulting state. Denied is sticky: no prompt is shown again.
	RequestPermission(ctx context.Context, prompt Prompt) (Permission, error)
	// GetSubscription returns the live subscription, or nil when none exists.
	GetSubscription(ctx context.Context) (*domain.Subscription, error)
	// Subscribe creates a subscription bound to serverKey, or returns the existing
	// one when it was created with the same key.
	Subscribe(ctx context.Context, serverKey string) (*domain.Subscription, error)
	// Unsubscribe drops the subscription; a no-op when none exists.
	Unsubscribe(ctx context.Context) error
}

// StaticEnvironment is an Environment with fixed answers. The desktop build is
// always a direct-support environment; tests flip the fields.
type StaticEnvironment struct {
	SupportedFlag bool
	Install       domain.InstallKind
}

func (e StaticEnvironment) Supported() bool                 { return e.SupportedFlag }
func (e StaticEnvironment) InstallKind() domain.InstallKind { return e.Install }

// Desktop returns the environment probe for this build.
func Desktop() Environment {
	return StaticEnvironment{SupportedFlag: true, Install: domain.InstallNone}
}

// TerminalPrompt asks for permission on the controlling terminal.
type TerminalPrompt struct {
	In  io.Reader
	Out io.Writer
}

// Ask prints the permission question and reads one line; "y"/"yes" grants.
func (p TerminalPrompt) Ask(ctx context.Context) (bool, error) {
	fmt.Fprint(p.Out, "Allow Family Radio to show notifications? [y/N] ")
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
