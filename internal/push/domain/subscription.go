// Package domain holds the push subscription record and the push error taxonomy.
package domain

import (
	"errors"
	"time"
)

// Error taxonomy for the subscription manager. The enclosing UI decides how to
// display these; they are not retried automatically.
var (
	// ErrUnsupported means a required platform capability (worker, push, notifications) is absent.
	ErrUnsupported = errors.New("push: not supported on this platform")
	// ErrPermissionDenied means the user or platform refused notification permission.
	ErrPermissionDenied = errors.New("push: notification permission denied")
	// ErrServerNotConfigured means the server's push key endpoint is unavailable.
	ErrServerNotConfigured = errors.New("push: not configured on server")
)

// Subscription identifies one platform push endpoint. The endpoint/p256dh/auth
// triple is what the server stores; the UA private key stays platform-side.
type Subscription struct {
	ID       string
	Endpoint string
	// P256dh is the base64url (unpadded) uncompressed UA public key.
	P256dh string
	// Auth is the base64url (unpadded) 16-byte auth secret.
	Auth string
	// UAPrivateKey is the raw P-256 private key used to decrypt deliveries. Never
	// sent anywhere; persisted only in the platform's own storage.
	UAPrivateKey []byte
	// ServerKey is the application server key the subscription was created with.
	// A subscribe with the same key reuses this subscription.
	ServerKey string
	CreatedAt time.Time
}

// Record is the JSON body of POST /api/push/subscribe and /api/push/unsubscribe.
type Record struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Record returns the server-facing projection of the subscription.
func (s *Subscription) Record() Record {
	return Record{Endpoint: s.Endpoint, P256dh: s.P256dh, Auth: s.Auth}
}

// InstallKind classifies whether push requires installing to a home-screen
// context first. Used purely to drive UI guidance.
type InstallKind string

const (
	// InstallNone means push works directly in this environment.
	InstallNone InstallKind = ""
	// InstallHomeScreen means the user must install the app to a home-screen
	// context before push will work.
	InstallHomeScreen InstallKind = "home-screen"
)
