// Package webpush implements the user-agent side of Web Push: subscription key
// material (RFC 8291), payload decryption (aes128gcm, RFC 8188/8291), and VAPID
// verification (RFC 8292).
package webpush

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// authSecretLen is the RFC 8291 auth secret length.
const authSecretLen = 16

// b64 is the encoding subscription keys use on the wire: base64url, no padding.
var b64 = base64.RawURLEncoding

// Keys is the key material behind one subscription.
type Keys struct {
	// Private is the UA's P-256 ECDH private key.
	Private *ecdh.PrivateKey
	// P256dh is the encoded uncompressed UA public key, as sent to the server.
	P256dh string
	// AuthSecret is the raw 16-byte auth secret.
	AuthSecret []byte
	// Auth is the encoded auth secret, as sent to the server.
	Auth string
}

// GenerateKeys creates fresh subscription key material.
func GenerateKeys() (*Keys, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("webpush: generate key: %w", err)
	}
	secret := make([]byte, authSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("webpush: generate auth secret: %w", err)
	}
	return &Keys{
		Private:    priv,
		P256dh:     b64.EncodeToString(priv.PublicKey().Bytes()),
		AuthSecret: secret,
		Auth:       b64.EncodeToString(secret),
	}, nil
}

// ParsePrivateKey restores a UA private key from its raw bytes (as persisted).
func ParsePrivateKey(raw []byte) (*ecdh.PrivateKey, error) {
	priv, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("webpush: parse private key: %w", err)
	}
	return priv, nil
}

// DecodeAuthSecret restores the raw auth secret from its encoded form.
func DecodeAuthSecret(encoded string) ([]byte, error) {
	raw, err := b64.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("webpush: decode auth secret: %w", err)
	}
	if len(raw) != authSecretLen {
		return nil, fmt.Errorf("webpush: auth secret is %d bytes, want %d", len(raw), authSecretLen)
	}
	return raw, nil
}
