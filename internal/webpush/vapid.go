package webpush

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyAuthorization checks an RFC 8292 `vapid t=<jwt>, k=<key>` header value.
// expectedKey, when non-empty, must match the header's k parameter (the server's
// advertised application key). audience, when non-empty, must match the token's aud.
func VerifyAuthorization(header, expectedKey, audience string) error {
	token, key, err := splitVAPID(header)
	if err != nil {
		return err
	}
	if expectedKey != "" && key != expectedKey {
		return errors.New("webpush: vapid key does not match the subscribed application key")
	}
	pub, err := parseECDSAPublicKey(key)
	if err != nil {
		return err
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"ES256"}), jwt.WithExpirationRequired()}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	_, err = jwt.Parse(token, func(t *jwt.Token) (any, error) { return pub, nil }, opts...)
	if err != nil {
		return fmt.Errorf("webpush: vapid token: %w", err)
	}
	return nil
}

// splitVAPID extracts the t and k parameters from the header value.
func splitVAPID(header string) (token, key string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(header), "vapid ")
	if !ok {
		return "", "", errors.New("webpush: not a vapid authorization header")
	}
	for _, part := range strings.Split(rest, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch name {
		case "t":
			token = value
		case "k":
			key = value
		}
	}
	if token == "" || key == "" {
		return "", "", errors.New("webpush: vapid header missing t or k parameter")
	}
	return token, key, nil
}

// parseECDSAPublicKey decodes an uncompressed P-256 point from its base64url form.
func parseECDSAPublicKey(encoded string) (*ecdsa.PublicKey, error) {
	raw, err := b64.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("webpush: decode vapid key: %w", err)
	}
	if len(raw) != pubKeyLen || raw[0] != 0x04 {
		return nil, errors.New("webpush: vapid key is not an uncompressed P-256 point")
	}
	x := new(big.Int).SetBytes(raw[1:33])
	y := new(big.Int).SetBytes(raw[33:])
	if !elliptic.P256().IsOnCurve(x, y) {
		return nil, errors.New("webpush: vapid key is not on the curve")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}
