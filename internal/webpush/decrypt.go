package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	saltLen      = 16
	pubKeyLen    = 65 // uncompressed P-256 point
	gcmTagLen    = 16
	headerMinLen = saltLen + 4 + 1
)

// ErrNotEncrypted is returned when the body does not carry a plausible aes128gcm
// header. The router treats such deliveries as cleartext payloads.
var ErrNotEncrypted = errors.New("webpush: body is not an aes128gcm message")

// Decrypt decrypts an aes128gcm push message for the subscription owning uaPriv and
// authSecret. Push messages are a single record, so exactly one block is decrypted.
func Decrypt(message []byte, uaPriv *ecdh.PrivateKey, authSecret []byte) ([]byte, error) {
	if len(message) < headerMinLen {
		return nil, ErrNotEncrypted
	}
	salt := message[:saltLen]
	rs := binary.BigEndian.Uint32(message[saltLen : saltLen+4])
	idLen := int(message[saltLen+4])
	if rs < gcmTagLen+1 || idLen != pubKeyLen || len(message) < headerMinLen+idLen {
		return nil, ErrNotEncrypted
	}
	asPub, err := ecdh.P256().NewPublicKey(message[headerMinLen : headerMinLen+idLen])
	if err != nil {
		return nil, ErrNotEncrypted
	}
	record := message[headerMinLen+idLen:]
	if len(record) < gcmTagLen+1 {
		return nil, fmt.Errorf("webpush: record too short")
	}

	cek, nonce, err := deriveContentKeys(uaPriv, asPub, authSecret, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	padded, err := gcm.Open(nil, nonce, record, nil)
	if err != nil {
		return nil, fmt.Errorf("webpush: decrypt: %w", err)
	}
	return stripPadding(padded)
}

// deriveContentKeys runs the RFC 8291 key schedule: ECDH, then HKDF with the auth
// secret, then HKDF with the message salt for the content key and nonce.
func deriveContentKeys(uaPriv *ecdh.PrivateKey, asPub *ecdh.PublicKey, authSecret, salt []byte) (cek, nonce []byte, err error) {
	shared, err := uaPriv.ECDH(asPub)
	if err != nil {
		return nil, nil, fmt.Errorf("webpush: ecdh: %w", err)
	}

	keyInfo := make([]byte, 0, 14+2*pubKeyLen)
	keyInfo = append(keyInfo, []byte("WebPush: info\x00")...)
	keyInfo = append(keyInfo, uaPriv.PublicKey().Bytes()...)
	keyInfo = append(keyInfo, asPub.Bytes()...)

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, authSecret, keyInfo), ikm); err != nil {
		return nil, nil, err
	}
	cek = make([]byte, 16)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: aes128gcm\x00")), cek); err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, 12)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: nonce\x00")), nonce); err != nil {
		return nil, nil, err
	}
	return cek, nonce, nil
}

// stripPadding removes the RFC 8188 record padding: trailing zeros preceded by the
// final-record delimiter 0x02.
func stripPadding(padded []byte) ([]byte, error) {
	i := len(padded) - 1
	for i >= 0 && padded[i] == 0x00 {
		i--
	}
	if i < 0 || padded[i] != 0x02 {
		return nil, errors.New("webpush: malformed record padding")
	}
	return padded[:i], nil
}
