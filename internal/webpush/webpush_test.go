package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

func TestGenerateKeysShape(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	pub, err := b64.DecodeString(keys.P256dh)
	if err != nil {
		t.Fatalf("p256dh is not unpadded base64url: %v", err)
	}
	if len(pub) != 65 || pub[0] != 0x04 {
		t.Errorf("p256dh decodes to %d bytes (lead 0x%02x), want 65-byte uncompressed point", len(pub), pub[0])
	}
	auth, err := b64.DecodeString(keys.Auth)
	if err != nil || len(auth) != 16 {
		t.Errorf("auth decodes to %d bytes (%v), want 16", len(auth), err)
	}

	restored, err := ParsePrivateKey(keys.Private.Bytes())
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if !restored.Equal(keys.Private) {
		t.Error("restored private key differs")
	}
}

// encrypt builds an aes128gcm message the way an application server would, using the
// same key schedule from the sender side.
func encrypt(t *testing.T, plaintext []byte, uaPub *ecdh.PublicKey, authSecret []byte) []byte {
	t.Helper()
	asPriv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		t.Fatal(err)
	}

	// Mirror the RFC 8291 key schedule from the sender's perspective.
	shared, err := asPriv.ECDH(uaPub)
	if err != nil {
		t.Fatal(err)
	}
	keyInfo := append([]byte("WebPush: info\x00"), append(uaPub.Bytes(), asPriv.PublicKey().Bytes()...)...)
	cek, nonce := deriveForTest(t, shared, authSecret, salt, keyInfo)

	block, err := aes.NewCipher(cek)
	if err != nil {
		t.Fatal(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	padded := append(append([]byte{}, plaintext...), 0x02, 0x00, 0x00)
	record := gcm.Seal(nil, nonce, padded, nil)

	msg := make([]byte, 0, 16+4+1+65+len(record))
	msg = append(msg, salt...)
	msg = binary.BigEndian.AppendUint32(msg, 4096)
	msg = append(msg, byte(65))
	msg = append(msg, asPriv.PublicKey().Bytes()...)
	return append(msg, record...)
}

func deriveForTest(t *testing.T, shared, authSecret, salt, keyInfo []byte) (cek, nonce []byte) {
	t.Helper()
	ikm := hkdfRead(t, shared, authSecret, keyInfo, 32)
	cek = hkdfRead(t, ikm, salt, []byte("Content-Encoding: aes128gcm\x00"), 16)
	nonce = hkdfRead(t, ikm, salt, []byte("Content-Encoding: nonce\x00"), 12)
	return cek, nonce
}

func hkdfRead(t *testing.T, secret, salt, info []byte, n int) []byte {
	t.Helper()
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestDecryptRoundTrip(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatal(err)
	}
	plaintext := []byte(`{"title":"Family Radio","body":"Now playing: Song","url":"/#playing"}`)
	msg := encrypt(t, plaintext, keys.Private.PublicKey(), keys.AuthSecret)

	got, err := Decrypt(msg, keys.Private, keys.AuthSecret)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("Decrypt = %q, want %q", got, plaintext)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	keys, _ := GenerateKeys()
	other, _ := GenerateKeys()
	msg := encrypt(t, []byte("hello"), keys.Private.PublicKey(), keys.AuthSecret)
	if _, err := Decrypt(msg, other.Private, other.AuthSecret); err == nil {
		t.Fatal("expected decrypt failure with the wrong subscription keys")
	}
}

func TestDecryptRejectsCleartext(t *testing.T) {
	keys, _ := GenerateKeys()
	if _, err := Decrypt([]byte(`{"title":"x"}`), keys.Private, keys.AuthSecret); err == nil {
		t.Fatal("expected ErrNotEncrypted for a short cleartext body")
	}
}

func TestVerifyAuthorization(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	pubPoint := elliptic.Marshal(elliptic.P256(), priv.PublicKey.X, priv.PublicKey.Y)
	key := b64.EncodeToString(pubPoint)

	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"aud": "https://push.example.net",
		"sub": "mailto:admin@radio.example.net",
		"exp": time.Now().Add(12 * time.Hour).Unix(),
	})
	signed, err := tok.SignedString(priv)
	if err != nil {
		t.Fatal(err)
	}
	header := "vapid t=" + signed + ", k=" + key

	if err := VerifyAuthorization(header, key, "https://push.example.net"); err != nil {
		t.Fatalf("VerifyAuthorization: %v", err)
	}
	if err := VerifyAuthorization(header, key, "https://other.example.net"); err == nil {
		t.Error("expected audience mismatch to fail")
	}
	if err := VerifyAuthorization(header, "AAAA", ""); err == nil {
		t.Error("expected key mismatch to fail")
	}
	if err := VerifyAuthorization("Bearer xyz", key, ""); err == nil {
		t.Error("expected non-vapid header to fail")
	}
}
