package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/emberloop/ember/domain"
)

// sealedFormatVersion identifies the sealed payload layout. Bump on any
// incompatible change so old blobs fail loudly instead of decoding garbage.
const sealedFormatVersion = 1

// Cipher wraps AES-256-GCM envelope encryption for stored payloads. The key
// id and version ride inside every sealed blob so key rotation can tell which
// key opens which payload; rotation itself is the key manager's concern.
type Cipher struct {
	keyID      string
	keyVersion int
	aead       cipher.AEAD
}

// sealed is the JSON carried in an encrypted envelope payload. Nonce and
// ciphertext (tag included, GCM appends it) are base64.
type sealed struct {
	V          int    `json:"v"`
	KeyID      string `json:"kid"`
	KeyVersion int    `json:"kver"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ct"`
}

// NewCipher builds a Cipher from a 32-byte AES-256 key.
func NewCipher(keyID string, keyVersion int, key []byte) (*Cipher, error) {
	if keyID == "" {
		return nil, fmt.Errorf("store: cipher key id is required")
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("store: encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("store: create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("store: create GCM: %w", err)
	}
	return &Cipher{keyID: keyID, keyVersion: keyVersion, aead: aead}, nil
}

// NewCipherFromBase64 builds a Cipher from a base64-encoded 32-byte key, the
// form keys arrive in from configuration.
func NewCipherFromBase64(keyID string, keyVersion int, encodedKey string) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("store: invalid base64 encryption key: %w", err)
	}
	return NewCipher(keyID, keyVersion, key)
}

// Encrypt seals plaintext into the JSON payload stored inside an envelope.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("store: generate nonce: %w", err)
	}
	ct := c.aead.Seal(nil, nonce, plaintext, nil)
	blob, err := json.Marshal(sealed{
		V:          sealedFormatVersion,
		KeyID:      c.keyID,
		KeyVersion: c.keyVersion,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	})
	if err != nil {
		return "", fmt.Errorf("store: marshal sealed payload: %w", err)
	}
	return string(blob), nil
}

// Decrypt opens a sealed payload. Every failure mode maps to
// DECRYPTION_FAILURE; the store never silently repairs undecryptable data.
func (c *Cipher) Decrypt(payload string) ([]byte, error) {
	var s sealed
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, domain.WrapError(domain.KindDecryption, err, "malformed sealed payload")
	}
	if s.V != sealedFormatVersion {
		return nil, domain.NewError(domain.KindDecryption, "unsupported sealed payload version %d", s.V)
	}
	if s.KeyID != c.keyID {
		return nil, domain.NewError(domain.KindDecryption, "payload sealed with key %q, cipher holds %q", s.KeyID, c.keyID)
	}
	nonce, err := base64.StdEncoding.DecodeString(s.Nonce)
	if err != nil {
		return nil, domain.WrapError(domain.KindDecryption, err, "malformed nonce")
	}
	if len(nonce) != c.aead.NonceSize() {
		return nil, domain.NewError(domain.KindDecryption, "nonce length %d, want %d", len(nonce), c.aead.NonceSize())
	}
	ct, err := base64.StdEncoding.DecodeString(s.Ciphertext)
	if err != nil {
		return nil, domain.WrapError(domain.KindDecryption, err, "malformed ciphertext")
	}
	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, domain.WrapError(domain.KindDecryption, err, "open sealed payload")
	}
	return plain, nil
}
