package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/emberloop/ember/domain"
)

// Envelope wraps every stored value. Payload holds the entity JSON, or a
// sealed blob when Encrypted. IntegrityHash is computed over the plaintext
// so corruption is caught whether or not encryption is on.
type Envelope struct {
	// Payload is the entity JSON, or the sealed ciphertext JSON when
	// Encrypted is true.
	Payload string `json:"payload"`
	// Encrypted marks Payload as a sealed blob.
	Encrypted bool `json:"encrypted,omitempty"`
	// IntegrityHash is the hex SHA-256 of the plaintext payload.
	IntegrityHash string `json:"integrityHash"`
	// Version is the monotonic per-entity counter. 1 on create.
	Version int64 `json:"version"`
	// CreatedAt is when the entity was first stored.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is when this version was stored.
	UpdatedAt time.Time `json:"updatedAt"`
}

// integrityHash fingerprints the serialized plaintext.
func integrityHash(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// seal builds the raw envelope string for a plaintext entity payload.
func (s *Store) seal(plaintext []byte, version int64, createdAt, updatedAt time.Time) (string, error) {
	env := Envelope{
		Payload:       string(plaintext),
		IntegrityHash: integrityHash(plaintext),
		Version:       version,
		CreatedAt:     createdAt.UTC(),
		UpdatedAt:     updatedAt.UTC(),
	}
	if s.cipher != nil {
		ct, err := s.cipher.Encrypt(plaintext)
		if err != nil {
			return "", domain.WrapError(domain.KindBackend, err, "encrypt payload")
		}
		env.Payload = ct
		env.Encrypted = true
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", domain.WrapError(domain.KindBackend, err, "marshal envelope")
	}
	return string(raw), nil
}

// open parses a raw envelope string, decrypts when needed, and verifies the
// integrity hash. It returns the plaintext and the parsed envelope.
func (s *Store) open(key, raw string) ([]byte, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, env, domain.WrapError(domain.KindIntegrity, err, "malformed envelope at %s", key)
	}
	plaintext := []byte(env.Payload)
	if env.Encrypted {
		if s.cipher == nil {
			return nil, env, domain.NewError(domain.KindDecryption, "encrypted payload at %s but no cipher configured", key)
		}
		var err error
		plaintext, err = s.cipher.Decrypt(env.Payload)
		if err != nil {
			return nil, env, err
		}
	}
	if got := integrityHash(plaintext); got != env.IntegrityHash {
		return nil, env, domain.NewError(domain.KindIntegrity, "integrity hash mismatch at %s", key)
	}
	return plaintext, env, nil
}
