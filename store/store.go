package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/telemetry"
)

const (
	// DefaultCompletedGoalTTL expires completed and abandoned goals.
	DefaultCompletedGoalTTL = 24 * time.Hour
	// DefaultExpiredReminderTTL expires reminders that left pending.
	DefaultExpiredReminderTTL = time.Hour
)

// Store is the encrypted entity store. All entity persistence flows through
// it: envelope sealing, integrity hashing, optimistic versioning, index
// maintenance, TTL stamping, and cascade delete.
type Store struct {
	kv     KV
	cipher *Cipher
	log    telemetry.Logger
	clock  func() time.Time

	completedGoalTTL   time.Duration
	expiredReminderTTL time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithCipher enables encryption at rest. Without it payloads are stored as
// plaintext JSON inside the envelope (still integrity-hashed).
func WithCipher(c *Cipher) Option {
	return func(s *Store) { s.cipher = c }
}

// WithLogger installs the store's logger.
func WithLogger(l telemetry.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the envelope timestamp source. Tests use it to pin
// time.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithCompletedGoalTTL overrides the TTL stamped on terminal goals.
func WithCompletedGoalTTL(d time.Duration) Option {
	return func(s *Store) { s.completedGoalTTL = d }
}

// WithExpiredReminderTTL overrides the TTL stamped on terminal reminders.
func WithExpiredReminderTTL(d time.Duration) Option {
	return func(s *Store) { s.expiredReminderTTL = d }
}

// New builds a Store on the given KV backend.
func New(kv KV, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, domain.NewError(domain.KindValidation, "store requires a KV backend")
	}
	s := &Store{
		kv:                 kv,
		log:                telemetry.NewNoopLogger(),
		clock:              time.Now,
		completedGoalTTL:   DefaultCompletedGoalTTL,
		expiredReminderTTL: DefaultExpiredReminderTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// saveRaw runs the optimistic-concurrency write protocol for one key.
//
// marshal is called with the version the write will carry and must return the
// plaintext payload. On create the version is 1; on update it is the stored
// version + 1. When expectedVersion is positive and does not match the stored
// version the write fails with VERSION_CONFLICT before marshal runs. Races
// lost to concurrent writers also surface as VERSION_CONFLICT: exactly one of
// two concurrent writers wins.
func (s *Store) saveRaw(ctx context.Context, key string, expectedVersion int64, ttl time.Duration, marshal func(version int64) ([]byte, error)) (int64, error) {
	prev, exists, err := s.kv.Get(ctx, key)
	if err != nil {
		return 0, domain.WrapError(domain.KindBackend, err, "read %s", key)
	}

	if !exists {
		if expectedVersion > 0 {
			return 0, domain.NewError(domain.KindVersionConflict,
				"%s: expected version %d but entity does not exist", key, expectedVersion)
		}
		plaintext, err := marshal(1)
		if err != nil {
			return 0, domain.WrapError(domain.KindBackend, err, "marshal %s", key)
		}
		now := s.clock()
		raw, err := s.seal(plaintext, 1, now, now)
		if err != nil {
			return 0, err
		}
		ok, err := s.kv.SetNX(ctx, key, raw, ttl)
		if err != nil {
			return 0, domain.WrapError(domain.KindBackend, err, "create %s", key)
		}
		if !ok {
			return 0, domain.NewError(domain.KindVersionConflict, "%s was created concurrently", key)
		}
		return 1, nil
	}

	var env Envelope
	if err := json.Unmarshal([]byte(prev), &env); err != nil {
		return 0, domain.WrapError(domain.KindIntegrity, err, "malformed envelope at %s", key)
	}
	if expectedVersion > 0 && expectedVersion != env.Version {
		return 0, domain.NewError(domain.KindVersionConflict,
			"%s: expected version %d, stored version %d", key, expectedVersion, env.Version)
	}

	next := env.Version + 1
	plaintext, err := marshal(next)
	if err != nil {
		return 0, domain.WrapError(domain.KindBackend, err, "marshal %s", key)
	}
	raw, err := s.seal(plaintext, next, env.CreatedAt, s.clock())
	if err != nil {
		return 0, err
	}
	ok, err := s.kv.CompareAndSwap(ctx, key, prev, raw, ttl)
	if err != nil {
		return 0, domain.WrapError(domain.KindBackend, err, "write %s", key)
	}
	if !ok {
		return 0, domain.NewError(domain.KindVersionConflict, "%s was modified concurrently", key)
	}
	return next, nil
}

// getRaw loads, opens, and verifies the envelope at key. Missing keys return
// NOT_FOUND.
func (s *Store) getRaw(ctx context.Context, key string) ([]byte, Envelope, error) {
	raw, exists, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, Envelope{}, domain.WrapError(domain.KindBackend, err, "read %s", key)
	}
	if !exists {
		return nil, Envelope{}, domain.NewError(domain.KindNotFound, "%s not found", key)
	}
	return s.open(key, raw)
}

// rollbackEntity removes a freshly written entity after an index write
// failed, so the store never leaves an entity visible with half-written
// indices. The delete error, if any, is logged and dropped: the original
// index failure is the one the caller needs.
func (s *Store) rollbackEntity(ctx context.Context, key string, cause error) {
	if _, err := s.kv.Delete(ctx, key); err != nil {
		s.log.Error(ctx, "index rollback failed", "key", key, "cause", cause, "rollbackError", err)
		return
	}
	s.log.Warn(ctx, "rolled back entity after index failure", "key", key, "cause", cause)
}

// loadInto unmarshals an opened payload into a typed entity and stamps the
// envelope's version onto it.
func loadInto[T any](plaintext []byte, env Envelope, setVersion func(*T, int64)) (*T, error) {
	var entity T
	if err := json.Unmarshal(plaintext, &entity); err != nil {
		return nil, domain.WrapError(domain.KindIntegrity, err, "decode entity payload")
	}
	setVersion(&entity, env.Version)
	return &entity, nil
}
