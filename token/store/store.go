// Package store persists the access token, refresh token and access token expiry.
//
// Every operation is best effort: when no durable backend is configured, or the backend
// fails, reads report absence and writes are dropped. Nothing here returns an error.
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stable storage keys
const (
	KeyAccessToken     = "access-token"
	KeyRefreshToken    = "refresh-token"
	KeyTokenExpiresAt  = "token-expires-at"
	KeySessionSnapshot = "auth-storage"
)

// Backend is a durable key-value store. SetMany must write all values or none.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store reads and writes the persisted token record.
type Store struct {
	backend Backend
	nowTime func() time.Time
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New creates a Store over backend. A nil backend yields a store with no durable
// storage, where every read is absent and every write is a no-op.
func New(backend Backend, options ...Option) *Store {
	s := &Store{
		backend: backend,
		nowTime: time.Now,
		log:     log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Available reports whether the store has a durable backend.
func (s *Store) Available() bool {
	return s != nil && s.backend != nil
}

// ExpiryFrom derives an absolute expiry from an issue time and a lifetime in seconds,
// truncated to millisecond precision.
func ExpiryFrom(issuedAt time.Time, expiresInSeconds int64) time.Time {
	return time.UnixMilli(issuedAt.UnixMilli() + expiresInSeconds*1000)
}

func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.get(ctx, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.get(ctx, KeyRefreshToken)
}

// ExpiresAt returns the persisted access token expiry.
func (s *Store) ExpiresAt(ctx context.Context) (time.Time, bool) {
	raw, ok := s.get(ctx, KeyTokenExpiresAt)
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.log.Warn().Str("key", KeyTokenExpiresAt).Msg("unparseable expiry, treating as absent")
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// SetTokens persists all three values together, overwriting anything stored before,
// and returns the computed expiry.
func (s *Store) SetTokens(ctx context.Context, accessToken, refreshToken string, expiresInSeconds int64) time.Time {
	expiresAt := ExpiryFrom(s.nowTime(), expiresInSeconds)
	s.set(ctx, map[string]string{
		KeyAccessToken:    accessToken,
		KeyRefreshToken:   refreshToken,
		KeyTokenExpiresAt: formatMillis(expiresAt),
	})
	return expiresAt
}

// UpdateAccessToken replaces the access token and its expiry, leaving the refresh token alone.
func (s *Store) UpdateAccessToken(ctx context.Context, accessToken string, expiresInSeconds int64) time.Time {
	expiresAt := ExpiryFrom(s.nowTime(), expiresInSeconds)
	s.set(ctx, map[string]string{
		KeyAccessToken:    accessToken,
		KeyTokenExpiresAt: formatMillis(expiresAt),
	})
	return expiresAt
}

// RemoveTokens deletes the token record and the session snapshot. Idempotent.
func (s *Store) RemoveTokens(ctx context.Context) {
	if !s.Available() {
		return
	}
	if err := s.backend.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyTokenExpiresAt, KeySessionSnapshot); err != nil {
		s.log.Warn().Err(err).Msg("failed to remove tokens")
	}
}

// Snapshot returns the raw session snapshot.
func (s *Store) Snapshot(ctx context.Context) ([]byte, bool) {
	raw, ok := s.get(ctx, KeySessionSnapshot)
	if !ok {
		return nil, false
	}
	return []byte(raw), true
}

func (s *Store) SaveSnapshot(ctx context.Context, data []byte) {
	s.set(ctx, map[string]string{KeySessionSnapshot: string(data)})
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	if !s.Available() {
		return "", false
	}
	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("token storage read failed")
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *Store) set(ctx context.Context, values map[string]string) {
	if !s.Available() {
		return
	}
	if err := s.backend.SetMany(ctx, values); err != nil {
		s.log.Warn().Err(err).Int("keys", len(values)).Msg("token storage write failed")
	}
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
