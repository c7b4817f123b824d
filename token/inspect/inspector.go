package inspect

import (
	"context"
	"time"

	"github.com/jrsteele09/go-admin-auth/internal/config"
)

// TokenReader is the read side of the token store.
type TokenReader interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	ExpiresAt(ctx context.Context) (time.Time, bool)
}

// Inspector answers validity questions about the persisted tokens.
type Inspector struct {
	tokens         TokenReader
	validityMargin time.Duration
	refreshWindow  time.Duration
	nowTime        func() time.Time
}

type Option func(*Inspector)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(i *Inspector) {
		i.nowTime = nowFunc
	}
}

func NewInspector(tokens TokenReader, cfg config.SessionConfig, options ...Option) *Inspector {
	i := &Inspector{
		tokens:         tokens,
		validityMargin: cfg.GetValidityMargin(),
		refreshWindow:  cfg.GetRefreshWindow(),
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// IsAccessTokenValid is true when an access token and an expiry are stored and the
// expiry is more than the validity margin away.
func (i *Inspector) IsAccessTokenValid(ctx context.Context) bool {
	if _, ok := i.tokens.AccessToken(ctx); !ok {
		return false
	}
	expiresAt, ok := i.tokens.ExpiresAt(ctx)
	if !ok {
		return false
	}
	return i.nowTime().Before(expiresAt.Add(-i.validityMargin))
}

// IsTokenExpiringSoon is true when the stored expiry falls inside the refresh window.
func (i *Inspector) IsTokenExpiringSoon(ctx context.Context) bool {
	expiresAt, ok := i.tokens.ExpiresAt(ctx)
	if !ok {
		return false
	}
	return !i.nowTime().Add(i.refreshWindow).Before(expiresAt)
}

// HasUsableCredentials is true with a valid access token, or with any refresh token
// that could mint one.
func (i *Inspector) HasUsableCredentials(ctx context.Context) bool {
	if i.IsAccessTokenValid(ctx) {
		return true
	}
	_, ok := i.tokens.RefreshToken(ctx)
	return ok
}

// CurrentClaimsUser decodes the stored access token into its display claims.
func (i *Inspector) CurrentClaimsUser(ctx context.Context) (ClaimsUser, bool) {
	access, ok := i.tokens.AccessToken(ctx)
	if !ok {
		return ClaimsUser{}, false
	}
	claims, err := DecodePayload(access)
	if err != nil {
		return ClaimsUser{}, false
	}
	return claims.User(), true
}

// IsTokenExpired reads exp from the token itself. Tokens without a readable exp count
// as expired.
func (i *Inspector) IsTokenExpired(token string) bool {
	claims, err := DecodePayload(token)
	if err != nil {
		return true
	}
	exp, ok := claims.Int64("exp")
	if !ok {
		return true
	}
	return exp < i.nowTime().Unix()
}
