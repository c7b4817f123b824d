package store

import (
	"context"

	"github.com/jrsteele09/go-admin-auth/internal/errors"
	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx   context.Context
	store *Store
}

var _ oauth2.TokenSource = tokenSource{}

// TokenSource exposes the persisted access token as an oauth2.TokenSource. The token is
// re-read on every call so refreshes and logouts take effect immediately. Expiry is not
// enforced here; the resource API decides whether a token is still acceptable.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, store: s}
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	access, ok := ts.store.AccessToken(ts.ctx)
	if !ok {
		return nil, errors.ErrNoAccessToken
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if exp, ok := ts.store.ExpiresAt(ts.ctx); ok {
		tok.Expiry = exp
	}
	return tok, nil
}
