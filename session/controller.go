// Package session owns the auth session: login, registration, verification against the
// resource API with proactive refresh, and logout.
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/internal/errors"
	"github.com/jrsteele09/go-admin-auth/internal/obs"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
	"github.com/jrsteele09/go-admin-auth/token/inspect"
	"github.com/jrsteele09/go-admin-auth/token/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is the part of the application config the controller reads.
type Config interface {
	config.SessionConfig
	GetLoginPath() string
}

// Navigator performs the hard redirect that follows a logout.
type Navigator interface {
	HardRedirect(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) HardRedirect(path string) { f(path) }

type noopNavigator struct{}

func (noopNavigator) HardRedirect(string) {}

// snapshot is the persisted aggregate stored under store.KeySessionSnapshot.
type snapshot struct {
	User            *resourceapi.User `json:"user"`
	AccessToken     string            `json:"accessToken"`
	RefreshToken    string            `json:"refreshToken"`
	IsAuthenticated bool              `json:"isAuthenticated"`
}

// Controller orchestrates the session lifecycle. Login and Logout are expected to be
// serialised by the caller; CheckAuth may run concurrently, last write wins.
type Controller struct {
	api       resourceapi.API
	tokens    *store.Store
	inspector *inspect.Inspector
	state     *Observable
	navigator Navigator

	loginPath     string
	notifyTimeout time.Duration
	nowTime       func() time.Time
	log           zerolog.Logger

	pending sync.WaitGroup
}

type Option func(*Controller)

// WithNowTime sets the clock used for token validity checks (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

func WithNavigator(n Navigator) Option {
	return func(c *Controller) {
		c.navigator = n
	}
}

// New creates a controller and rehydrates the session from the persisted snapshot when
// it agrees with the stored access token.
func New(api resourceapi.API, tokens *store.Store, cfg Config, options ...Option) *Controller {
	c := &Controller{
		api:           api,
		tokens:        tokens,
		navigator:     noopNavigator{},
		loginPath:     cfg.GetLoginPath(),
		notifyTimeout: cfg.GetLogoutNotifyTimeout(),
		nowTime:       time.Now,
		log:           log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	c.inspector = inspect.NewInspector(tokens, cfg, inspect.WithNowTime(c.nowTime))
	c.state = newObservable(c.rehydrate(context.Background()))
	return c
}

// State returns a copy of the current session state.
func (c *Controller) State() State {
	return c.state.Get()
}

// Subscribe registers fn for every subsequent state change.
func (c *Controller) Subscribe(fn Listener) (unsubscribe func()) {
	return c.state.Subscribe(fn)
}

func (c *Controller) Inspector() *inspect.Inspector {
	return c.inspector
}

// Login authenticates with the resource API and persists the issued tokens. On success
// IsLoading stays true until SettleLoading is called, normally by the route guard once
// it has redirected away from the login page. On failure nothing is persisted and the
// returned *AuthError carries a user-facing message.
func (c *Controller) Login(ctx context.Context, credentials resourceapi.LoginRequest) error {
	c.state.update(startLoading, false)

	resp, err := c.api.Login(ctx, credentials)
	if err == nil && resp.AccessToken == "" {
		err = resourceapi.NewAPIError(http.StatusBadGateway, MsgLoginFailed, "missing access token")
	}
	if err != nil {
		c.state.update(stopLoading, false)
		authErr := loginError(err)
		obs.RecordAuth(OpLogin, err)
		c.log.Info().
			Str("username", credentials.Username).
			Str("kind", authErr.Kind.String()).
			Int("code", authErr.Code).
			Msg("login failed")
		return authErr
	}

	expiresAt := c.tokens.SetTokens(ctx, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn)
	user := resp.User
	next := c.state.update(func(s *State) {
		*s = State{
			User:             &user,
			AccessToken:      resp.AccessToken,
			RefreshToken:     resp.RefreshToken,
			TokenExpiresAt:   expiresAt,
			IsAuthenticated:  true,
			IsLoading:        true,
			AwaitingRedirect: true,
		}
	}, false)
	c.persist(ctx, next)

	obs.RecordAuth(OpLogin, nil)
	c.log.Info().Str("username", user.Username).Str("role", user.Role).Msg("login succeeded")
	return nil
}

// SettleLoading ends the post-login loading state. The route guard calls it once the
// post-login redirect has been issued. It does nothing while a request is in flight,
// so a check in progress keeps the session indeterminate.
func (c *Controller) SettleLoading() {
	if !c.state.Get().AwaitingRedirect {
		return
	}
	c.state.update(func(s *State) {
		if s.AwaitingRedirect {
			stopLoading(s)
		}
	}, false)
}

// startLoading marks a request in flight. It supersedes a pending post-login redirect.
func startLoading(s *State) {
	s.IsLoading = true
	s.AwaitingRedirect = false
}

func stopLoading(s *State) {
	s.IsLoading = false
	s.AwaitingRedirect = false
}

// Register creates an account. It never authenticates the caller.
func (c *Controller) Register(ctx context.Context, data resourceapi.RegisterRequest) (*resourceapi.User, error) {
	c.state.update(startLoading, false)
	defer c.state.update(stopLoading, false)

	user, err := c.api.Register(ctx, data)
	obs.RecordAuth(OpRegister, err)
	if err != nil {
		authErr := registerError(err)
		c.log.Info().Str("username", data.Username).Str("kind", authErr.Kind.String()).Msg("registration failed")
		return nil, authErr
	}
	c.log.Info().Str("username", data.Username).Msg("registration succeeded")
	return user, nil
}

// CheckAuth reconciles the session with the persisted tokens and the resource API. It
// reads the token store rather than memory, refreshes at most once when the access
// token is close to expiry, and always re-fetches the current user. Every failure
// collapses to an unauthenticated session; nothing is returned to the caller but the
// resulting state.
func (c *Controller) CheckAuth(ctx context.Context) State {
	if _, ok := c.tokens.AccessToken(ctx); !ok {
		c.log.Debug().Msg("no access token, session reset")
		return c.state.update(func(s *State) { *s = State{} }, false)
	}

	c.state.update(startLoading, false)

	if c.inspector.IsTokenExpiringSoon(ctx) {
		if refreshToken, ok := c.tokens.RefreshToken(ctx); ok {
			if err := c.refresh(ctx, refreshToken); err != nil {
				obs.RecordAuth(OpCheckAuth, err)
				c.log.Info().Err(err).Msg("token refresh failed, session purged")
				return c.purge(ctx)
			}
		}
	}

	user, err := c.api.GetCurrentUser(ctx)
	if err == nil && user == nil {
		err = errors.ErrSessionInvalid
	}
	if err != nil {
		obs.RecordAuth(OpCheckAuth, err)
		c.log.Info().Err(err).Str("kind", resourceapi.KindOf(err).String()).Msg("session could not be verified, purged")
		return c.purge(ctx)
	}

	access, ok := c.tokens.AccessToken(ctx)
	if !ok {
		// Tokens vanished while the user was being fetched.
		obs.RecordAuth(OpCheckAuth, errors.ErrNoAccessToken)
		return c.state.update(func(s *State) { *s = State{} }, false)
	}
	refreshToken, _ := c.tokens.RefreshToken(ctx)
	expiresAt, _ := c.tokens.ExpiresAt(ctx)

	verified := *user
	next := c.state.update(func(s *State) {
		*s = State{
			User:            &verified,
			AccessToken:     access,
			RefreshToken:    refreshToken,
			TokenExpiresAt:  expiresAt,
			IsAuthenticated: true,
		}
	}, false)
	c.persist(ctx, next)

	obs.RecordAuth(OpCheckAuth, nil)
	c.log.Debug().Str("username", verified.Username).Msg("session verified")
	return next
}

func (c *Controller) refresh(ctx context.Context, refreshToken string) error {
	resp, err := c.api.RefreshToken(ctx, refreshToken)
	if err == nil && resp.AccessToken == "" {
		err = errors.ErrNoAccessToken
	}
	obs.RecordRefresh(err)
	if err != nil {
		return errors.Wrapf(err, "[Controller.refresh]")
	}

	expiresAt := c.tokens.UpdateAccessToken(ctx, resp.AccessToken, resp.ExpiresIn)
	c.state.update(func(s *State) {
		s.AccessToken = resp.AccessToken
		s.TokenExpiresAt = expiresAt
	}, false)
	c.log.Debug().Time("expires_at", expiresAt).Msg("access token refreshed")
	return nil
}

// purge drops the persisted tokens and resets the session.
func (c *Controller) purge(ctx context.Context) State {
	c.tokens.RemoveTokens(ctx)
	return c.state.update(func(s *State) { *s = State{} }, false)
}

// Logout tears the session down. Tokens and state are cleared before Logout returns;
// the server is notified in the background and its answer is ignored. Subscribers see
// an Invalidated change, then the navigator is sent to the login page.
func (c *Controller) Logout(ctx context.Context) {
	access, _ := c.tokens.AccessToken(ctx)
	refreshToken, _ := c.tokens.RefreshToken(ctx)
	if access == "" {
		access = c.state.Get().AccessToken
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
		defer cancel()
		if access != "" {
			notifyCtx = resourceapi.WithBearerToken(notifyCtx, access)
		}
		if err := c.api.Logout(notifyCtx, refreshToken); err != nil {
			c.log.Debug().Err(err).Msg("logout notification failed")
		}
	}()

	c.tokens.RemoveTokens(ctx)
	c.state.update(func(s *State) { *s = State{} }, true)
	obs.RecordAuth(OpLogout, nil)
	c.log.Info().Msg("logged out")

	c.navigator.HardRedirect(c.loginPath)
}

// Close waits for outstanding logout notifications.
func (c *Controller) Close() {
	c.pending.Wait()
}

func (c *Controller) persist(ctx context.Context, s State) {
	if !s.IsAuthenticated {
		return
	}
	data, err := json.Marshal(snapshot{
		User:            s.User,
		AccessToken:     s.AccessToken,
		RefreshToken:    s.RefreshToken,
		IsAuthenticated: true,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to encode session snapshot")
		return
	}
	c.tokens.SaveSnapshot(ctx, data)
}

// rehydrate restores an authenticated session from the snapshot, trusting it only when
// the token store still holds the same access token.
func (c *Controller) rehydrate(ctx context.Context) State {
	raw, ok := c.tokens.Snapshot(ctx)
	if !ok {
		return State{}
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.log.Warn().Err(err).Msg("ignoring unreadable session snapshot")
		return State{}
	}
	access, ok := c.tokens.AccessToken(ctx)
	if !snap.IsAuthenticated || snap.User == nil || !ok || access != snap.AccessToken {
		return State{}
	}
	refreshToken, _ := c.tokens.RefreshToken(ctx)
	expiresAt, _ := c.tokens.ExpiresAt(ctx)
	return State{
		User:            snap.User,
		AccessToken:     access,
		RefreshToken:    refreshToken,
		TokenExpiresAt:  expiresAt,
		IsAuthenticated: true,
	}
}
