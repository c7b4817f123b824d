package resourceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-admin-auth/internal/config"
	autherrors "github.com/jrsteele09/go-admin-auth/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	maxResponseBytes = 1 << 20
	requestIDHeader  = "X-Request-ID"
)

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client talks JSON to the REST backend. Public auth endpoints go out bare; everything
// else carries the bearer token from the configured token source.
type Client struct {
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
	limiter   *rate.Limiter
	log       zerolog.Logger

	public *http.Client
	authed *http.Client
}

var _ API = (*Client)(nil)

type ClientOption func(*Client)

// WithTransport replaces the underlying round tripper (primarily for testing)
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// WithRateLimit overrides the configured request throttle. A zero limit disables it.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		if limit == 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewClient creates a client for cfg's base URL. tokens supplies the bearer token for
// protected calls; it is consulted on every request.
func NewClient(cfg config.APIConfig, tokens oauth2.TokenSource, options ...ClientOption) *Client {
	c := &Client{
		baseURL:   cfg.GetAPIBaseURL(),
		timeout:   cfg.GetAPITimeout(),
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Limit(cfg.GetAPIRateLimit()), cfg.GetAPIRateBurst()),
		log:       log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}

	c.public = &http.Client{Timeout: c.timeout, Transport: c.transport}
	c.authed = &http.Client{Timeout: c.timeout, Transport: bearerTransport{
		base:     c.transport,
		fallback: &oauth2.Transport{Source: tokens, Base: c.transport},
	}}
	return c
}

type bearerKey struct{}

// WithBearerToken pins the bearer token for protected calls made with ctx instead of
// reading it from the token source. Logout uses it to notify the server after the
// stored tokens are already gone.
func WithBearerToken(ctx context.Context, accessToken string) context.Context {
	return context.WithValue(ctx, bearerKey{}, accessToken)
}

// BearerTokenFrom returns the token pinned by WithBearerToken.
func BearerTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerKey{}).(string)
	return token, ok && token != ""
}

type bearerTransport struct {
	base     http.RoundTripper
	fallback http.RoundTripper
}

func (t bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok := BearerTokenFrom(req.Context())
	if !ok {
		return t.fallback.RoundTrip(req)
	}
	pinned := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   t.base,
	}
	return pinned.RoundTrip(req)
}

func (c *Client) Login(ctx context.Context, credentials LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, c.public, http.MethodPost, PathLogin, nil, credentials, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, data RegisterRequest) (*User, error) {
	var user User
	if err := c.do(ctx, c.public, http.MethodPost, PathRegister, nil, data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.do(ctx, c.public, http.MethodPost, PathRefresh, nil, refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, c.authed, http.MethodPost, PathLogout, nil, refreshRequest{RefreshToken: refreshToken}, nil)
}

func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, c.authed, http.MethodGet, PathCurrentUser, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GenerateCaptcha(ctx context.Context) (*Captcha, error) {
	var captcha Captcha
	if err := c.do(ctx, c.public, http.MethodGet, PathCaptcha, nil, nil, &captcha); err != nil {
		return nil, err
	}
	return &captcha, nil
}

// ListUsers fetches one page of the user directory.
func (c *Client) ListUsers(ctx context.Context, page, pageSize int) ([]User, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	var users []User
	if err := c.Get(ctx, PathUsers, query, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Get performs an authenticated GET and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, c.authed, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, c.authed, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, c.authed, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.authed, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return NetworkError(err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return autherrors.Wrapf(autherrors.ErrInvalidRequest, "[Client.do] marshal %s %s: %s", method, path, err.Error())
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return autherrors.Wrapf(autherrors.ErrInvalidRequest, "[Client.do] %s", err.Error())
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, autherrors.ErrNoAccessToken) {
			return &APIError{Code: http.StatusUnauthorized, Message: "no access token", Err: "missing token", cause: err}
		}
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("resource api request failed")
		return NetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return NetworkError(fmt.Errorf("read body: %w", err))
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("resource api")

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return NewAPIError(resp.StatusCode, "malformed response", err.Error())
		}
	}

	if resp.StatusCode >= 300 || env.Code >= 400 {
		code := env.Code
		if code == 0 || (resp.StatusCode >= 300 && code < 300) {
			code = resp.StatusCode
		}
		return NewAPIError(code, env.Message, env.Error)
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return NewAPIError(resp.StatusCode, "malformed response data", err.Error())
	}
	return nil
}
