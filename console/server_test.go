package console_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-admin-auth/console"
	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
	"github.com/jrsteele09/go-admin-auth/resourceapi/apifake"
	"github.com/jrsteele09/go-admin-auth/session"
	"github.com/jrsteele09/go-admin-auth/token/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.EnvVars
	config.Storage
	config.Session
	config.Routes
}

func (testConfig) GetEnv() string     { return "TEST" }
func (testConfig) GetAppName() string { return "Admin Console" }

type fakeLister struct {
	users []resourceapi.User
	err   error
}

func (f fakeLister) ListUsers(context.Context, int, int) ([]resourceapi.User, error) {
	return f.users, f.err
}

type fixture struct {
	tokens     *store.Store
	api        *apifake.FakeAPI
	controller *session.Controller
	server     *console.Server
	role       string
	cookies    map[string]*http.Cookie
}

func setupFixture(t *testing.T, role string, options ...console.Option) *fixture {
	t.Helper()
	f := &fixture{api: apifake.NewFakeAPI(), role: role, cookies: make(map[string]*http.Cookie)}
	f.tokens = store.New(store.NewMemoryBackend(), store.WithLogger(zerolog.Nop()))

	user := resourceapi.User{ID: 7, Username: "alice", Email: "alice@example.com", Role: role, Status: "active"}
	f.api.LoginFunc = func(_ context.Context, req resourceapi.LoginRequest) (*resourceapi.LoginResponse, error) {
		if req.Password != "secret123" {
			return nil, resourceapi.NewAPIError(http.StatusUnauthorized, "login failed", "invalid credentials")
		}
		return &resourceapi.LoginResponse{AccessToken: "a1", RefreshToken: "r1", ExpiresIn: 3600, User: user}, nil
	}
	f.api.GetCurrentUserFunc = func(context.Context) (*resourceapi.User, error) {
		u := user
		return &u, nil
	}
	f.api.LogoutFunc = func(context.Context, string) error { return nil }
	f.api.RegisterFunc = func(_ context.Context, req resourceapi.RegisterRequest) (*resourceapi.User, error) {
		return &resourceapi.User{ID: 8, Username: req.Username, Email: req.Email, Role: "user"}, nil
	}
	f.api.GenerateCaptchaFunc = func(context.Context) (*resourceapi.Captcha, error) {
		return &resourceapi.Captcha{ID: "cap-1", Data: "data:image/png;base64,iVBORw0KGgo="}, nil
	}

	f.controller = session.New(f.api, f.tokens, testConfig{}, session.WithLogger(zerolog.Nop()))
	t.Cleanup(f.controller.Close)

	options = append(options, console.WithLogger(zerolog.Nop()))
	srv, err := console.New(testConfig{}, f.controller, f.api, options...)
	require.NoError(t, err)
	f.server = srv
	t.Cleanup(srv.Close)
	return f
}

// signIn logs in through the console, leaving the browser cookie in the fixture.
func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	rec := f.postForm(t, "/auth/login", url.Values{"username": {"alice"}, "password": {"secret123"}})
	requireRedirect(t, rec, "/dashboard")
	require.NotEmpty(t, f.cookies)
}

// forgetCookies turns the fixture into a different browser.
func (f *fixture) forgetCookies() map[string]*http.Cookie {
	previous := f.cookies
	f.cookies = make(map[string]*http.Cookie)
	return previous
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(f.cookies, c.Name)
			continue
		}
		f.cookies[c.Name] = c
	}
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (f *fixture) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(newFormRequest(path, form))
}

func newFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantPath string) *url.URL {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, wantPath, loc.Path)
	return loc
}

func TestEntryRedirects(t *testing.T) {
	f := setupFixture(t, "user")
	requireRedirect(t, f.get(t, "/"), "/login")

	f.signIn(t)
	requireRedirect(t, f.get(t, "/"), "/dashboard")
}

func TestGuardedPageSignedOut(t *testing.T) {
	f := setupFixture(t, "user")

	rec := f.get(t, "/dashboard")
	requireRedirect(t, rec, "/login")
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}

func TestLoginPageShowsCaptcha(t *testing.T) {
	f := setupFixture(t, "user")

	rec := f.get(t, "/login?username=alice&error=Bad+things")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `name="captcha_id" value="cap-1"`)
	require.Contains(t, body, `src="data:image/png;base64,iVBORw0KGgo="`)
	require.Contains(t, body, `value="alice"`)
	require.Contains(t, body, "Bad things")
}

func TestLoginPageWithoutCaptcha(t *testing.T) {
	f := setupFixture(t, "user")
	f.api.GenerateCaptchaFunc = nil

	rec := f.get(t, "/login")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "captcha_id")
}

func TestLoginSubmission(t *testing.T) {
	f := setupFixture(t, "user")

	rec := f.postForm(t, "/auth/login", url.Values{
		"username":     {"alice"},
		"password":     {"secret123"},
		"captcha_id":   {"cap-1"},
		"captcha_code": {" 7xk2 "},
	})
	requireRedirect(t, rec, "/dashboard")

	access, ok := f.tokens.AccessToken(context.Background())
	require.True(t, ok)
	require.Equal(t, "a1", access)
	state := f.controller.State()
	require.True(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)

	calls := f.api.CallsTo(apifake.MethodLogin)
	require.Len(t, calls, 1)
	req := calls[0].Arg.(resourceapi.LoginRequest)
	require.Equal(t, "cap-1", req.CaptchaID)
	require.Equal(t, "7xk2", req.CaptchaCode)

	rec = f.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "alice@example.com")
}

func TestLoginSubmissionRejected(t *testing.T) {
	f := setupFixture(t, "user")

	rec := f.postForm(t, "/auth/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	loc := requireRedirect(t, rec, "/login")
	require.Equal(t, session.MsgInvalidCredentials, loc.Query().Get("error"))
	require.Equal(t, "alice", loc.Query().Get("username"))

	_, ok := f.tokens.AccessToken(context.Background())
	require.False(t, ok)
	require.False(t, f.controller.State().IsAuthenticated)
}

func TestLoginSubmissionMissingFields(t *testing.T) {
	f := setupFixture(t, "user")

	loc := requireRedirect(t, f.postForm(t, "/auth/login", url.Values{"username": {"alice"}}), "/login")
	require.NotEmpty(t, loc.Query().Get("error"))
	require.Zero(t, f.api.CallCount(apifake.MethodLogin))
}

func TestLoginSubmissionHTMX(t *testing.T) {
	f := setupFixture(t, "user")
	req := newFormRequest("/auth/login", url.Values{"username": {"alice"}, "password": {"secret123"}})
	req.Header.Set("HX-Request", "true")

	rec := f.do(req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("HX-Redirect"))
}

func TestSignedInLoginPageRedirects(t *testing.T) {
	f := setupFixture(t, "user")
	f.signIn(t)
	requireRedirect(t, f.get(t, "/login"), "/dashboard")
}

func TestRevokedSessionIsSignedOut(t *testing.T) {
	f := setupFixture(t, "user")
	f.signIn(t)
	f.api.GetCurrentUserFunc = func(context.Context) (*resourceapi.User, error) {
		return nil, resourceapi.NewAPIError(http.StatusUnauthorized, "token revoked", "")
	}

	requireRedirect(t, f.get(t, "/dashboard"), "/login")
	_, ok := f.tokens.AccessToken(context.Background())
	require.False(t, ok)
}

func TestUsersPageRequiresAdmin(t *testing.T) {
	f := setupFixture(t, "user", console.WithUserLister(fakeLister{}))
	f.signIn(t)

	requireRedirect(t, f.get(t, "/dashboard/users"), "/unauthorized")

	rec := f.get(t, "/unauthorized")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "Access denied")
}

func TestUsersPageForAdmin(t *testing.T) {
	lister := fakeLister{users: []resourceapi.User{
		{ID: 1, Username: "alice", Email: "alice@example.com", Role: "admin", Status: "active"},
		{ID: 2, Username: "bob", Email: "bob@example.com", Role: "user", Status: "disabled"},
	}}
	f := setupFixture(t, "admin", console.WithUserLister(lister))
	f.signIn(t)

	rec := f.get(t, "/dashboard/users")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bob@example.com")
	require.Contains(t, rec.Body.String(), `href="/dashboard/users"`)
}

func TestUsersPageListFailure(t *testing.T) {
	f := setupFixture(t, "admin", console.WithUserLister(fakeLister{err: errors.New("boom")}))
	f.signIn(t)

	rec := f.get(t, "/dashboard/users")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Unable to load users")
}

func TestLogout(t *testing.T) {
	f := setupFixture(t, "user")
	f.signIn(t)
	require.Equal(t, http.StatusOK, f.get(t, "/dashboard").Code)

	requireRedirect(t, f.postForm(t, "/auth/logout", nil), "/login")
	require.Empty(t, f.cookies)

	_, ok := f.tokens.AccessToken(context.Background())
	require.False(t, ok)
	require.False(t, f.controller.State().IsAuthenticated)
	requireRedirect(t, f.get(t, "/dashboard"), "/login")

	f.controller.Close()
	require.Equal(t, 1, f.api.CallCount(apifake.MethodLogout))
}

func TestLoginSetsSessionCookie(t *testing.T) {
	f := setupFixture(t, "user")
	rec := f.postForm(t, "/auth/login", url.Values{"username": {"alice"}, "password": {"secret123"}})
	requireRedirect(t, rec, "/dashboard")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "console_session_id", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	require.Equal(t, "/", cookies[0].Path)
	require.Equal(t, int((8 * time.Hour).Seconds()), cookies[0].MaxAge)
}

func TestOtherBrowserIsSignedOut(t *testing.T) {
	f := setupFixture(t, "admin", console.WithUserLister(fakeLister{}))
	f.signIn(t)
	require.Equal(t, http.StatusOK, f.get(t, "/dashboard/users").Code)
	checks := f.api.CallCount(apifake.MethodGetCurrentUser)

	f.forgetCookies()
	requireRedirect(t, f.get(t, "/dashboard/users"), "/login")
	requireRedirect(t, f.get(t, "/"), "/login")
	require.Equal(t, http.StatusOK, f.get(t, "/login").Code)
	require.Equal(t, checks, f.api.CallCount(apifake.MethodGetCurrentUser))
	require.True(t, f.controller.State().IsAuthenticated)
}

func TestForgedCookieIsSignedOut(t *testing.T) {
	f := setupFixture(t, "user")
	f.signIn(t)

	f.forgetCookies()
	f.cookies["console_session_id"] = &http.Cookie{Name: "console_session_id", Value: "guessed"}
	requireRedirect(t, f.get(t, "/dashboard"), "/login")
}

func TestLogoutWithoutCookieKeepsSession(t *testing.T) {
	f := setupFixture(t, "user")
	f.signIn(t)
	browser := f.forgetCookies()

	requireRedirect(t, f.postForm(t, "/auth/logout", nil), "/login")

	_, ok := f.tokens.AccessToken(context.Background())
	require.True(t, ok)
	f.cookies = browser
	require.Equal(t, http.StatusOK, f.get(t, "/dashboard").Code)
	require.Zero(t, f.api.CallCount(apifake.MethodLogout))
}

func TestLogoutRequiresPost(t *testing.T) {
	f := setupFixture(t, "user")
	f.signIn(t)

	require.Equal(t, http.StatusNotFound, f.get(t, "/auth/logout").Code)

	_, ok := f.tokens.AccessToken(context.Background())
	require.True(t, ok)
	require.Equal(t, http.StatusOK, f.get(t, "/dashboard").Code)
}

func TestCrossSiteFormRejected(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{name: "foreign origin", headers: map[string]string{"Origin": "https://evil.example"}, want: http.StatusForbidden},
		{name: "opaque origin", headers: map[string]string{"Origin": "null"}, want: http.StatusForbidden},
		{name: "fetch metadata", headers: map[string]string{"Sec-Fetch-Site": "cross-site"}, want: http.StatusForbidden},
		{name: "same origin", headers: map[string]string{"Origin": "http://example.com", "Sec-Fetch-Site": "same-origin"}, want: http.StatusSeeOther},
		{name: "no origin", want: http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t, "user")
			f.signIn(t)

			req := newFormRequest("/auth/logout", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, f.do(req).Code)

			_, ok := f.tokens.AccessToken(context.Background())
			require.Equal(t, tt.want == http.StatusForbidden, ok)
		})
	}
}

func TestSecondBrowserLoginReplacesFirst(t *testing.T) {
	f := setupFixture(t, "user")
	f.signIn(t)
	first := f.forgetCookies()

	f.signIn(t)
	require.Equal(t, http.StatusOK, f.get(t, "/dashboard").Code)

	f.cookies = first
	requireRedirect(t, f.get(t, "/dashboard"), "/login")
}

func TestExpiredBrowserSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := setupFixture(t, "user", console.WithNowTime(func() time.Time { return now }))
	f.signIn(t)
	require.Equal(t, http.StatusOK, f.get(t, "/dashboard").Code)

	now = now.Add(8 * time.Hour)
	requireRedirect(t, f.get(t, "/dashboard"), "/login")
	require.True(t, f.controller.State().IsAuthenticated)
}

func TestSessionEndSignsBrowsersOut(t *testing.T) {
	f := setupFixture(t, "user")
	f.signIn(t)
	require.Equal(t, http.StatusOK, f.get(t, "/dashboard").Code)

	f.controller.Logout(context.Background())
	// Signed in again outside the browser, e.g. by the CLI.
	f.tokens.SetTokens(context.Background(), "a2", "r2", int64(time.Hour/time.Second))

	requireRedirect(t, f.get(t, "/dashboard"), "/login")
	_, ok := f.tokens.AccessToken(context.Background())
	require.True(t, ok)
}

func TestRegisterSubmission(t *testing.T) {
	f := setupFixture(t, "user")

	rec := f.postForm(t, "/auth/register", url.Values{
		"username": {"bob"},
		"email":    {"bob@example.com"},
		"password": {"hunter22"},
	})
	loc := requireRedirect(t, rec, "/login")
	require.NotEmpty(t, loc.Query().Get("notice"))
	require.Equal(t, "bob", loc.Query().Get("username"))
	require.False(t, f.controller.State().IsAuthenticated)
}

func TestRegisterSubmissionRejected(t *testing.T) {
	f := setupFixture(t, "user")
	f.api.RegisterFunc = func(context.Context, resourceapi.RegisterRequest) (*resourceapi.User, error) {
		return nil, resourceapi.NewAPIError(http.StatusConflict, "username already exists", "")
	}

	rec := f.postForm(t, "/auth/register", url.Values{
		"username": {"bob"},
		"email":    {"bob@example.com"},
		"password": {"hunter22"},
	})
	loc := requireRedirect(t, rec, "/register")
	require.Equal(t, "username already exists", loc.Query().Get("error"))
	require.Equal(t, "bob@example.com", loc.Query().Get("email"))
}

func TestOperationalRoutes(t *testing.T) {
	f := setupFixture(t, "user")

	rec := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusNotFound, f.get(t, "/no-such-page").Code)
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupFixture(t, "user")
	handler := console.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, f.server.HTMLMiddleware()...)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
