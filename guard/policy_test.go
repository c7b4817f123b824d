package guard_test

import (
	"testing"

	"github.com/jrsteele09/go-admin-auth/guard"
	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
	"github.com/jrsteele09/go-admin-auth/session"
	"github.com/stretchr/testify/require"
)

func signedIn(role string) session.State {
	return session.State{
		User:            &resourceapi.User{ID: 1, Username: "alice", Role: role},
		AccessToken:     "a1",
		RefreshToken:    "r1",
		IsAuthenticated: true,
	}
}

func TestClassify(t *testing.T) {
	p := guard.NewPolicy(config.Routes{})

	tests := []struct {
		path string
		want guard.PathClass
	}{
		{path: "/", want: guard.PathEntry},
		{path: "", want: guard.PathEntry},
		{path: "/login", want: guard.PathAuthOnly},
		{path: "/register/", want: guard.PathAuthOnly},
		{path: "/forgot-password", want: guard.PathAuthOnly},
		{path: "/dashboard", want: guard.PathProtected},
		{path: "/dashboard/users", want: guard.PathProtected},
		{path: "/users/42", want: guard.PathProtected},
		{path: "/profile", want: guard.PathProtected},
		{path: "/settings/security", want: guard.PathProtected},
		{path: "/dashboards", want: guard.PathPublic},
		{path: "/unauthorized", want: guard.PathPublic},
		{path: "/healthz", want: guard.PathPublic},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, p.Classify(tt.path))
		})
	}
}

func TestDecide(t *testing.T) {
	p := guard.NewPolicy(config.Routes{})
	loadingSignedIn := signedIn("user")
	loadingSignedIn.IsLoading = true
	justLoggedIn := signedIn("user")
	justLoggedIn.IsLoading = true
	justLoggedIn.AwaitingRedirect = true

	tests := []struct {
		name         string
		path         string
		state        session.State
		initialized  bool
		requiredRole string
		want         guard.Decision
	}{
		{
			name:  "waits until initialised",
			path:  "/dashboard",
			state: session.State{},
			want:  guard.Decision{Action: guard.ActionWait},
		},
		{
			name:        "waits while verifying",
			path:        "/dashboard",
			state:       session.State{IsLoading: true},
			initialized: true,
			want:        guard.Decision{Action: guard.ActionWait},
		},
		{
			name:        "entry signed in goes to dashboard",
			path:        "/",
			state:       signedIn("user"),
			initialized: true,
			want:        guard.Decision{Action: guard.ActionRedirect, Target: "/dashboard"},
		},
		{
			name:        "entry signed out goes to login",
			path:        "/",
			state:       session.State{},
			initialized: true,
			want:        guard.Decision{Action: guard.ActionRedirect, Target: "/login"},
		},
		{
			name:        "protected signed out goes to fallback",
			path:        "/users",
			state:       session.State{},
			initialized: true,
			want:        guard.Decision{Action: guard.ActionRedirect, Target: "/login"},
		},
		{
			name:         "role mismatch goes to unauthorized",
			path:         "/dashboard/users",
			state:        signedIn("user"),
			initialized:  true,
			requiredRole: "admin",
			want:         guard.Decision{Action: guard.ActionRedirect, Target: "/unauthorized"},
		},
		{
			name:         "role match renders",
			path:         "/dashboard/users",
			state:        signedIn("admin"),
			initialized:  true,
			requiredRole: "admin",
			want:         guard.Decision{Action: guard.ActionRender},
		},
		{
			name:         "unauthorized page itself is not role checked",
			path:         "/unauthorized",
			state:        signedIn("user"),
			initialized:  true,
			requiredRole: "admin",
			want:         guard.Decision{Action: guard.ActionRender},
		},
		{
			name:        "auth page signed in is replaced by dashboard",
			path:        "/login",
			state:       signedIn("user"),
			initialized: true,
			want:        guard.Decision{Action: guard.ActionRedirect, Target: "/dashboard", Replace: true},
		},
		{
			name:        "post login redirect settles loading",
			path:        "/login",
			state:       justLoggedIn,
			initialized: true,
			want:        guard.Decision{Action: guard.ActionRedirect, Target: "/dashboard", Replace: true, SettlesLoading: true},
		},
		{
			name:        "post login on entry settles loading",
			path:        "/",
			state:       justLoggedIn,
			initialized: true,
			want:        guard.Decision{Action: guard.ActionRedirect, Target: "/dashboard", SettlesLoading: true},
		},
		{
			name:        "post login in place settles then re-evaluates",
			path:        "/dashboard",
			state:       justLoggedIn,
			initialized: true,
			want:        guard.Decision{Action: guard.ActionWait, SettlesLoading: true},
		},
		{
			name:         "post login role mismatch settles loading",
			path:         "/dashboard/users",
			state:        justLoggedIn,
			initialized:  true,
			requiredRole: "admin",
			want:         guard.Decision{Action: guard.ActionRedirect, Target: "/unauthorized", SettlesLoading: true},
		},
		{
			name:        "auth page during check waits",
			path:        "/login",
			state:       loadingSignedIn,
			initialized: true,
			want:        guard.Decision{Action: guard.ActionWait},
		},
		{
			name:        "entry during check waits",
			path:        "/",
			state:       loadingSignedIn,
			initialized: true,
			want:        guard.Decision{Action: guard.ActionWait},
		},
		{
			name:         "role mismatch during check waits",
			path:         "/dashboard/users",
			state:        loadingSignedIn,
			initialized:  true,
			requiredRole: "admin",
			want:         guard.Decision{Action: guard.ActionWait},
		},
		{
			name:        "auth page signed out renders",
			path:        "/register",
			state:       session.State{},
			initialized: true,
			want:        guard.Decision{Action: guard.ActionRender},
		},
		{
			name:        "protected signed in renders",
			path:        "/dashboard",
			state:       signedIn("user"),
			initialized: true,
			want:        guard.Decision{Action: guard.ActionRender},
		},
		{
			name:        "protected signed in but loading waits",
			path:        "/dashboard",
			state:       loadingSignedIn,
			initialized: true,
			want:        guard.Decision{Action: guard.ActionWait},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Decide(tt.path, tt.state, tt.initialized, tt.requiredRole)
			got.Reason = ""
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecideCustomFallback(t *testing.T) {
	p := guard.NewPolicy(config.Routes{}, guard.WithFallback("/welcome"))

	d := p.Decide("/settings", session.State{}, true, "")
	require.Equal(t, guard.ActionRedirect, d.Action)
	require.Equal(t, "/welcome", d.Target)

	// The entry point always uses the login path.
	require.Equal(t, "/login", p.Decide("/", session.State{}, true, "").Target)
}

func TestCapabilities(t *testing.T) {
	admin := guard.NewCapabilities(signedIn("admin"), nil)
	require.True(t, admin.RequireRole("admin"))
	require.False(t, admin.RequireRole("user"))
	require.True(t, admin.HasPermission("users:delete"))
	require.Equal(t, "alice", admin.Username())

	user := guard.NewCapabilities(signedIn("user"), nil)
	require.True(t, user.RequireRole("user"))
	require.False(t, user.HasPermission("users:delete"))

	stale := signedIn("admin")
	stale.IsAuthenticated = false
	signedOut := guard.NewCapabilities(stale, nil)
	require.False(t, signedOut.RequireRole("admin"))
	require.False(t, signedOut.HasPermission("anything"))

	custom := guard.NewCapabilities(signedIn("editor"), func(s session.State, permission string) bool {
		return s.IsAuthenticated && s.Role() == "editor" && permission == "articles:write"
	})
	require.True(t, custom.HasPermission("articles:write"))
	require.False(t, custom.HasPermission("users:delete"))
}
