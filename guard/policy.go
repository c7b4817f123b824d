// Package guard decides whether a navigation may render or must be redirected, based on
// the auth session state.
package guard

import (
	"strings"

	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/session"
)

type PathClass int

const (
	PathPublic PathClass = iota
	PathEntry
	PathProtected
	PathAuthOnly
)

func (c PathClass) String() string {
	switch c {
	case PathEntry:
		return "entry"
	case PathProtected:
		return "protected"
	case PathAuthOnly:
		return "auth_only"
	default:
		return "public"
	}
}

type Action int

const (
	// ActionWait withholds rendering while the session is indeterminate.
	ActionWait Action = iota
	ActionRender
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionRedirect:
		return "redirect"
	default:
		return "wait"
	}
}

// Decision is the outcome of evaluating one navigation. Replace asks for the current
// history entry to be replaced instead of pushed. SettlesLoading marks the decision that
// completes a login, after which the session's loading flag may be cleared.
type Decision struct {
	Action         Action
	Target         string
	Replace        bool
	SettlesLoading bool
	Reason         string
}

// Policy is the pure decision table. It holds no state and makes no calls.
type Policy struct {
	routes    config.RoutesConfig
	fallback  string
	protected []string
	authOnly  map[string]struct{}
}

type PolicyOption func(*Policy)

// WithFallback sets where unauthenticated visitors to protected paths are sent. It
// defaults to the login path.
func WithFallback(path string) PolicyOption {
	return func(p *Policy) {
		p.fallback = path
	}
}

func NewPolicy(routes config.RoutesConfig, options ...PolicyOption) Policy {
	p := Policy{
		routes:    routes,
		fallback:  routes.GetLoginPath(),
		protected: routes.GetProtectedPrefixes(),
		authOnly:  make(map[string]struct{}),
	}
	for _, path := range routes.GetAuthPaths() {
		p.authOnly[path] = struct{}{}
	}
	for _, opt := range options {
		opt(&p)
	}
	return p
}

// Classify places path into one of the route classes.
func (p Policy) Classify(path string) PathClass {
	path = normalise(path)
	if path == p.routes.GetEntryPath() {
		return PathEntry
	}
	if _, ok := p.authOnly[path]; ok {
		return PathAuthOnly
	}
	for _, prefix := range p.protected {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return PathProtected
		}
	}
	return PathPublic
}

// Decide evaluates the decision table for a navigation to path. requiredRole is the
// role the target declares, or "" when any authenticated user may see it.
//
// While a request is in flight the answer is always ActionWait. The only loading state
// that may redirect is the one a completed login leaves behind, and those decisions
// carry SettlesLoading.
func (p Policy) Decide(path string, s session.State, initialized bool, requiredRole string) Decision {
	if !initialized {
		return Decision{Action: ActionWait, Reason: "not initialised"}
	}
	if s.IsLoading && !s.AwaitingRedirect {
		return Decision{Action: ActionWait, Reason: "session loading"}
	}

	path = normalise(path)
	class := p.Classify(path)

	switch {
	case class == PathEntry && s.IsAuthenticated:
		return p.toDashboard(s, false, "entry while authenticated")
	case class == PathEntry:
		return Decision{Action: ActionRedirect, Target: p.routes.GetLoginPath(), Reason: "entry while signed out"}
	case class == PathProtected && !s.IsAuthenticated:
		return Decision{Action: ActionRedirect, Target: p.fallback, Reason: "protected while signed out"}
	}

	if s.IsAuthenticated && requiredRole != "" && s.Role() != requiredRole && path != p.routes.GetUnauthorizedPath() {
		return Decision{
			Action:         ActionRedirect,
			Target:         p.routes.GetUnauthorizedPath(),
			SettlesLoading: s.AwaitingRedirect,
			Reason:         "role " + requiredRole + " required",
		}
	}

	if class == PathAuthOnly && s.IsAuthenticated {
		return p.toDashboard(s, true, "auth page while authenticated")
	}

	if s.AwaitingRedirect {
		// Logged in without leaving the page: nothing to navigate, settle and re-evaluate.
		return Decision{Action: ActionWait, SettlesLoading: true, Reason: "login completed in place"}
	}
	return Decision{Action: ActionRender}
}

func (p Policy) toDashboard(s session.State, replace bool, reason string) Decision {
	return Decision{
		Action:         ActionRedirect,
		Target:         p.routes.GetDashboardPath(),
		Replace:        replace,
		SettlesLoading: s.AwaitingRedirect,
		Reason:         reason,
	}
}

func normalise(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
