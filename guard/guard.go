package guard

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-admin-auth/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Navigator moves the view to another path.
type Navigator interface {
	Navigate(path string, replace bool)
}

type NavigatorFunc func(path string, replace bool)

func (f NavigatorFunc) Navigate(path string, replace bool) { f(path, replace) }

// Controller is the part of the session controller the guard drives.
type Controller interface {
	State() session.State
	Subscribe(fn session.Listener) (unsubscribe func())
	CheckAuth(ctx context.Context) session.State
	SettleLoading()
}

var _ Controller = (*session.Controller)(nil)

// Guard is the stateful gate around a guarded view. It verifies the session once on
// mount, then re-evaluates the policy on every path or state change and issues each
// redirect exactly once.
type Guard struct {
	controller   Controller
	policy       Policy
	navigator    Navigator
	requiredRole string
	permission   PermissionPolicy
	log          zerolog.Logger

	mu           sync.Mutex
	path         string
	initialized  bool
	mounted      bool
	lastRedirect string
	unsubscribe  func()
}

type Option func(*Guard)

// WithRequiredRole restricts the guarded view to users with role.
func WithRequiredRole(role string) Option {
	return func(g *Guard) {
		g.requiredRole = role
	}
}

func WithPermissionPolicy(p PermissionPolicy) Option {
	return func(g *Guard) {
		g.permission = p
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Guard) {
		g.log = l
	}
}

func New(controller Controller, policy Policy, navigator Navigator, options ...Option) *Guard {
	g := &Guard{
		controller: controller,
		policy:     policy,
		navigator:  navigator,
		permission: AdminPermissionPolicy,
		log:        log.Logger,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Mount runs CheckAuth once for path and starts following state changes. If Unmount is
// called while the check is in flight, the result is discarded.
func (g *Guard) Mount(ctx context.Context, path string) Decision {
	g.mu.Lock()
	if g.mounted {
		g.mu.Unlock()
		return g.SetPath(path)
	}
	g.mounted = true
	g.path = path
	g.mu.Unlock()

	g.controller.CheckAuth(ctx)

	g.mu.Lock()
	if !g.mounted {
		g.mu.Unlock()
		return Decision{Action: ActionWait, Reason: "unmounted"}
	}
	g.initialized = true
	g.unsubscribe = g.controller.Subscribe(func(session.Change) { g.Sync() })
	g.mu.Unlock()

	return g.Sync()
}

// Unmount stops following state changes.
func (g *Guard) Unmount() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mounted = false
	g.initialized = false
	g.lastRedirect = ""
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// SetPath records a navigation and re-evaluates.
func (g *Guard) SetPath(path string) Decision {
	g.mu.Lock()
	g.path = path
	g.mu.Unlock()
	return g.Sync()
}

// Sync evaluates the policy for the current path and state. A redirect is sent to the
// navigator only when it differs from the last one issued. A login that completes
// without a redirect is settled here and the path re-evaluated.
func (g *Guard) Sync() Decision {
	state := g.controller.State()

	g.mu.Lock()
	path := g.path
	d := g.policy.Decide(path, state, g.initialized, g.requiredRole)
	issue := false
	if d.Action == ActionRedirect {
		key := path + " -> " + d.Target
		if key != g.lastRedirect {
			g.lastRedirect = key
			issue = true
		}
	} else {
		g.lastRedirect = ""
	}
	g.mu.Unlock()

	if issue {
		g.log.Debug().Str("from", path).Str("to", d.Target).Str("reason", d.Reason).Bool("replace", d.Replace).Msg("guard redirect")
		g.navigator.Navigate(d.Target, d.Replace)
		if d.SettlesLoading {
			g.controller.SettleLoading()
		}
	}
	if d.Action == ActionWait && d.SettlesLoading {
		g.controller.SettleLoading()
		return g.Sync()
	}
	return d
}

// CanRender reports whether guarded content may be shown right now.
func (g *Guard) CanRender() bool {
	state := g.controller.State()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.policy.Decide(g.path, state, g.initialized, g.requiredRole).Action == ActionRender
}

// Capabilities returns the capability checks for the current state.
func (g *Guard) Capabilities() Capabilities {
	return NewCapabilities(g.controller.State(), g.permission)
}
