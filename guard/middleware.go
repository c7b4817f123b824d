package guard

import (
	"net/http"

	"github.com/jrsteele09/go-admin-auth/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Middleware gates server-rendered pages. Every guarded request is a navigation, so the
// session is verified with CheckAuth before the policy runs.
type Middleware struct {
	controller Controller
	policy     Policy
	permission PermissionPolicy
	admit      func(*http.Request) bool
	log        zerolog.Logger
}

type MiddlewareOption func(*Middleware)

func WithMiddlewarePermissionPolicy(p PermissionPolicy) MiddlewareOption {
	return func(m *Middleware) {
		m.permission = p
	}
}

// WithAdmission restricts the session to requests admit accepts. Every other request is
// decided as signed out and never touches the session.
func WithAdmission(admit func(*http.Request) bool) MiddlewareOption {
	return func(m *Middleware) {
		m.admit = admit
	}
}

func WithMiddlewareLogger(l zerolog.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.log = l
	}
}

func NewMiddleware(controller Controller, policy Policy, options ...MiddlewareOption) *Middleware {
	m := &Middleware{
		controller: controller,
		policy:     policy,
		permission: AdminPermissionPolicy,
		log:        log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Require guards next. requiredRole may be "" for any authenticated user. A request
// that fails the role check is redirected and next never runs.
func (m *Middleware) Require(requiredRole string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var state session.State
			if m.admitted(r) {
				state = m.controller.CheckAuth(r.Context())
			}
			d := m.policy.Decide(r.URL.Path, state, true, requiredRole)
			if d.Action == ActionWait && d.SettlesLoading {
				m.controller.SettleLoading()
				state = m.controller.State()
				d = m.policy.Decide(r.URL.Path, state, true, requiredRole)
			}

			switch d.Action {
			case ActionRedirect:
				m.log.Debug().Str("from", r.URL.Path).Str("to", d.Target).Str("reason", d.Reason).Msg("guard redirect")
				if d.SettlesLoading {
					m.controller.SettleLoading()
				}
				Redirect(w, r, d.Target)
			case ActionWait:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Session is being verified", http.StatusServiceUnavailable)
			default:
				ctx := WithCapabilities(r.Context(), NewCapabilities(state, m.permission))
				next(w, r.WithContext(ctx))
			}
		}
	}
}

func (m *Middleware) admitted(r *http.Request) bool {
	if m.admit == nil || m.admit(r) {
		return true
	}
	m.log.Debug().Str("path", r.URL.Path).Msg("request not admitted, treated as signed out")
	return false
}

// Redirect sends an htmx-aware redirect.
func Redirect(w http.ResponseWriter, r *http.Request, path string) {
	if IsHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// IsHTMXRequest checks if the request was initiated by HTMX
func IsHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
