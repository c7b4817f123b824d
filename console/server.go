// Package console is the server-rendered admin console. Every page runs behind the
// route guard, which verifies the auth session on each navigation.
package console

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-admin-auth/console/loginsession"
	"github.com/jrsteele09/go-admin-auth/guard"
	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/internal/obs"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
	"github.com/jrsteele09/go-admin-auth/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UserLister reads the user directory for the admin users page.
type UserLister interface {
	ListUsers(ctx context.Context, page, pageSize int) ([]resourceapi.User, error)
}

// Server serves the console for the single auth session held by controller.
type Server struct {
	env        string
	appName    string
	mux        *http.ServeMux
	routes     []string
	controller *session.Controller
	api        resourceapi.API
	users      UserLister
	policy     guard.Policy
	guard      *guard.Middleware
	pages      *pageSet
	log        zerolog.Logger

	loginSessions loginsession.Repo
	sessionTTL    time.Duration
	nowTime       func() time.Time
	unsubscribe   func()
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithLoginSessionRepo replaces the in-memory store of signed-in browsers.
func WithLoginSessionRepo(repo loginsession.Repo) Option {
	return func(s *Server) {
		s.loginSessions = repo
	}
}

func WithNowTime(now func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = now
	}
}

// WithUserLister enables the admin users page.
func WithUserLister(users UserLister) Option {
	return func(s *Server) {
		s.users = users
	}
}

func New(cfg config.Config, controller *session.Controller, api resourceapi.API, options ...Option) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:        cfg.GetEnv(),
		appName:    cfg.GetAppName(),
		mux:        http.NewServeMux(),
		controller: controller,
		api:        api,
		policy:     guard.NewPolicy(cfg),
		pages:      pages,
		log:        log.Logger,

		loginSessions: loginsession.NewInMemoryRepo(),
		sessionTTL:    cfg.GetConsoleSessionTTL(),
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.guard = guard.NewMiddleware(controller, s.policy,
		guard.WithMiddlewareLogger(s.log),
		guard.WithAdmission(s.admitted),
	)
	s.unsubscribe = controller.Subscribe(s.onSessionChange)

	obs.Init()
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

// Close detaches the server from the auth session.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		s.logRoute(method, path)
	}
}

func (s *Server) logRoute(method, path string) {
	s.log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}
