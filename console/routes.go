package console

import (
	"net/http"

	"github.com/jrsteele09/go-admin-auth/guard"
	"github.com/jrsteele09/go-admin-auth/internal/obs"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.EntryHandler(), s.Guarded("")...))

	// AUTH
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.Guarded("")...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.FormMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.RegisterPageHandler(), s.Guarded("")...))
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.FormMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.Guarded("")...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.FormMiddleware()...))

	// Guarded pages
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler("Dashboard"), s.Guarded("")...))
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.DashboardHandler("Profile"), s.Guarded("")...))
	s.RegisterRouteHandler("GET "+RouteDashboardUsers, ChainMiddleware(s.UsersHandler(), s.Guarded(guard.RoleAdmin)...))
	s.RegisterRouteHandler("GET "+RouteUnauthorized, ChainMiddleware(s.UnauthorizedHandler(), s.Guarded("")...))

	// Operational
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, obs.Handler())

	s.RegisterRouteHandler("GET /", ChainMiddleware(s.NotFoundHandler(), s.HTMLMiddleware()...))
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "404 - Page Not Found", http.StatusNotFound)
	}
}
