package console

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/go-admin-auth/guard"
	"github.com/jrsteele09/go-admin-auth/internal/utils"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
)

const usersPageSize = 20

// pageData is shared by every template.
type pageData struct {
	Title     string
	AppName   string
	User      *resourceapi.User
	Avatar    string
	IsAdmin   bool
	Error     string
	Notice    string
	Username  string
	Email     string
	Captcha   *resourceapi.Captcha
	ExpiresAt time.Time
	Users     []resourceapi.User
	Page      int
}

func (s *Server) newPageData(r *http.Request, title string) pageData {
	caps := guard.CapabilitiesFrom(r.Context())
	data := pageData{
		Title:   title,
		AppName: s.appName,
		IsAdmin: caps.RequireRole(guard.RoleAdmin),
		Error:   r.URL.Query().Get("error"),
		Notice:  r.URL.Query().Get("notice"),
	}
	if caps.IsAuthenticated() {
		state := s.controller.State()
		data.User = state.User
		if state.User != nil {
			data.Avatar = utils.Value(state.User.Avatar)
		}
		data.ExpiresAt = state.TokenExpiresAt
	}
	return data
}

func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data pageData) {
	if err := s.pages.render(w, status, name, data); err != nil {
		s.log.Error().Err(err).Str("page", name).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) DashboardHandler(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r, title)
		if data.User == nil {
			// Signed out between the guard check and now.
			redirectSuccess(w, r, RouteLogin)
			return
		}
		s.renderPage(w, http.StatusOK, "dashboard.html", data)
	}
}

// UsersHandler lists the user directory. Admin only.
func (s *Server) UsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r, "Users")
		data.Page = 1
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
			data.Page = p
		}

		if s.users == nil {
			data.Error = "The user directory is not available"
			s.renderPage(w, http.StatusOK, "users.html", data)
			return
		}
		users, err := s.users.ListUsers(r.Context(), data.Page, usersPageSize)
		if err != nil {
			s.log.Warn().Err(err).Str("kind", resourceapi.KindOf(err).String()).Msg("failed to list users")
			data.Error = "Unable to load users, please try again later"
		}
		data.Users = users
		s.renderPage(w, http.StatusOK, "users.html", data)
	}
}

func (s *Server) UnauthorizedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, http.StatusForbidden, "unauthorized.html", s.newPageData(r, "Access denied"))
	}
}
