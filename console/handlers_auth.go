package console

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-admin-auth/guard"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
	"github.com/jrsteele09/go-admin-auth/session"
)

const (
	msgMissingCredentials  = "Username and password are required"
	msgMissingRegistration = "Username, email and password are required"
	msgRegistered          = "Account created, please sign in"
)

// EntryHandler only runs if the guard lets the entry path through, which it never
// should; it falls back to the login page.
func (s *Server) EntryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectSuccess(w, r, RouteLogin)
	}
}

// LoginPageHandler displays the login form (GET /login), with a CAPTCHA when the
// backend issues one.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r, "Sign in")
		data.Username = r.URL.Query().Get("username")

		captcha, err := s.api.GenerateCaptcha(r.Context())
		if err != nil {
			s.log.Debug().Err(err).Msg("no captcha available")
		} else {
			data.Captcha = captcha
		}
		s.renderPage(w, http.StatusOK, "login.html", data)
	}
}

// LoginSubmissionHandler handles POST /auth/login.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteLogin, "Invalid form submission")
			return
		}
		credentials := resourceapi.LoginRequest{
			Username:    strings.TrimSpace(r.PostFormValue("username")),
			Password:    r.PostFormValue("password"),
			CaptchaID:   r.PostFormValue("captcha_id"),
			CaptchaCode: strings.TrimSpace(r.PostFormValue("captcha_code")),
		}
		if credentials.Username == "" || credentials.Password == "" {
			redirectWithParams(w, r, RouteLogin, url.Values{"error": {msgMissingCredentials}, "username": {credentials.Username}})
			return
		}

		if err := s.controller.Login(r.Context(), credentials); err != nil {
			redirectWithParams(w, r, RouteLogin, url.Values{"error": {userMessage(err, session.MsgLoginFailed)}, "username": {credentials.Username}})
			return
		}
		if err := s.startLoginSession(w, r, credentials.Username); err != nil {
			s.log.Error().Err(err).Msg("failed to start login session")
			redirectWithError(w, r, RouteLogin, session.MsgLoginFailed)
			return
		}

		// The session is authenticated but still loading; the guard decides where the
		// login page hands over to and settles the loading flag as it does.
		d := s.policy.Decide(RouteLogin, s.controller.State(), true, "")
		if d.Action != guard.ActionRedirect {
			redirectSuccess(w, r, RouteDashboard)
			return
		}
		if d.SettlesLoading {
			s.controller.SettleLoading()
		}
		redirectSuccess(w, r, d.Target)
	}
}

func (s *Server) RegisterPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r, "Create an account")
		data.Username = r.URL.Query().Get("username")
		data.Email = r.URL.Query().Get("email")
		s.renderPage(w, http.StatusOK, "register.html", data)
	}
}

// RegisterSubmissionHandler handles POST /auth/register. Registration never signs the
// user in; success goes back to the login page.
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteRegister, "Invalid form submission")
			return
		}
		data := resourceapi.RegisterRequest{
			Username: strings.TrimSpace(r.PostFormValue("username")),
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			Password: r.PostFormValue("password"),
		}
		keep := url.Values{"username": {data.Username}, "email": {data.Email}}
		if data.Username == "" || data.Email == "" || data.Password == "" {
			keep.Set("error", msgMissingRegistration)
			redirectWithParams(w, r, RouteRegister, keep)
			return
		}

		if _, err := s.controller.Register(r.Context(), data); err != nil {
			keep.Set("error", userMessage(err, session.MsgRegisterFailed))
			redirectWithParams(w, r, RouteRegister, keep)
			return
		}
		redirectWithParams(w, r, RouteLogin, url.Values{"notice": {msgRegistered}, "username": {data.Username}})
	}
}

func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, http.StatusOK, "forgot_password.html", s.newPageData(r, "Forgot password"))
	}
}

// LogoutHandler handles POST /auth/logout. Only a signed-in browser ends the auth
// session; any other caller just loses its cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.admitted(r) {
			s.controller.Logout(r.Context())
		}
		s.endLoginSession(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}

// userMessage extracts the user-facing message from a session error.
func userMessage(err error, fallback string) string {
	var authErr *session.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return fallback
}
