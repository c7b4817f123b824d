package console

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-admin-auth/console/loginsession"
	"github.com/jrsteele09/go-admin-auth/session"
)

// loginSessionCookie names the browser's console session. The console holds a single
// auth session; the cookie decides which browser may use it.
const loginSessionCookie = "console_session_id"

// admitted reports whether r comes from a browser that signed in through the console.
func (s *Server) admitted(r *http.Request) bool {
	cookie, err := r.Cookie(loginSessionCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	ls, err := s.loginSessions.Get(cookie.Value)
	if err != nil {
		return false
	}
	if ls.Expired(s.nowTime()) {
		_ = s.loginSessions.Delete(cookie.Value)
		return false
	}
	return true
}

// startLoginSession admits the browser behind r and signs every other browser out.
func (s *Server) startLoginSession(w http.ResponseWriter, r *http.Request, username string) error {
	if err := s.loginSessions.DeleteAll(); err != nil {
		return err
	}
	now := s.nowTime()
	sessionID := uuid.NewString()
	err := s.loginSessions.Upsert(sessionID, loginsession.Session{
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	})
	if err != nil {
		return err
	}
	s.setLoginSessionCookie(w, r, sessionID, int(s.sessionTTL/time.Second))
	return nil
}

func (s *Server) endLoginSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(loginSessionCookie); err == nil {
		_ = s.loginSessions.Delete(cookie.Value)
	}
	s.setLoginSessionCookie(w, r, "", -1)
}

func (s *Server) setLoginSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     loginSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

// onSessionChange signs every browser out once the auth session ends, whether through
// the console, the CLI or a failed verification.
func (s *Server) onSessionChange(c session.Change) {
	ended := c.Invalidated || (c.Previous.IsAuthenticated && !c.Current.IsAuthenticated && !c.Current.IsLoading)
	if !ended {
		return
	}
	if err := s.loginSessions.DeleteAll(); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear login sessions")
		return
	}
	s.log.Debug().Msg("auth session ended, console sign-ins cleared")
}
