package session

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-admin-auth/resourceapi"
)

// Operation names, used for errors, logs and metrics
const (
	OpLogin     = "login"
	OpRegister  = "register"
	OpCheckAuth = "check_auth"
	OpRefresh   = "refresh"
	OpLogout    = "logout"
)

// Server reasons with a dedicated login message
const (
	ReasonInvalidCredentials = "invalid credentials"
	ReasonUserNotFound       = "user not found"
	ReasonAccountDisabled    = "account disabled"
)

// User-facing messages
const (
	MsgInvalidCredentials = "Incorrect username or password, please check and try again"
	MsgUserNotFound       = "User does not exist, please check the username"
	MsgAccountDisabled    = "This account has been disabled, please contact an administrator"
	MsgAuthFailed         = "Authentication failed, please check your username and password"
	MsgBadRequest         = "The request was invalid, please check your input"
	MsgRateLimited        = "Too many login attempts, please try again later"
	MsgServerError        = "Server error, please try again later"
	MsgUnreachable        = "Unable to reach the server, please try again later"
	MsgLoginFailed        = "Login failed, please try again later"
	MsgRegisterFailed     = "Registration failed, please try again later"
)

// AuthError is returned by Login and Register. Message is safe to show to the user;
// Err is the underlying resource API failure.
type AuthError struct {
	Op      string
	Kind    resourceapi.Kind
	Code    int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func newAuthError(op string, err error) *AuthError {
	authErr := &AuthError{Op: op, Kind: resourceapi.KindOf(err), Err: err}
	if apiErr, ok := resourceapi.AsAPIError(err); ok {
		authErr.Code = apiErr.Code
	}
	return authErr
}

// loginError classifies a failed login into a user-facing message.
func loginError(err error) *AuthError {
	authErr := newAuthError(OpLogin, err)
	apiErr, ok := resourceapi.AsAPIError(err)
	if !ok {
		authErr.Message = MsgLoginFailed
		return authErr
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized:
		switch apiErr.Err {
		case ReasonInvalidCredentials:
			authErr.Message = MsgInvalidCredentials
		case ReasonUserNotFound:
			authErr.Message = MsgUserNotFound
		case ReasonAccountDisabled:
			authErr.Message = MsgAccountDisabled
		default:
			authErr.Message = MsgAuthFailed
		}
	case apiErr.Code == http.StatusBadRequest:
		authErr.Message = MsgBadRequest
	case apiErr.Code == http.StatusTooManyRequests:
		authErr.Message = MsgRateLimited
	case apiErr.Code == http.StatusInternalServerError:
		authErr.Message = MsgServerError
	case authErr.Kind == resourceapi.KindNetwork:
		authErr.Message = MsgUnreachable
	case apiErr.Message != "":
		authErr.Message = apiErr.Message
	default:
		authErr.Message = MsgLoginFailed
	}
	return authErr
}

// registerError passes the server's message through when it has one.
func registerError(err error) *AuthError {
	authErr := newAuthError(OpRegister, err)
	apiErr, ok := resourceapi.AsAPIError(err)
	switch {
	case ok && authErr.Kind == resourceapi.KindNetwork:
		authErr.Message = MsgUnreachable
	case ok && apiErr.Message != "":
		authErr.Message = apiErr.Message
	default:
		authErr.Message = MsgRegisterFailed
	}
	return authErr
}
