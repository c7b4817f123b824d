// Package resourceapi is the REST backend as seen by the auth session: the auth
// endpoints, the current-user endpoint, and generic JSON request helpers.
package resourceapi

import "context"

// Backend routes, relative to the API base URL
const (
	PathLogin       = "/auth/login"
	PathRegister    = "/auth/register"
	PathRefresh     = "/auth/refresh"
	PathLogout      = "/auth/logout"
	PathCaptcha     = "/auth/captcha"
	PathCurrentUser = "/users/profile"
	PathUsers       = "/users"
)

// API is the resource API consumed by the session controller. Every failure is an *APIError.
type API interface {
	Login(ctx context.Context, credentials LoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, data RegisterRequest) (*User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetCurrentUser(ctx context.Context) (*User, error)
	GenerateCaptcha(ctx context.Context) (*Captcha, error)
}
