package config

type RoutesConfig interface {
	GetEntryPath() string
	GetLoginPath() string
	GetRegisterPath() string
	GetForgotPasswordPath() string
	GetDashboardPath() string
	GetUnauthorizedPath() string
	GetProtectedPrefixes() []string
	GetAuthPaths() []string
}

type Routes struct{}

var _ RoutesConfig = Routes{}

func (Routes) GetEntryPath() string          { return "/" }
func (Routes) GetLoginPath() string          { return "/login" }
func (Routes) GetRegisterPath() string       { return "/register" }
func (Routes) GetForgotPasswordPath() string { return "/forgot-password" }
func (Routes) GetDashboardPath() string      { return "/dashboard" }
func (Routes) GetUnauthorizedPath() string   { return "/unauthorized" }

func (Routes) GetProtectedPrefixes() []string {
	return []string{"/dashboard", "/users", "/profile", "/settings"}
}

func (r Routes) GetAuthPaths() []string {
	return []string{r.GetLoginPath(), r.GetRegisterPath(), r.GetForgotPasswordPath()}
}
