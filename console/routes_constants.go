package console

// Route path constants
// All console routes are defined here to ensure consistency and prevent typos
const (
	RouteEntry = "/"

	// Auth pages
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteForgotPassword = "/forgot-password"

	// Auth form targets
	RouteAuthLogin    = "/auth/login"
	RouteAuthRegister = "/auth/register"
	RouteAuthLogout   = "/auth/logout"

	// Guarded pages
	RouteDashboard      = "/dashboard"
	RouteDashboardUsers = "/dashboard/users"
	RouteProfile        = "/profile"
	RouteUnauthorized   = "/unauthorized"

	// Operational
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
