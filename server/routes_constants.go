package server

import "github.com/jrsteele09/home-logistic/internal/config"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/{$}"

	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"
	RouteCallback   = config.CallbackPath

	// API Routes
	RouteAPI            = "/api/"
	RouteAPISession     = "/api/session"
	RouteAPIProvision   = "/api/setup/provision"
	RouteAPIRequestFile = "/api/setup/request-file"

	RouteHealth = "/healthz"

	// defaultReturnURL is where a completed sign-in lands when no return_to was given.
	defaultReturnURL = "/"
)
