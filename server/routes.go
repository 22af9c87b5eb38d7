package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare(s.RequireSession(authModeBrowser))...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...)) // For form_post response mode
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// API routes (require a live session)
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware(s.RequireSession(authModeAPI))...))
	s.RegisterRouteHandler("POST "+RouteAPIProvision, ChainMiddleware(s.ProvisionHandler(), s.APIMiddleware(s.RequireSession(authModeAPI))...))
	s.RegisterRouteHandler("POST "+RouteAPIRequestFile, ChainMiddleware(s.RequestFileHandler(), s.APIMiddleware(s.RequireSession(authModeAPI))...))

	// CORS preflight; CorsMiddleware answers these itself
	s.RegisterRouteHandler("OPTIONS "+RouteAPI, ChainMiddleware(notFound, s.APIMiddleware()...))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}
