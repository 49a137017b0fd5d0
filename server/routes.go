package server

import "net/http"

// Route patterns, method-qualified for the stdlib mux.
const (
	RouteAuthLogin    = "GET /api/auth/login"
	RouteAuthCallback = "GET /api/auth/callback"
	RouteAuthLogout   = "POST /api/auth/logout"
	RouteAuthStatus   = "GET /api/auth/status"
	RouteRoast        = "GET /api/roast"
)

func (s *Server) initRoutes() {
	chain := func(h func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
		return s.Recover()(s.RequestLogger()(h))
	}

	s.RegisterRouteFunc(RouteAuthLogin, chain(s.Login()))
	s.RegisterRouteFunc(RouteAuthCallback, chain(s.AuthCallback()))
	s.RegisterRouteFunc(RouteAuthLogout, chain(s.Logout()))
	s.RegisterRouteFunc(RouteAuthStatus, chain(s.AuthStatus()))
	s.RegisterRouteFunc(RouteRoast, chain(s.Roast()))
}
