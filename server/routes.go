package server

func (s *Server) initRoutes() {
	// The catch-all root only forwards or answers 404
	s.RegisterRouteHandler("GET "+RouteRoot, ChainMiddleware(s.NotFoundHandler(), s.PageMiddleware(s.RequireRoute())...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.PageMiddleware(s.RequireRoute())...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.PageMiddleware()...))

	// Public pages
	s.RegisterRouteHandler("GET "+RouteUnauthorized, ChainMiddleware(s.UnauthorizedPageHandler(), s.PageMiddleware(s.RequireRoute())...))
	s.RegisterRouteHandler("GET "+RouteTracking, ChainMiddleware(s.TrackingPageHandler(), s.PageMiddleware(s.RequireRoute())...))

	// Protected pages
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.PageMiddleware(s.RequireRoute())...))
	s.RegisterRouteHandler("GET "+RouteClientArea, ChainMiddleware(s.ClientAreaHandler(), s.PageMiddleware(s.RequireRoute())...))
	s.RegisterRouteHandler("GET "+RouteDriverArea, ChainMiddleware(s.DriverAreaHandler(), s.PageMiddleware(s.RequireRoute())...))
	s.RegisterRouteHandler("GET "+RouteAdminArea, ChainMiddleware(s.AdminAreaHandler(), s.PageMiddleware(s.RequireRoute())...))
	s.RegisterRouteHandler("GET "+RouteManagerArea, ChainMiddleware(s.ManagerAreaHandler(), s.PageMiddleware(s.RequireRoute())...))

	// Area actions
	s.RegisterRouteHandler("POST "+RouteAdminAssignDelivery, ChainMiddleware(s.AssignDeliveryHandler(), s.PageMiddleware(s.RequireRoute())...))
	s.RegisterRouteHandler("POST "+RouteManagerDeliveryStatus, ChainMiddleware(s.DeliveryStatusHandler(), s.PageMiddleware(s.RequireRoute())...))
}
