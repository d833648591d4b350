package server

import "github.com/jrsteele09/go-delivery-console/guard"

// Route path constants
// Page paths come from the guard's navigation table so both agree on what is protected
const (
	RouteRoot         = guard.RouteRoot
	RouteLogin        = guard.RouteLogin
	RouteUnauthorized = guard.RouteUnauthorized
	RouteTracking     = guard.RouteTracking
	RouteDashboard    = guard.RouteDashboard

	// Role areas (patterns match the area and everything below it)
	RouteClientArea  = guard.RouteClient + "/"
	RouteDriverArea  = guard.RouteDriver + "/"
	RouteAdminArea   = guard.RouteAdmin + "/"
	RouteManagerArea = guard.RouteManager + "/"

	// Area actions
	RouteAdminAssignDelivery   = guard.RouteAdmin + "/deliveries/{number}/assign"
	RouteManagerDeliveryStatus = guard.RouteManager + "/deliveries/{number}/status"

	// Auth form targets
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"
)
