package guard

import (
	"path"
	"strings"

	"github.com/jrsteele09/go-delivery-console/sessions"
	"github.com/jrsteele09/go-delivery-console/users"
)

const (
	RouteRoot         = "/"
	RouteLogin        = "/login"
	RouteTracking     = "/tracking"
	RouteUnauthorized = "/unauthorized"
	RouteDashboard    = "/dashboard"
	RouteClient       = "/client"
	RouteDriver       = "/driver"
	RouteAdmin        = "/admin"
	RouteManager      = "/manager"
)

// Route describes one navigable area. A Prefix route matches its path and everything below it.
type Route struct {
	Name   string
	Path   string
	Prefix bool
	Public bool
	Role   users.RoleType
}

func (r Route) matches(p string) bool {
	if p == r.Path {
		return true
	}
	return r.Prefix && strings.HasPrefix(p, r.Path+"/")
}

// DefaultRoutes is the console's navigation table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "login", Path: RouteLogin, Public: true},
		{Name: "tracking", Path: RouteTracking, Public: true},
		{Name: "unauthorized", Path: RouteUnauthorized, Public: true},
		{Name: "dashboard", Path: RouteDashboard},
		{Name: "client", Path: RouteClient, Prefix: true, Role: users.RoleClient},
		{Name: "driver", Path: RouteDriver, Prefix: true, Role: users.RoleDriver},
		{Name: "admin", Path: RouteAdmin, Prefix: true, Role: users.RoleAdmin},
		{Name: "manager", Path: RouteManager, Prefix: true, Role: users.RoleManager},
	}
}

// Decision is the outcome of resolving a path. Location is set for every redirect verdict.
type Decision struct {
	Verdict  Verdict
	Route    Route
	Location string
}

// Router resolves paths against a route table. It holds no session state.
type Router struct {
	routes []Route
}

// NewRouter uses DefaultRoutes when no routes are given.
func NewRouter(routes ...Route) *Router {
	if len(routes) == 0 {
		routes = DefaultRoutes()
	}
	return &Router{routes: routes}
}

func (r *Router) Match(p string) (Route, bool) {
	p = normalise(p)
	for _, route := range r.routes {
		if route.matches(p) {
			return route, true
		}
	}
	return Route{}, false
}

func (r *Router) Resolve(p string, state sessions.State) Decision {
	p = normalise(p)
	if p == RouteRoot {
		return resolveRoot(state)
	}

	route, ok := r.Match(p)
	if !ok {
		return Decision{Verdict: VerdictNotFound}
	}
	if route.Public {
		return Decision{Verdict: VerdictRender, Route: route}
	}

	d := Decision{Verdict: Evaluate(state, route.Role), Route: route}
	switch d.Verdict {
	case VerdictRedirectToLogin:
		d.Location = RouteLogin
	case VerdictRedirectToUnauthorized:
		d.Location = RouteUnauthorized
	}
	return d
}

// the root only forwards; while a check is running it waits like a protected route
func resolveRoot(state sessions.State) Decision {
	root := Route{Name: "root", Path: RouteRoot, Public: true}
	switch {
	case state.IsLoading:
		return Decision{Verdict: VerdictLoading, Route: root}
	case state.IsAuthenticated:
		return Decision{Verdict: VerdictRedirect, Route: root, Location: RouteDashboard}
	default:
		return Decision{Verdict: VerdictRedirectToLogin, Route: root, Location: RouteLogin}
	}
}

func normalise(p string) string {
	if p == "" {
		return RouteRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Watch re-resolves p on every session change and reports the decision to fn, starting with the
// current one. Call cancel to stop.
func Watch(s *sessions.Session, r *Router, p string, fn func(Decision)) (cancel func()) {
	return s.Follow(func(state sessions.State) {
		fn(r.Resolve(p, state))
	})
}
