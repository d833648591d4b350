package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-delivery-console/api"
	"github.com/jrsteele09/go-delivery-console/auth"
	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
	"github.com/jrsteele09/go-delivery-console/internal/utils"
	"github.com/jrsteele09/go-delivery-console/users"
	"github.com/rs/zerolog/log"
)

// Page is the JSON model every shell page renders
type Page struct {
	Title   string            `json:"title"`
	User    *users.User       `json:"user,omitempty"`
	Loading bool              `json:"loading,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"` // per-field form errors
	Data    any               `json:"data,omitempty"`
}

type LoginForm struct {
	Action string `json:"action"`
	Email  string `json:"email,omitempty"`
}

type DashboardData struct {
	Deliveries *deliverymodel.DeliveryStats `json:"deliveries"`
	Drivers    *deliverymodel.DriverStats   `json:"drivers"`
}

type AreaData struct {
	Area       string                   `json:"area"`
	Path       string                   `json:"path"`
	Deliveries []deliverymodel.Delivery `json:"deliveries,omitempty"`
	Drivers    []deliverymodel.Driver   `json:"drivers,omitempty"`
}

type DeliveryData struct {
	Delivery *deliverymodel.Delivery `json:"delivery"`
}

type TrackingData struct {
	Number   string                  `json:"number,omitempty"`
	Delivery *deliverymodel.Delivery `json:"delivery,omitempty"`
}

// LoginPageHandler serves the sign-in form. Signed-in users go straight to the dashboard.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mustConsole(r)
		if c.Session.Snapshot().IsAuthenticated {
			redirect(w, r, RouteDashboard)
			return
		}
		writePage(w, http.StatusOK, Page{
			Title: "Sign in",
			Error: r.URL.Query().Get("error"),
			Data:  LoginForm{Action: RouteAuthLogin, Email: r.URL.Query().Get("email")},
		})
	}
}

// LoginHandler processes the sign-in form submission
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writePage(w, http.StatusBadRequest, errorPage("Invalid form data"))
			return
		}
		c := mustConsole(r)
		email := r.FormValue("email")

		user, err := c.Auth.Login(r.Context(), email, r.FormValue("password"))
		if err != nil {
			status, page := loginFailurePage(err)
			page.Data = LoginForm{Action: RouteAuthLogin, Email: email}
			writePage(w, status, page)
			return
		}
		log.Debug().Str("session", c.Session.ID).Str("userID", user.ID).Msg("Sign in form accepted")
		redirect(w, r, RouteDashboard)
	}
}

func loginFailurePage(err error) (int, Page) {
	page := Page{Title: "Sign in"}
	switch auth.Kind(err) {
	case auth.KindValidationFailure:
		page.Error = "Please correct the highlighted fields"
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			page.Fields = verr.Fields
		}
		return http.StatusUnprocessableEntity, page
	case auth.KindInvalidCredentials:
		page.Error = "Invalid email or password"
		return http.StatusUnauthorized, page
	case auth.KindAccountSuspended:
		page.Error = "Your account is suspended or inactive"
		return http.StatusForbidden, page
	case auth.KindNetworkFailure:
		page.Error = "Unable to reach the server, please try again"
		return http.StatusBadGateway, page
	default:
		log.Warn().Err(err).Msg("Sign in failed")
		page.Error = "Sign in failed, please try again"
		return http.StatusInternalServerError, page
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mustConsole(r).Auth.Logout(r.Context())
		redirect(w, r, RouteLogin)
	}
}

func (s *Server) UnauthorizedPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := mustConsole(r).Session.Snapshot()
		writePage(w, http.StatusForbidden, Page{
			Title: "Access denied",
			User:  state.User,
			Error: "You do not have permission to view this page",
		})
	}
}

// TrackingPageHandler is public: anyone can look up a delivery by tracking number.
func (s *Server) TrackingPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := strings.TrimSpace(r.URL.Query().Get("number"))
		if number == "" {
			writePage(w, http.StatusOK, Page{Title: "Track a delivery", Data: TrackingData{}})
			return
		}
		s.serveData(w, r, "Track a delivery", false, func(ctx context.Context, c *console.Console) (any, error) {
			d, err := c.Client.TrackDelivery(ctx, number)
			if err != nil {
				return nil, err
			}
			return TrackingData{Number: number, Delivery: d}, nil
		})
	}
}

func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveData(w, r, "Dashboard", true, func(ctx context.Context, c *console.Console) (any, error) {
			deliveries, err := c.Client.DeliveryStats(ctx)
			if err != nil {
				return nil, err
			}
			drivers, err := c.Client.DriverStats(ctx)
			if err != nil {
				return nil, err
			}
			return DashboardData{Deliveries: deliveries, Drivers: drivers}, nil
		})
	}
}

// ClientAreaHandler lists the client's deliveries, optionally filtered by status and city
func (s *Server) ClientAreaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := deliveryFilters(r)
		filters.DriverID = ""
		s.serveDeliveries(w, r, "Client area", filters)
	}
}

// DriverAreaHandler lists the deliveries assigned to the signed-in driver
func (s *Server) DriverAreaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := deliveryFilters(r)
		filters.DriverID = ""
		if u := mustConsole(r).Session.Snapshot().User; u != nil {
			filters.DriverID = u.ID
		}
		s.serveDeliveries(w, r, "Driver area", filters)
	}
}

// AdminAreaHandler lists the fleet's drivers
func (s *Server) AdminAreaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filters := deliverymodel.DriverFilters{
			Status: deliverymodel.DriverStatus(strings.ToUpper(q.Get("status"))),
			City:   q.Get("city"),
		}
		if available, err := strconv.ParseBool(q.Get("available")); err == nil {
			filters.Available = utils.Ptr(available)
		}
		s.serveData(w, r, "Administration", true, func(ctx context.Context, c *console.Console) (any, error) {
			drivers, err := c.Client.ListDrivers(ctx, filters)
			if err != nil {
				return nil, err
			}
			return AreaData{Area: areaName(r), Path: r.URL.Path, Drivers: drivers}, nil
		})
	}
}

// ManagerAreaHandler lists every delivery, filterable by status, driver, city and date range
func (s *Server) ManagerAreaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveDeliveries(w, r, "Operations", deliveryFilters(r))
	}
}

// AssignDeliveryHandler assigns a delivery to a driver and, optionally, a vehicle
func (s *Server) AssignDeliveryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writePage(w, http.StatusBadRequest, errorPage("Invalid form data"))
			return
		}
		params := deliverymodel.AssignParams{
			DriverID:  strings.TrimSpace(r.FormValue("driverId")),
			VehicleID: strings.TrimSpace(r.FormValue("vehicleId")),
		}
		if params.DriverID == "" {
			writePage(w, http.StatusUnprocessableEntity, Page{
				Title:  "Assign delivery",
				Error:  "Please correct the highlighted fields",
				Fields: map[string]string{"driverId": "Driver is required"},
			})
			return
		}
		number := r.PathValue("number")
		s.serveData(w, r, "Assign delivery", true, func(ctx context.Context, c *console.Console) (any, error) {
			d, err := c.Client.AssignDelivery(ctx, number, params)
			if err != nil {
				return nil, err
			}
			log.Info().Str("session", c.Session.ID).Str("delivery", number).Str("driverId", params.DriverID).Msg("Delivery assigned")
			return DeliveryData{Delivery: d}, nil
		})
	}
}

// DeliveryStatusHandler moves a delivery to the posted status
func (s *Server) DeliveryStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writePage(w, http.StatusBadRequest, errorPage("Invalid form data"))
			return
		}
		req := deliverymodel.UpdateDeliveryStatusRequest{
			Status: deliverymodel.DeliveryStatus(strings.ToUpper(strings.TrimSpace(r.FormValue("status")))),
			Notes:  r.FormValue("notes"),
		}
		if err := auth.Validate(&req); err != nil {
			page := Page{Title: "Update delivery", Error: "Please correct the highlighted fields"}
			var verr *auth.ValidationError
			if errors.As(err, &verr) {
				page.Fields = verr.Fields
			}
			writePage(w, http.StatusUnprocessableEntity, page)
			return
		}
		number := r.PathValue("number")
		s.serveData(w, r, "Update delivery", true, func(ctx context.Context, c *console.Console) (any, error) {
			d, err := c.Client.UpdateDeliveryStatus(ctx, number, req)
			if err != nil {
				return nil, err
			}
			return DeliveryData{Delivery: d}, nil
		})
	}
}

// NotFoundHandler answers paths no page claims
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePage(w, http.StatusNotFound, errorPage("Page not found"))
	}
}

func (s *Server) serveDeliveries(w http.ResponseWriter, r *http.Request, title string, filters deliverymodel.DeliveryFilters) {
	s.serveData(w, r, title, true, func(ctx context.Context, c *console.Console) (any, error) {
		deliveries, err := c.Client.ListDeliveries(ctx, filters)
		if err != nil {
			return nil, err
		}
		return AreaData{Area: areaName(r), Path: r.URL.Path, Deliveries: deliveries}, nil
	})
}

// serveData renders the result of a page's data fetch. Protected pages refresh a token that is about to
// expire first. A fetch rejected with 401 has already signed the console out, so the browser is sent to
// the console's pending redirect.
func (s *Server) serveData(w http.ResponseWriter, r *http.Request, title string, protected bool, fetch func(ctx context.Context, c *console.Console) (any, error)) {
	c := mustConsole(r)
	ctx := r.Context()
	_, _ = c.TakeRedirect() // only a redirect raised by this fetch counts

	if protected {
		if err := c.Auth.EnsureFreshToken(ctx); err != nil {
			log.Warn().Err(err).Str("session", c.Session.ID).Msg("Token refresh before page fetch failed")
		}
		if !c.Session.Snapshot().IsAuthenticated {
			redirect(w, r, RouteLogin)
			return
		}
	}

	data, err := fetch(ctx, c)
	if err != nil {
		if location, ok := c.TakeRedirect(); ok {
			redirect(w, r, location)
			return
		}
		status, msg := fetchFailure(err)
		log.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Page data fetch failed")
		writePage(w, status, Page{Title: title, User: c.Session.Snapshot().User, Error: msg})
		return
	}
	writePage(w, http.StatusOK, Page{Title: title, User: c.Session.Snapshot().User, Data: data})
}

func fetchFailure(err error) (int, string) {
	switch code := api.StatusCode(err); {
	case errors.Is(err, api.ErrNetworkFailure):
		return http.StatusBadGateway, "Unable to reach the server, please try again"
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized, "Your session has ended"
	case code == http.StatusNotFound:
		return http.StatusNotFound, "Not found"
	case code >= 400 && code < 500:
		return code, "The request was rejected"
	default:
		return http.StatusBadGateway, "The server could not complete the request"
	}
}

func deliveryFilters(r *http.Request) deliverymodel.DeliveryFilters {
	q := r.URL.Query()
	return deliverymodel.DeliveryFilters{
		Status:   deliverymodel.DeliveryStatus(strings.ToUpper(q.Get("status"))),
		DriverID: q.Get("driverId"),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
		City:     q.Get("city"),
	}
}

// areaName is the name of the guarded route serving r
func areaName(r *http.Request) string {
	d, _ := DecisionFrom(r.Context())
	return d.Route.Name
}

// mustConsole is only called from handlers chained after ConsoleMiddleware
func mustConsole(r *http.Request) *console.Console {
	c, ok := ConsoleFrom(r.Context())
	if !ok {
		panic("server: handler reached without a console")
	}
	return c
}

func errorPage(msg string) Page {
	return Page{Title: "Error", Error: msg}
}

func writePage(w http.ResponseWriter, status int, page Page) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(page); err != nil {
		log.Warn().Err(err).Msg("Failed to write page")
	}
}

// redirect is htmx aware: htmx requests get an HX-Redirect header instead of a 303
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
