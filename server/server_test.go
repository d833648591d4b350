package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-delivery-console/api/apistub"
	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
	"github.com/jrsteele09/go-delivery-console/internal/config"
	"github.com/jrsteele09/go-delivery-console/server"
	"github.com/jrsteele09/go-delivery-console/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	navLock     sync.Mutex
	navigations []string

	backend *apistub.Backend
	memory  *console.MemoryStore
	server  *server.Server
	http    *httptest.Server
	browser *http.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("ENV", "DEV")
	t.Setenv("SESSION_COOKIE", "")

	b := apistub.New(t)
	b.AddAccount("secret1", users.User{ID: "admin-1", Email: "admin@example.com", Role: users.RoleAdmin, Status: users.StatusActive})
	b.AddAccount("secret1", users.User{ID: "drv-1", Email: "driver@example.com", Role: users.RoleDriver, Status: users.StatusActive})
	b.AddAccount("secret1", users.User{ID: "u-9", Email: "gone@example.com", Role: users.RoleClient, Status: users.StatusSuspended})
	b.AddAccount("secret1", users.User{ID: "mgr-1", Email: "manager@example.com", Role: users.RoleManager, Status: users.StatusActive})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	f := &testFixture{
		backend: b,
		memory:  console.NewMemoryStore(),
		browser: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	f.start(t)
	return f
}

// start (re)starts the shell against the same credential repos, as after a process restart
func (f *testFixture) start(t *testing.T, opts ...server.Option) {
	t.Helper()
	if f.http != nil {
		f.http.Close()
		f.server.Close()
	}
	opts = append([]server.Option{server.WithConsoleOptions(console.WithNavigator(f))}, opts...)
	s, err := server.New(config.New(), console.Settings{APIBaseURL: f.backend.URL(), RequestTimeout: 2 * time.Second}, f.memory.Repo, opts...)
	require.NoError(t, err)
	f.server = s
	f.http = httptest.NewServer(s)
	t.Cleanup(func() {
		f.http.Close()
		f.server.Close()
	})
}

// Navigate records forced sign-outs from every console
func (f *testFixture) Navigate(_ context.Context, location string) {
	f.navLock.Lock()
	defer f.navLock.Unlock()
	f.navigations = append(f.navigations, location)
}

func (f *testFixture) navigated() []string {
	f.navLock.Lock()
	defer f.navLock.Unlock()
	return append([]string(nil), f.navigations...)
}

func (f *testFixture) get(t *testing.T, path string) (*http.Response, server.Page) {
	t.Helper()
	resp, err := f.browser.Get(f.http.URL + path)
	require.NoError(t, err)
	return resp, readPage(t, resp)
}

func (f *testFixture) post(t *testing.T, path string, form url.Values) (*http.Response, server.Page) {
	t.Helper()
	resp, err := f.browser.PostForm(f.http.URL+path, form)
	require.NoError(t, err)
	return resp, readPage(t, resp)
}

func (f *testFixture) login(t *testing.T, email string) {
	t.Helper()
	resp, _ := f.post(t, server.RouteAuthLogin, url.Values{"email": {email}, "password": {"secret1"}})
	requireRedirect(t, resp, server.RouteDashboard)
}

func readPage(t *testing.T, resp *http.Response) server.Page {
	t.Helper()
	defer resp.Body.Close()
	var page server.Page
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	}
	return page
}

func requireRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, location, resp.Header.Get("Location"))
}

func TestNew_Validation(t *testing.T) {
	settings := console.Settings{APIBaseURL: "http://localhost"}
	_, err := server.New(nil, settings, console.MemoryRepos())
	require.Error(t, err)
	_, err = server.New(config.New(), settings, nil)
	require.Error(t, err)
	_, err = server.New(config.New(), console.Settings{}, console.MemoryRepos())
	require.Error(t, err)
}

func TestRoot_SignedOutGoesToLogin(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.get(t, "/")
	requireRedirect(t, resp, server.RouteLogin)
	require.Zero(t, f.server.Sessions())

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "console_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	// The same browser keeps its cookie, and no console is held while it is signed out
	resp, _ = f.get(t, server.RouteLogin)
	require.Empty(t, resp.Cookies())
	require.Zero(t, f.server.Sessions())
	require.Zero(t, f.memory.Namespaces())
}

func TestAnonymousVisitors_DoNotAccumulateConsoles(t *testing.T) {
	f := setupTestFixture(t)
	visitor := &http.Client{}

	for i := 0; i < 200; i++ {
		req, err := http.NewRequest(http.MethodGet, f.http.URL+server.RouteLogin, nil)
		require.NoError(t, err)
		if i%2 == 0 {
			req.AddCookie(&http.Cookie{Name: "console_session", Value: uuid.New().String()})
		}
		resp, err := visitor.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	require.Zero(t, f.server.Sessions())
	require.Zero(t, f.memory.Namespaces())

	f.login(t, "admin@example.com")
	require.Equal(t, 1, f.server.Sessions())
	require.Equal(t, 1, f.memory.Namespaces())
}

func TestIdleConsoles_AreEvictedAndRestored(t *testing.T) {
	f := setupTestFixture(t)
	f.start(t, server.WithIdleTimeout(200*time.Millisecond))
	f.login(t, "admin@example.com")
	require.Equal(t, 1, f.server.Sessions())

	require.Eventually(t, func() bool {
		return f.server.Sessions() == 0
	}, 2*time.Second, 10*time.Millisecond)

	resp, page := f.get(t, server.RouteDashboard)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "admin@example.com", page.User.Email)
	require.Equal(t, 1, f.backend.Count(http.MethodGet, "/auth/profile"))
}

func TestProtectedPages_RedirectWhenSignedOut(t *testing.T) {
	f := setupTestFixture(t)

	for _, path := range []string{"/dashboard", "/admin/", "/client/orders", "/manager/"} {
		resp, _ := f.get(t, path)
		requireRedirect(t, resp, server.RouteLogin)
	}
	require.Zero(t, f.backend.Count(http.MethodGet, "/stats/deliveries"))
}

func TestUnknownPath_NotFound(t *testing.T) {
	f := setupTestFixture(t)

	resp, page := f.get(t, "/nowhere")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Page not found", page.Error)
}

func TestLogin_ThenDashboard(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddDelivery(deliverymodel.Delivery{ID: 1, TrackingNumber: "TRK1", Status: deliverymodel.DeliveryPending})

	resp, page := f.get(t, server.RouteLogin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Sign in", page.Title)

	f.login(t, "admin@example.com")

	resp, page = f.get(t, server.RouteDashboard)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, page.User)
	require.Equal(t, "admin@example.com", page.User.Email)
	require.NotNil(t, page.Data)

	resp, _ = f.get(t, "/")
	requireRedirect(t, resp, server.RouteDashboard)
	resp, _ = f.get(t, server.RouteLogin)
	requireRedirect(t, resp, server.RouteDashboard)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		status   int
		fields   map[string]string
	}{
		{"invalid credentials", "admin@example.com", "wrong-password", http.StatusUnauthorized, nil},
		{"suspended account", "gone@example.com", "secret1", http.StatusForbidden, nil},
		{"validation", "not-an-email", "123", http.StatusUnprocessableEntity, map[string]string{
			"email":    "Invalid email address",
			"password": "Password must contain at least 6 characters",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)

			resp, page := f.post(t, server.RouteAuthLogin, url.Values{"email": {tt.email}, "password": {tt.password}})
			require.Equal(t, tt.status, resp.StatusCode)
			require.NotEmpty(t, page.Error)
			require.Equal(t, tt.fields, page.Fields)

			resp, _ = f.get(t, server.RouteDashboard)
			requireRedirect(t, resp, server.RouteLogin)
		})
	}
}

func TestRoleAreas(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddDriver(deliverymodel.Driver{ID: 1, DriverID: "drv-1", FirstName: "Dee"})
	f.login(t, "admin@example.com")

	resp, page := f.get(t, "/admin/drivers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Administration", page.Title)
	data, ok := page.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "admin", data["area"])
	require.Len(t, data["drivers"], 1)

	resp, _ = f.get(t, "/driver/")
	requireRedirect(t, resp, server.RouteUnauthorized)

	resp, page = f.get(t, server.RouteUnauthorized)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "admin@example.com", page.User.Email)
}

func TestAdminArea_AssignsDelivery(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddDelivery(deliverymodel.Delivery{ID: 1, TrackingNumber: "TRK1", Status: deliverymodel.DeliveryPending})
	f.login(t, "admin@example.com")

	resp, page := f.post(t, "/admin/deliveries/TRK1/assign", url.Values{"driverId": {"drv-1"}, "vehicleId": {"veh-1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := page.Data.(map[string]any)
	require.True(t, ok)
	delivery, ok := data["delivery"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "ASSIGNED", delivery["status"])

	stored := f.backend.Deliveries()
	require.Equal(t, "drv-1", stored[0].DriverID)
	require.Equal(t, "veh-1", stored[0].VehicleID)

	resp, page = f.post(t, "/admin/deliveries/TRK1/assign", url.Values{})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, map[string]string{"driverId": "Driver is required"}, page.Fields)
	require.Equal(t, 1, f.backend.Count(http.MethodPut, "/deliveries/TRK1/assign"))

	resp, _ = f.post(t, "/admin/deliveries/NOPE/assign", url.Values{"driverId": {"drv-1"}})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestManagerArea_UpdatesDeliveryStatus(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddDelivery(deliverymodel.Delivery{ID: 1, TrackingNumber: "TRK1", Status: deliverymodel.DeliveryInTransit})
	f.login(t, "manager@example.com")

	resp, _ := f.post(t, "/manager/deliveries/TRK1/status", url.Values{"status": {"delivered"}, "notes": {"signed by J"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, deliverymodel.DeliveryDelivered, f.backend.Deliveries()[0].Status)

	resp, page := f.post(t, "/manager/deliveries/TRK1/status", url.Values{})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, page.Fields, "status")

	// Another role's action is refused before any backend call
	resp, _ = f.post(t, "/admin/deliveries/TRK1/assign", url.Values{"driverId": {"drv-1"}})
	requireRedirect(t, resp, server.RouteUnauthorized)
	require.Zero(t, f.backend.Count(http.MethodPut, "/deliveries/TRK1/assign"))
}

func TestAreaAction_RejectedSessionRedirectsToLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddDelivery(deliverymodel.Delivery{ID: 1, TrackingNumber: "TRK1", Status: deliverymodel.DeliveryPending})
	f.login(t, "admin@example.com")
	f.backend.Override(http.MethodPut, "/deliveries/TRK1/assign", http.StatusUnauthorized, map[string]string{"message": "expired"}, 1)

	resp, _ := f.post(t, "/admin/deliveries/TRK1/assign", url.Values{"driverId": {"drv-1"}})
	requireRedirect(t, resp, server.RouteLogin)
	require.Equal(t, []string{server.RouteLogin}, f.navigated())
	require.Zero(t, f.server.Sessions())
}

func TestDriverArea_ListsOwnDeliveries(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddDelivery(deliverymodel.Delivery{ID: 1, TrackingNumber: "TRK1", DriverID: "drv-1", Status: deliverymodel.DeliveryAssigned})
	f.backend.AddDelivery(deliverymodel.Delivery{ID: 2, TrackingNumber: "TRK2", DriverID: "drv-2", Status: deliverymodel.DeliveryAssigned})
	f.login(t, "driver@example.com")

	resp, _ := f.get(t, "/driver/?status=assigned")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed *apistub.Request
	for _, req := range f.backend.Requests() {
		if req.Method == http.MethodGet && req.Path == "/deliveries" {
			r := req
			listed = &r
		}
	}
	require.NotNil(t, listed)
	q, err := url.ParseQuery(listed.RawQuery)
	require.NoError(t, err)
	require.Equal(t, "drv-1", q.Get("driverId"))
	require.Equal(t, "ASSIGNED", q.Get("status"))
}

func TestRejectedFetch_SignsOutAndRedirects(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")

	f.backend.Override(http.MethodGet, "/stats/deliveries", http.StatusUnauthorized, map[string]string{"message": "expired"}, 1)

	resp, _ := f.get(t, server.RouteDashboard)
	requireRedirect(t, resp, server.RouteLogin)

	require.Equal(t, []string{server.RouteLogin}, f.navigated())

	resp, _ = f.get(t, server.RouteDashboard)
	requireRedirect(t, resp, server.RouteLogin)
	require.Equal(t, 1, f.backend.Count(http.MethodGet, "/stats/deliveries"))
}

func TestFetchFailure_RendersError(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")
	f.backend.Override(http.MethodGet, "/stats/drivers", http.StatusInternalServerError, nil, 1)

	resp, page := f.get(t, server.RouteDashboard)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.NotEmpty(t, page.Error)

	// Still signed in
	resp, _ = f.get(t, server.RouteDashboard)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")

	resp, _ := f.post(t, server.RouteAuthLogout, nil)
	requireRedirect(t, resp, server.RouteLogin)
	require.Equal(t, 1, f.backend.Count(http.MethodPost, "/auth/logout"))

	resp, _ = f.get(t, server.RouteDashboard)
	requireRedirect(t, resp, server.RouteLogin)
}

func TestTracking_IsPublic(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddDelivery(deliverymodel.Delivery{ID: 7, TrackingNumber: "TRK7", Status: deliverymodel.DeliveryInTransit})

	resp, page := f.get(t, "/tracking")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Track a delivery", page.Title)

	resp, _ = f.get(t, "/tracking?number=TRK7")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.get(t, "/tracking?number=NOPE")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRestart_RestoresSessionFromStore(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")

	f.start(t)
	require.Zero(t, f.server.Sessions())

	resp, _ := f.get(t, "/")
	requireRedirect(t, resp, server.RouteDashboard)
	require.Equal(t, 1, f.backend.Count(http.MethodGet, "/auth/profile"))
}

func TestRestart_RevokedSessionGoesToLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")
	f.backend.Revoke("T1")

	f.start(t)
	resp, _ := f.get(t, server.RouteDashboard)
	requireRedirect(t, resp, server.RouteLogin)

	// No stale redirect leaks into later pages
	resp, _ = f.get(t, "/tracking?number=NOPE")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoadingWhileSessionIsRestored(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")
	f.start(t)
	f.backend.Delay(http.MethodGet, "/auth/profile", 300*time.Millisecond)

	first := make(chan int, 1)
	go func() {
		resp, err := f.browser.Get(f.http.URL + server.RouteDashboard)
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()

	require.Eventually(t, func() bool {
		return f.backend.Count(http.MethodGet, "/auth/profile") == 1
	}, time.Second, 5*time.Millisecond)

	resp, page := f.get(t, server.RouteDashboard)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("Retry-After"))
	require.True(t, page.Loading)

	require.Equal(t, http.StatusOK, <-first)
}

func TestHTMXRedirect(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.http.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, err := f.browser.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, server.RouteLogin, resp.Header.Get("HX-Redirect"))
}

func TestClose_TearsDownConsoles(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")
	require.Equal(t, 1, f.server.Sessions())

	f.server.Close()
	require.Zero(t, f.server.Sessions())
}
