// Package apistub runs an in-process stand-in for the delivery backend. It issues tokens, serves
// the auth and business endpoints the console uses, and records every request it sees.
package apistub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
	"github.com/jrsteele09/go-delivery-console/users"
)

const BasePath = "/api/v1"

type Request struct {
	Method        string
	Path          string // relative to BasePath
	RawQuery      string
	Authorization string
	RequestID     string
	Body          []byte
}

type override struct {
	status int
	body   any
	delay  time.Duration
	times  int // remaining uses, <0 means forever
}

type account struct {
	password string
	user     users.User
}

type Backend struct {
	server *httptest.Server

	lock       sync.Mutex
	accounts   map[string]account
	access     map[string]string // access token -> email
	refresh    map[string]string // refresh token -> email
	issued     int
	jwtTTL     time.Duration
	overrides  map[string]*override
	requests   []Request
	deliveries []deliverymodel.Delivery
	drivers    []deliverymodel.Driver
	vehicles   []deliverymodel.Vehicle
}

// New starts a backend that is shut down when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		accounts:  make(map[string]account),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		overrides: make(map[string]*override),
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

// URL is the API base URL to hand to api.New.
func (b *Backend) URL() string {
	return b.server.URL + BasePath
}

func (b *Backend) AddAccount(password string, u users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.accounts[strings.ToLower(u.Email)] = account{password: password, user: u}
}

// SetUserStatus changes the status returned for the account on later calls.
func (b *Backend) SetUserStatus(email string, status users.StatusType) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if acc, ok := b.accounts[strings.ToLower(email)]; ok {
		acc.user.Status = status
		b.accounts[strings.ToLower(email)] = acc
	}
}

// IssueJWT makes later logins and refreshes hand out HS256 access tokens expiring after ttl.
func (b *Backend) IssueJWT(ttl time.Duration) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.jwtTTL = ttl
}

// Override answers method+path with status and body instead of the normal handler.
// times limits how many requests are affected; a negative value means every request.
func (b *Backend) Override(method, path string, status int, body any, times int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.overrides[method+" "+path] = &override{status: status, body: body, times: times}
}

// Delay holds requests to method+path for d before answering normally.
func (b *Backend) Delay(method, path string, d time.Duration) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.overrides[method+" "+path] = &override{delay: d, times: -1}
}

func (b *Backend) ClearOverrides() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.overrides = make(map[string]*override)
}

// Revoke invalidates an access token so later authenticated calls get 401.
func (b *Backend) Revoke(accessToken string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.access, accessToken)
}

func (b *Backend) AddDelivery(d deliverymodel.Delivery) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.deliveries = append(b.deliveries, d)
}

func (b *Backend) AddDriver(d deliverymodel.Driver) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.drivers = append(b.drivers, d)
}

func (b *Backend) AddVehicle(v deliverymodel.Vehicle) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.vehicles = append(b.vehicles, v)
}

// Deliveries returns the deliveries as the backend currently holds them.
func (b *Backend) Deliveries() []deliverymodel.Delivery {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]deliverymodel.Delivery(nil), b.deliveries...)
}

func (b *Backend) Requests() []Request {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Count returns how many requests hit method+path.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+BasePath+"/auth/login", b.login)
	mux.HandleFunc("POST "+BasePath+"/auth/logout", b.logout)
	mux.HandleFunc("POST "+BasePath+"/auth/refresh", b.refreshTokens)
	mux.HandleFunc("GET "+BasePath+"/auth/profile", b.authenticated(b.profile))
	mux.HandleFunc("GET "+BasePath+"/deliveries", b.authenticated(b.listDeliveries))
	mux.HandleFunc("GET "+BasePath+"/deliveries/tracking/{number}", b.trackDelivery)
	mux.HandleFunc("GET "+BasePath+"/stats/deliveries", b.authenticated(b.deliveryStats))
	mux.HandleFunc("GET "+BasePath+"/stats/drivers", b.authenticated(b.driverStats))
	mux.HandleFunc("GET "+BasePath+"/drivers", b.authenticated(b.listDrivers))
	b.fleetRoutes(mux)
	mux.HandleFunc("GET "+BasePath+"/actuator/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deliverymodel.Health{Status: "UP"})
	})
	return b.record(mux)
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		path := strings.TrimPrefix(r.URL.Path, BasePath)

		b.lock.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		ov := b.overrides[r.Method+" "+path]
		var use *override
		if ov != nil && ov.times != 0 {
			cp := *ov
			use = &cp
			if ov.times > 0 {
				ov.times--
			}
		}
		b.lock.Unlock()

		if use != nil {
			if use.delay > 0 {
				select {
				case <-time.After(use.delay):
				case <-r.Context().Done():
					return
				}
			}
			if use.status != 0 {
				writeJSON(w, use.status, use.body)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	b.lock.Lock()
	acc, ok := b.accounts[strings.ToLower(req.Email)]
	b.lock.Unlock()
	if !ok || acc.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if acc.user.Status == users.StatusSuspended || acc.user.Status == users.StatusInactive {
		writeError(w, http.StatusForbidden, "Account is not active")
		return
	}
	writeJSON(w, http.StatusOK, b.issue(acc.user))
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	b.lock.Lock()
	_, ok := b.access[token]
	delete(b.access, token)
	b.lock.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	b.lock.Lock()
	email, ok := b.refresh[req.RefreshToken]
	delete(b.refresh, req.RefreshToken)
	acc := b.accounts[email]
	b.lock.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, b.issue(acc.user))
}

func (b *Backend) profile(w http.ResponseWriter, _ *http.Request, u users.User) {
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) listDeliveries(w http.ResponseWriter, r *http.Request, _ users.User) {
	status := r.URL.Query().Get("status")
	city := r.URL.Query().Get("city")
	driverID := r.URL.Query().Get("driverId")

	b.lock.Lock()
	defer b.lock.Unlock()
	out := []deliverymodel.Delivery{}
	for _, d := range b.deliveries {
		if status != "" && string(d.Status) != status {
			continue
		}
		if city != "" && d.DeliveryCity != city && d.PickupCity != city {
			continue
		}
		if driverID != "" && d.DriverID != driverID {
			continue
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) trackDelivery(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("number")
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, d := range b.deliveries {
		if d.TrackingNumber == number {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Delivery not found")
}

func (b *Backend) deliveryStats(w http.ResponseWriter, _ *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	var stats deliverymodel.DeliveryStats
	for _, d := range b.deliveries {
		stats.Total++
		switch d.Status {
		case deliverymodel.DeliveryPending:
			stats.Pending++
		case deliverymodel.DeliveryInTransit, deliverymodel.DeliveryOutForDelivery:
			stats.InTransit++
		case deliverymodel.DeliveryDelivered:
			stats.Delivered++
			stats.Revenue += d.Price
		case deliverymodel.DeliveryFailed:
			stats.Failed++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (b *Backend) driverStats(w http.ResponseWriter, _ *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	stats := deliverymodel.DriverStats{TotalDrivers: len(b.drivers)}
	for _, d := range b.drivers {
		switch d.Status {
		case deliverymodel.DriverAvailable:
			stats.AvailableDrivers++
		case deliverymodel.DriverBusy, deliverymodel.DriverOnDelivery:
			stats.BusyDrivers++
		case deliverymodel.DriverOffline:
			stats.OfflineDrivers++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (b *Backend) listDrivers(w http.ResponseWriter, _ *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := append([]deliverymodel.Driver{}, b.drivers...)
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) authenticated(h func(http.ResponseWriter, *http.Request, users.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.lock.Lock()
		email, ok := b.access[bearer(r)]
		acc := b.accounts[email]
		b.lock.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token expired or invalid")
			return
		}
		h(w, r, acc.user)
	}
}

type tokenPair struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         users.User `json:"user"`
}

func (b *Backend) issue(u users.User) tokenPair {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.issued++
	access := fmt.Sprintf("T%d", b.issued)
	if b.jwtTTL > 0 {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": u.ID,
			"jti": access,
			"exp": time.Now().Add(b.jwtTTL).Unix(),
		}).SignedString([]byte("apistub"))
		if err == nil {
			access = signed
		}
	}
	refresh := fmt.Sprintf("R%d", b.issued)
	email := strings.ToLower(u.Email)
	b.access[access] = email
	b.refresh[refresh] = email
	return tokenPair{AccessToken: access, RefreshToken: refresh, User: b.accounts[email].user}
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
