package api_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-delivery-console/api"
	"github.com/jrsteele09/go-delivery-console/api/apistub"
	"github.com/jrsteele09/go-delivery-console/credentials"
	"github.com/jrsteele09/go-delivery-console/credentials/repofake"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
	"github.com/jrsteele09/go-delivery-console/users"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *apistub.Backend
	store   *credentials.Store
	client  *api.Client

	lock    sync.Mutex
	signals []*api.UnauthorizedError
}

func setupTestFixture(t *testing.T, opts ...api.Option) *testFixture {
	t.Helper()
	f := &testFixture{backend: apistub.New(t)}

	store, err := credentials.NewStore(repofake.NewFakeCredentialRepo())
	require.NoError(t, err)
	f.store = store

	opts = append([]api.Option{api.WithUnauthorizedHandler(f.onUnauthorized)}, opts...)
	client, err := api.New(f.backend.URL(), store, opts...)
	require.NoError(t, err)
	f.client = client

	f.backend.AddAccount("secret1", users.User{ID: "u-1", Email: "a@b.com", Role: users.RoleDriver, Status: users.StatusActive})
	return f
}

func (f *testFixture) onUnauthorized(_ context.Context, err *api.UnauthorizedError) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.signals = append(f.signals, err)
}

func (f *testFixture) signalCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.signals)
}

func (f *testFixture) login(t *testing.T) *api.LoginResponse {
	t.Helper()
	resp, err := f.client.Login(context.Background(), api.LoginRequest{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, f.store.Save(context.Background(), resp.AccessToken, resp.RefreshToken, resp.User))
	return resp
}

func TestNew_Validation(t *testing.T) {
	store, err := credentials.NewStore(repofake.NewFakeCredentialRepo())
	require.NoError(t, err)

	_, err = api.New("", store)
	require.Error(t, err)
	_, err = api.New("not a url", store)
	require.Error(t, err)
	_, err = api.New("http://localhost:8081/api/v1", nil)
	require.Error(t, err)
}

func TestClient_NoTokenSendsNoAuthorization(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.Health(context.Background())
	require.NoError(t, err)

	reqs := f.backend.Requests()
	require.Len(t, reqs, 1)
	require.Empty(t, reqs[0].Authorization)
	require.NotEmpty(t, reqs[0].RequestID)
}

func TestClient_InjectsBearerToken(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.login(t)

	user, err := f.client.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u-1", user.ID)

	reqs := f.backend.Requests()
	require.Equal(t, "Bearer "+resp.AccessToken, reqs[len(reqs)-1].Authorization)
}

func TestClient_LoginResponse(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := f.client.Login(context.Background(), api.LoginRequest{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, "T1", resp.AccessToken)
	require.Equal(t, "R1", resp.RefreshToken)
	require.Equal(t, users.RoleDriver, resp.User.Role)
}

func TestClient_UnauthorizedOnDataCallRaisesSignalOnce(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.login(t)
	f.backend.Revoke(resp.AccessToken)

	_, err := f.client.ListDeliveries(context.Background(), deliverymodel.DeliveryFilters{})
	require.ErrorIs(t, err, api.ErrUnauthorized)

	var uerr *api.UnauthorizedError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, "/deliveries", uerr.Path)
	require.Equal(t, 1, f.signalCount())
	require.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
}

func TestClient_CredentialExchangesDoNotRaiseSignal(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.client.Login(ctx, api.LoginRequest{Email: "a@b.com", Password: "wrong-password"})
	require.ErrorIs(t, err, api.ErrUnauthorized)

	_, err = f.client.Refresh(ctx, "R-unknown")
	require.ErrorIs(t, err, api.ErrUnauthorized)

	err = f.client.Logout(ctx)
	require.ErrorIs(t, err, api.ErrUnauthorized)

	require.Zero(t, f.signalCount())
}

func TestClient_OtherStatusesPassThrough(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Override(http.MethodGet, "/deliveries/tracking/X1", http.StatusNotFound, map[string]string{"message": "Delivery not found"}, 1)

	_, err := f.client.TrackDelivery(context.Background(), "X1")
	var statusErr *api.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.Equal(t, "Delivery not found", statusErr.Message)
	require.Zero(t, f.signalCount())
}

func TestClient_TimeoutIsNetworkFailure(t *testing.T) {
	f := setupTestFixture(t, api.WithTimeout(50*time.Millisecond))
	f.backend.Delay(http.MethodGet, "/actuator/health", time.Second)

	_, err := f.client.Health(context.Background())
	require.ErrorIs(t, err, api.ErrNetworkFailure)
	require.Zero(t, api.StatusCode(err))
}

func TestClient_FiltersEncodedAsQuery(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.AddDelivery(deliverymodel.Delivery{TrackingNumber: "TRK1", Status: deliverymodel.DeliveryPending, DeliveryCity: "Lyon"})
	f.backend.AddDelivery(deliverymodel.Delivery{TrackingNumber: "TRK2", Status: deliverymodel.DeliveryDelivered, DeliveryCity: "Paris"})

	got, err := f.client.ListDeliveries(context.Background(), deliverymodel.DeliveryFilters{Status: deliverymodel.DeliveryPending, City: "Lyon"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "TRK1", got[0].TrackingNumber)

	reqs := f.backend.Requests()
	last := reqs[len(reqs)-1]
	require.Contains(t, last.RawQuery, "status=PENDING")
	require.Contains(t, last.RawQuery, "city=Lyon")
	require.NotContains(t, last.RawQuery, "driverId")
}

func TestClient_RefreshSendsRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.login(t)

	next, err := f.client.Refresh(context.Background(), resp.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "T2", next.AccessToken)

	reqs := f.backend.Requests()
	require.True(t, strings.Contains(string(reqs[len(reqs)-1].Body), `"refreshToken":"R1"`))
}

func TestClient_CircuitBreakerOpensOnServerErrors(t *testing.T) {
	settings := api.DefaultBreakerSettings("backend")
	settings.Timeout = time.Minute
	f := setupTestFixture(t, api.WithCircuitBreaker(settings))
	f.backend.Override(http.MethodGet, "/actuator/health", http.StatusServiceUnavailable, nil, -1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.client.Health(ctx)
		require.Equal(t, http.StatusServiceUnavailable, api.StatusCode(err))
	}

	_, err := f.client.Health(ctx)
	require.ErrorIs(t, err, api.ErrNetworkFailure)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, 3, f.backend.Count(http.MethodGet, "/actuator/health"))
}
