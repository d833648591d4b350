package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-delivery-console/api"
	"github.com/jrsteele09/go-delivery-console/api/apistub"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
	"github.com/stretchr/testify/require"
)

type endpointCase struct {
	name   string
	method string
	path   string
	call   func(ctx context.Context, c *api.Client) (any, error)
	check  func(t *testing.T, req apistub.Request, result any)
}

func seedFleet(b *apistub.Backend) {
	b.AddDelivery(deliverymodel.Delivery{ID: 1, TrackingNumber: "TRK1", DriverID: "drv-1", Status: deliverymodel.DeliveryInTransit})
	b.AddDriver(deliverymodel.Driver{ID: 1, DriverID: "drv-1", FirstName: "Dee", Status: deliverymodel.DriverAvailable})
	b.AddDriver(deliverymodel.Driver{ID: 2, DriverID: "drv-2", FirstName: "Rui", Status: deliverymodel.DriverOffline})
	b.AddVehicle(deliverymodel.Vehicle{ID: 1, VehicleID: "veh-1", Type: deliverymodel.VehicleVan, Status: deliverymodel.VehicleAvailable})
	b.AddVehicle(deliverymodel.Vehicle{ID: 2, VehicleID: "veh-2", Type: deliverymodel.VehicleCar, Status: deliverymodel.VehicleMaintenance})
}

func requireJSONBody(t *testing.T, req apistub.Request, want map[string]any) {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &got))
	for k, v := range want {
		require.Equal(t, v, got[k], k)
	}
}

func endpointCases() []endpointCase {
	return []endpointCase{
		{
			name: "create delivery", method: http.MethodPost, path: "/deliveries",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.CreateDelivery(ctx, deliverymodel.CreateDeliveryRequest{
					CustomerName: "Jo", CustomerPhone: "555", PickupAddress: "1 A St", DeliveryAddress: "2 B St",
					PickupCity: "Leeds", DeliveryCity: "York", Weight: 2.5, Price: 12,
				})
			},
			check: func(t *testing.T, req apistub.Request, result any) {
				requireJSONBody(t, req, map[string]any{"customerName": "Jo", "deliveryCity": "York", "weight": 2.5})
				d := result.(*deliverymodel.Delivery)
				require.Equal(t, "TRK0002", d.TrackingNumber)
				require.Equal(t, deliverymodel.DeliveryPending, d.Status)
			},
		},
		{
			name: "get delivery", method: http.MethodGet, path: "/deliveries/TRK1",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.GetDelivery(ctx, "TRK1")
			},
			check: func(t *testing.T, _ apistub.Request, result any) {
				require.Equal(t, "drv-1", result.(*deliverymodel.Delivery).DriverID)
			},
		},
		{
			name: "deliveries by status", method: http.MethodGet, path: "/deliveries/status/IN_TRANSIT",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.DeliveriesByStatus(ctx, deliverymodel.DeliveryInTransit)
			},
			check: func(t *testing.T, _ apistub.Request, result any) {
				require.Len(t, result, 1)
			},
		},
		{
			name: "deliveries by driver", method: http.MethodGet, path: "/deliveries/driver/drv-1",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.DeliveriesByDriver(ctx, "drv-1")
			},
			check: func(t *testing.T, _ apistub.Request, result any) {
				require.Len(t, result, 1)
			},
		},
		{
			name: "update delivery status", method: http.MethodPut, path: "/deliveries/TRK1/status",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.UpdateDeliveryStatus(ctx, "TRK1", deliverymodel.UpdateDeliveryStatusRequest{Status: deliverymodel.DeliveryDelivered, Notes: "left at door"})
			},
			check: func(t *testing.T, req apistub.Request, result any) {
				requireJSONBody(t, req, map[string]any{"status": "DELIVERED", "notes": "left at door"})
				require.Equal(t, deliverymodel.DeliveryDelivered, result.(*deliverymodel.Delivery).Status)
			},
		},
		{
			name: "assign delivery", method: http.MethodPut, path: "/deliveries/TRK1/assign",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.AssignDelivery(ctx, "TRK1", deliverymodel.AssignParams{DriverID: "drv-2", VehicleID: "veh-1"})
			},
			check: func(t *testing.T, req apistub.Request, result any) {
				q, err := url.ParseQuery(req.RawQuery)
				require.NoError(t, err)
				require.Equal(t, "drv-2", q.Get("driverId"))
				require.Equal(t, "veh-1", q.Get("vehicleId"))
				require.Empty(t, req.Body)

				d := result.(*deliverymodel.Delivery)
				require.Equal(t, deliverymodel.DeliveryAssigned, d.Status)
				require.Equal(t, "veh-1", d.VehicleID)
			},
		},
		{
			name: "get driver", method: http.MethodGet, path: "/drivers/drv-1",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.GetDriver(ctx, "drv-1")
			},
			check: func(t *testing.T, _ apistub.Request, result any) {
				require.Equal(t, "Dee", result.(*deliverymodel.Driver).FirstName)
			},
		},
		{
			name: "available drivers", method: http.MethodGet, path: "/drivers/available",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.AvailableDrivers(ctx)
			},
			check: func(t *testing.T, _ apistub.Request, result any) {
				drivers := result.([]deliverymodel.Driver)
				require.Len(t, drivers, 1)
				require.Equal(t, "drv-1", drivers[0].DriverID)
			},
		},
		{
			name: "update driver status", method: http.MethodPut, path: "/drivers/drv-1/status",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.UpdateDriverStatus(ctx, "drv-1", deliverymodel.DriverOnBreak)
			},
			check: func(t *testing.T, req apistub.Request, result any) {
				requireJSONBody(t, req, map[string]any{"status": "ON_BREAK"})
				require.Equal(t, deliverymodel.DriverOnBreak, result.(*deliverymodel.Driver).Status)
			},
		},
		{
			name: "update driver location", method: http.MethodPut, path: "/drivers/drv-1/location",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.UpdateDriverLocation(ctx, "drv-1", deliverymodel.Coordinates{Latitude: 53.8, Longitude: -1.55})
			},
			check: func(t *testing.T, req apistub.Request, result any) {
				requireJSONBody(t, req, map[string]any{"latitude": 53.8, "longitude": -1.55})
				require.Equal(t, "53.800000,-1.550000", result.(*deliverymodel.Driver).CurrentLocation)
			},
		},
		{
			name: "list vehicles", method: http.MethodGet, path: "/vehicles",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.ListVehicles(ctx)
			},
			check: func(t *testing.T, _ apistub.Request, result any) {
				require.Len(t, result, 2)
			},
		},
		{
			name: "get vehicle", method: http.MethodGet, path: "/vehicles/veh-2",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.GetVehicle(ctx, "veh-2")
			},
			check: func(t *testing.T, _ apistub.Request, result any) {
				require.Equal(t, deliverymodel.VehicleCar, result.(*deliverymodel.Vehicle).Type)
			},
		},
		{
			name: "available vehicles", method: http.MethodGet, path: "/vehicles/available",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.AvailableVehicles(ctx)
			},
			check: func(t *testing.T, _ apistub.Request, result any) {
				vehicles := result.([]deliverymodel.Vehicle)
				require.Len(t, vehicles, 1)
				require.Equal(t, "veh-1", vehicles[0].VehicleID)
			},
		},
		{
			name: "update vehicle status", method: http.MethodPut, path: "/vehicles/veh-1/status",
			call: func(ctx context.Context, c *api.Client) (any, error) {
				return c.UpdateVehicleStatus(ctx, "veh-1", deliverymodel.VehicleInUse)
			},
			check: func(t *testing.T, req apistub.Request, result any) {
				requireJSONBody(t, req, map[string]any{"status": "IN_USE"})
				require.Equal(t, deliverymodel.VehicleInUse, result.(*deliverymodel.Vehicle).Status)
			},
		},
	}
}

func TestEndpoints(t *testing.T) {
	for _, tt := range endpointCases() {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			seedFleet(f.backend)
			login := f.login(t)

			result, err := tt.call(context.Background(), f.client)
			require.NoError(t, err)

			requests := f.backend.Requests()
			last := requests[len(requests)-1]
			require.Equal(t, tt.method, last.Method)
			require.Equal(t, tt.path, last.Path)
			require.Equal(t, "Bearer "+login.AccessToken, last.Authorization)
			tt.check(t, last, result)
			require.Zero(t, f.signalCount())
		})
	}
}

func TestEndpoints_UnauthorizedRaisesSignal(t *testing.T) {
	for _, tt := range endpointCases() {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			seedFleet(f.backend)
			f.login(t)
			f.backend.Override(tt.method, tt.path, http.StatusUnauthorized, map[string]string{"message": "expired"}, 1)

			_, err := tt.call(context.Background(), f.client)
			require.ErrorIs(t, err, api.ErrUnauthorized)
			require.Equal(t, 1, f.signalCount())
		})
	}
}

func TestEndpoints_NotFound(t *testing.T) {
	f := setupTestFixture(t)
	seedFleet(f.backend)
	f.login(t)
	ctx := context.Background()

	_, err := f.client.GetDelivery(ctx, "NOPE")
	require.Equal(t, http.StatusNotFound, api.StatusCode(err))
	_, err = f.client.GetDriver(ctx, "drv-9")
	require.Equal(t, http.StatusNotFound, api.StatusCode(err))
	_, err = f.client.GetVehicle(ctx, "veh-9")
	require.Equal(t, http.StatusNotFound, api.StatusCode(err))
	require.Zero(t, f.signalCount())
}
