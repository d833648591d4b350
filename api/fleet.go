package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
)

func (c *Client) ListDrivers(ctx context.Context, filters deliverymodel.DriverFilters) ([]deliverymodel.Driver, error) {
	q, err := query.Values(filters)
	if err != nil {
		return nil, fmt.Errorf("encode driver filters: %w", err)
	}
	var out []deliverymodel.Driver
	if err := c.Get(ctx, "/drivers", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDriver(ctx context.Context, driverID string) (*deliverymodel.Driver, error) {
	var out deliverymodel.Driver
	if err := c.Get(ctx, "/drivers/"+url.PathEscape(driverID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AvailableDrivers(ctx context.Context) ([]deliverymodel.Driver, error) {
	var out []deliverymodel.Driver
	if err := c.Get(ctx, "/drivers/available", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateDriverStatus(ctx context.Context, driverID string, status deliverymodel.DriverStatus) (*deliverymodel.Driver, error) {
	var out deliverymodel.Driver
	body := deliverymodel.StatusUpdate{Status: string(status)}
	if err := c.Put(ctx, "/drivers/"+url.PathEscape(driverID)+"/status", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDriverLocation(ctx context.Context, driverID string, loc deliverymodel.Coordinates) (*deliverymodel.Driver, error) {
	var out deliverymodel.Driver
	if err := c.Put(ctx, "/drivers/"+url.PathEscape(driverID)+"/location", nil, loc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListVehicles(ctx context.Context) ([]deliverymodel.Vehicle, error) {
	var out []deliverymodel.Vehicle
	if err := c.Get(ctx, "/vehicles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetVehicle(ctx context.Context, vehicleID string) (*deliverymodel.Vehicle, error) {
	var out deliverymodel.Vehicle
	if err := c.Get(ctx, "/vehicles/"+url.PathEscape(vehicleID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AvailableVehicles(ctx context.Context) ([]deliverymodel.Vehicle, error) {
	var out []deliverymodel.Vehicle
	if err := c.Get(ctx, "/vehicles/available", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateVehicleStatus(ctx context.Context, vehicleID string, status deliverymodel.VehicleStatus) (*deliverymodel.Vehicle, error) {
	var out deliverymodel.Vehicle
	body := deliverymodel.StatusUpdate{Status: string(status)}
	if err := c.Put(ctx, "/vehicles/"+url.PathEscape(vehicleID)+"/status", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeliveryStats(ctx context.Context) (*deliverymodel.DeliveryStats, error) {
	var out deliverymodel.DeliveryStats
	if err := c.Get(ctx, "/stats/deliveries", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DriverStats(ctx context.Context) (*deliverymodel.DriverStats, error) {
	var out deliverymodel.DriverStats
	if err := c.Get(ctx, "/stats/drivers", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*deliverymodel.Health, error) {
	var out deliverymodel.Health
	if err := c.Get(ctx, "/actuator/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
