package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
)

func (c *Client) CreateDelivery(ctx context.Context, req deliverymodel.CreateDeliveryRequest) (*deliverymodel.Delivery, error) {
	var out deliverymodel.Delivery
	if err := c.Post(ctx, "/deliveries", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDeliveries(ctx context.Context, filters deliverymodel.DeliveryFilters) ([]deliverymodel.Delivery, error) {
	q, err := query.Values(filters)
	if err != nil {
		return nil, fmt.Errorf("encode delivery filters: %w", err)
	}
	var out []deliverymodel.Delivery
	if err := c.Get(ctx, "/deliveries", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDelivery(ctx context.Context, trackingNumber string) (*deliverymodel.Delivery, error) {
	var out deliverymodel.Delivery
	if err := c.Get(ctx, "/deliveries/"+url.PathEscape(trackingNumber), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeliveriesByStatus(ctx context.Context, status deliverymodel.DeliveryStatus) ([]deliverymodel.Delivery, error) {
	var out []deliverymodel.Delivery
	if err := c.Get(ctx, "/deliveries/status/"+url.PathEscape(string(status)), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeliveriesByDriver(ctx context.Context, driverID string) ([]deliverymodel.Delivery, error) {
	var out []deliverymodel.Delivery
	if err := c.Get(ctx, "/deliveries/driver/"+url.PathEscape(driverID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateDeliveryStatus(ctx context.Context, trackingNumber string, req deliverymodel.UpdateDeliveryStatusRequest) (*deliverymodel.Delivery, error) {
	var out deliverymodel.Delivery
	if err := c.Put(ctx, "/deliveries/"+url.PathEscape(trackingNumber)+"/status", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AssignDelivery(ctx context.Context, trackingNumber string, params deliverymodel.AssignParams) (*deliverymodel.Delivery, error) {
	q, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode assignment: %w", err)
	}
	var out deliverymodel.Delivery
	if err := c.Put(ctx, "/deliveries/"+url.PathEscape(trackingNumber)+"/assign", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrackDelivery is the public tracking lookup. It works with or without a session.
func (c *Client) TrackDelivery(ctx context.Context, trackingNumber string) (*deliverymodel.Delivery, error) {
	var out deliverymodel.Delivery
	if err := c.Get(ctx, "/deliveries/tracking/"+url.PathEscape(trackingNumber), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
