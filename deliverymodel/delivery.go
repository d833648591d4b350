// Package deliverymodel holds the wire types of the delivery backend's business endpoints.
package deliverymodel

type DeliveryStatus string

const (
	DeliveryPending          DeliveryStatus = "PENDING"
	DeliveryAssigned         DeliveryStatus = "ASSIGNED"
	DeliveryPickupInProgress DeliveryStatus = "PICKUP_IN_PROGRESS"
	DeliveryPickedUp         DeliveryStatus = "PICKED_UP"
	DeliveryInTransit        DeliveryStatus = "IN_TRANSIT"
	DeliveryOutForDelivery   DeliveryStatus = "OUT_FOR_DELIVERY"
	DeliveryDelivered        DeliveryStatus = "DELIVERED"
	DeliveryFailed           DeliveryStatus = "FAILED"
	DeliveryCancelled        DeliveryStatus = "CANCELLED"
)

// Terminal reports whether no further status transition is expected.
func (s DeliveryStatus) Terminal() bool {
	switch s {
	case DeliveryDelivered, DeliveryFailed, DeliveryCancelled:
		return true
	}
	return false
}

type Delivery struct {
	ID              int64          `json:"id"`
	TrackingNumber  string         `json:"trackingNumber"`
	CustomerName    string         `json:"customerName"`
	CustomerPhone   string         `json:"customerPhone"`
	PickupAddress   string         `json:"pickupAddress"`
	DeliveryAddress string         `json:"deliveryAddress"`
	PickupCity      string         `json:"pickupCity"`
	DeliveryCity    string         `json:"deliveryCity"`
	Weight          float64        `json:"weight"`
	Price           float64        `json:"price"`
	Status          DeliveryStatus `json:"status"`
	DriverID        string         `json:"driverId"`
	VehicleID       string         `json:"vehicleId"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
	PickupTime      string         `json:"pickupTime,omitempty"`
	DeliveryTime    string         `json:"deliveryTime,omitempty"`
	Notes           string         `json:"notes,omitempty"`
}

type CreateDeliveryRequest struct {
	CustomerName    string  `json:"customerName" validate:"required"`
	CustomerPhone   string  `json:"customerPhone" validate:"required"`
	PickupAddress   string  `json:"pickupAddress" validate:"required"`
	DeliveryAddress string  `json:"deliveryAddress" validate:"required"`
	PickupCity      string  `json:"pickupCity" validate:"required"`
	DeliveryCity    string  `json:"deliveryCity" validate:"required"`
	Weight          float64 `json:"weight" validate:"gt=0"`
	Price           float64 `json:"price" validate:"gte=0"`
	Notes           string  `json:"notes,omitempty"`
}

type UpdateDeliveryStatusRequest struct {
	Status DeliveryStatus `json:"status" validate:"required"`
	Notes  string         `json:"notes,omitempty"`
}

// DeliveryFilters is encoded into the list query string; empty fields are omitted.
type DeliveryFilters struct {
	Status   DeliveryStatus `url:"status,omitempty"`
	DriverID string         `url:"driverId,omitempty"`
	DateFrom string         `url:"dateFrom,omitempty"`
	DateTo   string         `url:"dateTo,omitempty"`
	City     string         `url:"city,omitempty"`
}

// AssignParams is the query of the assign endpoint.
type AssignParams struct {
	DriverID  string `url:"driverId"`
	VehicleID string `url:"vehicleId"`
}

type DeliveryStats struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	InTransit int     `json:"inTransit"`
	Delivered int     `json:"delivered"`
	Failed    int     `json:"failed"`
	Revenue   float64 `json:"revenue"`
}
