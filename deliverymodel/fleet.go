package deliverymodel

type DriverStatus string

const (
	DriverAvailable  DriverStatus = "AVAILABLE"
	DriverBusy       DriverStatus = "BUSY"
	DriverOffline    DriverStatus = "OFFLINE"
	DriverOnDelivery DriverStatus = "ON_DELIVERY"
	DriverOnBreak    DriverStatus = "ON_BREAK"
)

type Driver struct {
	ID              int64        `json:"id"`
	DriverID        string       `json:"driverId"`
	FirstName       string       `json:"firstName"`
	LastName        string       `json:"lastName"`
	PhoneNumber     string       `json:"phoneNumber"`
	Email           string       `json:"email"`
	LicenseNumber   string       `json:"licenseNumber"`
	Status          DriverStatus `json:"status"`
	CurrentLocation string       `json:"currentLocation"`
	CreatedAt       string       `json:"createdAt"`
	UpdatedAt       string       `json:"updatedAt"`
	LastActiveAt    string       `json:"lastActiveAt,omitempty"`
	Avatar          string       `json:"avatar,omitempty"`
	Rating          *float64     `json:"rating,omitempty"`
	TotalDeliveries *int         `json:"totalDeliveries,omitempty"`
}

// DriverFilters is encoded into the list query string. Available is tri-state.
type DriverFilters struct {
	Status    DriverStatus `url:"status,omitempty"`
	City      string       `url:"city,omitempty"`
	Available *bool        `url:"available,omitempty"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type DriverStats struct {
	TotalDrivers     int `json:"totalDrivers"`
	AvailableDrivers int `json:"availableDrivers"`
	BusyDrivers      int `json:"busyDrivers"`
	OfflineDrivers   int `json:"offlineDrivers"`
}

type VehicleType string

const (
	VehicleMotorcycle VehicleType = "MOTORCYCLE"
	VehicleCar        VehicleType = "CAR"
	VehicleVan        VehicleType = "VAN"
	VehicleTruck      VehicleType = "TRUCK"
	VehicleBicycle    VehicleType = "BICYCLE"
)

type VehicleStatus string

const (
	VehicleAvailable    VehicleStatus = "AVAILABLE"
	VehicleInUse        VehicleStatus = "IN_USE"
	VehicleMaintenance  VehicleStatus = "MAINTENANCE"
	VehicleOutOfService VehicleStatus = "OUT_OF_SERVICE"
)

type Vehicle struct {
	ID                int64         `json:"id"`
	VehicleID         string        `json:"vehicleId"`
	Brand             string        `json:"brand"`
	Model             string        `json:"model"`
	LicensePlate      string        `json:"licensePlate"`
	Color             string        `json:"color"`
	Type              VehicleType   `json:"type"`
	Status            VehicleStatus `json:"status"`
	DriverID          string        `json:"driverId"`
	CreatedAt         string        `json:"createdAt"`
	UpdatedAt         string        `json:"updatedAt"`
	LastMaintenanceAt string        `json:"lastMaintenanceAt,omitempty"`
}

// StatusUpdate is the body of the driver and vehicle status endpoints.
type StatusUpdate struct {
	Status string `json:"status"`
}

type Health struct {
	Status string `json:"status"`
}
