package apistub

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-delivery-console/deliverymodel"
	"github.com/jrsteele09/go-delivery-console/users"
)

func (b *Backend) fleetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+BasePath+"/deliveries", b.authenticated(b.createDelivery))
	mux.HandleFunc("GET "+BasePath+"/deliveries/{number}", b.authenticated(b.getDelivery))
	mux.HandleFunc("GET "+BasePath+"/deliveries/status/{status}", b.authenticated(b.deliveriesByStatus))
	mux.HandleFunc("GET "+BasePath+"/deliveries/driver/{driverID}", b.authenticated(b.deliveriesByDriver))
	mux.HandleFunc("PUT "+BasePath+"/deliveries/{number}/status", b.authenticated(b.updateDeliveryStatus))
	mux.HandleFunc("PUT "+BasePath+"/deliveries/{number}/assign", b.authenticated(b.assignDelivery))

	mux.HandleFunc("GET "+BasePath+"/drivers/available", b.authenticated(b.availableDrivers))
	mux.HandleFunc("GET "+BasePath+"/drivers/{driverID}", b.authenticated(b.getDriver))
	mux.HandleFunc("PUT "+BasePath+"/drivers/{driverID}/status", b.authenticated(b.updateDriverStatus))
	mux.HandleFunc("PUT "+BasePath+"/drivers/{driverID}/location", b.authenticated(b.updateDriverLocation))

	mux.HandleFunc("GET "+BasePath+"/vehicles", b.authenticated(b.listVehicles))
	mux.HandleFunc("GET "+BasePath+"/vehicles/available", b.authenticated(b.availableVehicles))
	mux.HandleFunc("GET "+BasePath+"/vehicles/{vehicleID}", b.authenticated(b.getVehicle))
	mux.HandleFunc("PUT "+BasePath+"/vehicles/{vehicleID}/status", b.authenticated(b.updateVehicleStatus))
}

func (b *Backend) createDelivery(w http.ResponseWriter, r *http.Request, _ users.User) {
	var req deliverymodel.CreateDeliveryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	id := int64(len(b.deliveries) + 1)
	d := deliverymodel.Delivery{
		ID:              id,
		TrackingNumber:  fmt.Sprintf("TRK%04d", id),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		PickupAddress:   req.PickupAddress,
		DeliveryAddress: req.DeliveryAddress,
		PickupCity:      req.PickupCity,
		DeliveryCity:    req.DeliveryCity,
		Weight:          req.Weight,
		Price:           req.Price,
		Notes:           req.Notes,
		Status:          deliverymodel.DeliveryPending,
	}
	b.deliveries = append(b.deliveries, d)
	writeJSON(w, http.StatusCreated, d)
}

func (b *Backend) getDelivery(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if i := b.deliveryIndex(r.PathValue("number")); i >= 0 {
		writeJSON(w, http.StatusOK, b.deliveries[i])
		return
	}
	writeError(w, http.StatusNotFound, "Delivery not found")
}

func (b *Backend) deliveriesByStatus(w http.ResponseWriter, r *http.Request, _ users.User) {
	status := deliverymodel.DeliveryStatus(r.PathValue("status"))
	b.writeDeliveries(w, func(d deliverymodel.Delivery) bool { return d.Status == status })
}

func (b *Backend) deliveriesByDriver(w http.ResponseWriter, r *http.Request, _ users.User) {
	driverID := r.PathValue("driverID")
	b.writeDeliveries(w, func(d deliverymodel.Delivery) bool { return d.DriverID == driverID })
}

func (b *Backend) writeDeliveries(w http.ResponseWriter, keep func(deliverymodel.Delivery) bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := []deliverymodel.Delivery{}
	for _, d := range b.deliveries {
		if keep(d) {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) updateDeliveryStatus(w http.ResponseWriter, r *http.Request, _ users.User) {
	var req deliverymodel.UpdateDeliveryStatusRequest
	if err := decodeBody(r, &req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	i := b.deliveryIndex(r.PathValue("number"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Delivery not found")
		return
	}
	b.deliveries[i].Status = req.Status
	if req.Notes != "" {
		b.deliveries[i].Notes = req.Notes
	}
	writeJSON(w, http.StatusOK, b.deliveries[i])
}

func (b *Backend) assignDelivery(w http.ResponseWriter, r *http.Request, _ users.User) {
	driverID := r.URL.Query().Get("driverId")
	if driverID == "" {
		writeError(w, http.StatusBadRequest, "driverId is required")
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	i := b.deliveryIndex(r.PathValue("number"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Delivery not found")
		return
	}
	b.deliveries[i].DriverID = driverID
	b.deliveries[i].VehicleID = r.URL.Query().Get("vehicleId")
	b.deliveries[i].Status = deliverymodel.DeliveryAssigned
	writeJSON(w, http.StatusOK, b.deliveries[i])
}

// deliveryIndex requires b.lock.
func (b *Backend) deliveryIndex(number string) int {
	for i, d := range b.deliveries {
		if strings.EqualFold(d.TrackingNumber, number) {
			return i
		}
	}
	return -1
}

func (b *Backend) availableDrivers(w http.ResponseWriter, _ *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := []deliverymodel.Driver{}
	for _, d := range b.drivers {
		if d.Status == deliverymodel.DriverAvailable {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getDriver(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if i := b.driverIndex(r.PathValue("driverID")); i >= 0 {
		writeJSON(w, http.StatusOK, b.drivers[i])
		return
	}
	writeError(w, http.StatusNotFound, "Driver not found")
}

func (b *Backend) updateDriverStatus(w http.ResponseWriter, r *http.Request, _ users.User) {
	var req deliverymodel.StatusUpdate
	if err := decodeBody(r, &req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	i := b.driverIndex(r.PathValue("driverID"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Driver not found")
		return
	}
	b.drivers[i].Status = deliverymodel.DriverStatus(req.Status)
	writeJSON(w, http.StatusOK, b.drivers[i])
}

func (b *Backend) updateDriverLocation(w http.ResponseWriter, r *http.Request, _ users.User) {
	var loc deliverymodel.Coordinates
	if err := decodeBody(r, &loc); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	i := b.driverIndex(r.PathValue("driverID"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Driver not found")
		return
	}
	b.drivers[i].CurrentLocation = fmt.Sprintf("%.6f,%.6f", loc.Latitude, loc.Longitude)
	writeJSON(w, http.StatusOK, b.drivers[i])
}

// driverIndex requires b.lock.
func (b *Backend) driverIndex(driverID string) int {
	for i, d := range b.drivers {
		if d.DriverID == driverID {
			return i
		}
	}
	return -1
}

func (b *Backend) listVehicles(w http.ResponseWriter, _ *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	writeJSON(w, http.StatusOK, append([]deliverymodel.Vehicle{}, b.vehicles...))
}

func (b *Backend) availableVehicles(w http.ResponseWriter, _ *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := []deliverymodel.Vehicle{}
	for _, v := range b.vehicles {
		if v.Status == deliverymodel.VehicleAvailable {
			out = append(out, v)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getVehicle(w http.ResponseWriter, r *http.Request, _ users.User) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if i := b.vehicleIndex(r.PathValue("vehicleID")); i >= 0 {
		writeJSON(w, http.StatusOK, b.vehicles[i])
		return
	}
	writeError(w, http.StatusNotFound, "Vehicle not found")
}

func (b *Backend) updateVehicleStatus(w http.ResponseWriter, r *http.Request, _ users.User) {
	var req deliverymodel.StatusUpdate
	if err := decodeBody(r, &req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	i := b.vehicleIndex(r.PathValue("vehicleID"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	b.vehicles[i].Status = deliverymodel.VehicleStatus(req.Status)
	writeJSON(w, http.StatusOK, b.vehicles[i])
}

// vehicleIndex requires b.lock.
func (b *Backend) vehicleIndex(vehicleID string) int {
	for i, v := range b.vehicles {
		if v.VehicleID == vehicleID {
			return i
		}
	}
	return -1
}
