package trip

import "time"

// Trip is a cruise owned by one device. Ports are kept in insertion order.
type Trip struct {
	TripID     string    `json:"trip_id"`
	OwnerID    string    `json:"device_id"`
	ShipName   string    `json:"ship_name"`
	CruiseLine string    `json:"cruise_line"`
	Ports      []Port    `json:"ports"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Port is one port of call. Arrival and Departure are local times.
type Port struct {
	PortID    string  `json:"port_id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Arrival   string  `json:"arrival"`
	Departure string  `json:"departure"`
}

// CreateTripRequest captures the trip creation payload.
type CreateTripRequest struct {
	ShipName   string `json:"ship_name"`
	CruiseLine string `json:"cruise_line"`
}

// UpdateTripRequest is a partial update; nil fields are left unchanged.
type UpdateTripRequest struct {
	ShipName   *string `json:"ship_name"`
	CruiseLine *string `json:"cruise_line"`
}

// PortRequest adds a port. Every field is required.
type PortRequest struct {
	Name      string   `json:"name"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Arrival   string   `json:"arrival"`
	Departure string   `json:"departure"`
}

// UpdatePortRequest is a partial port update.
type UpdatePortRequest struct {
	Name      *string  `json:"name"`
	Country   *string  `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Arrival   *string  `json:"arrival"`
	Departure *string  `json:"departure"`
}
