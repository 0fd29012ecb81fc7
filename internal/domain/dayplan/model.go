package dayplan

import (
	"strings"
	"time"
)

// Preferences are the traveler choices that shape a plan.
type Preferences struct {
	PartyType     string `json:"party_type"`
	ActivityLevel string `json:"activity_level"`
	TransportMode string `json:"transport_mode"`
	Budget        string `json:"budget"`
	Currency      string `json:"currency"`
}

// WithDefaults fills omitted fields. Currency is trimmed and otherwise kept as given.
func (p Preferences) WithDefaults() Preferences {
	p.PartyType = orDefault(p.PartyType, "couple")
	p.ActivityLevel = orDefault(p.ActivityLevel, "moderate")
	p.TransportMode = orDefault(p.TransportMode, "mixed")
	p.Budget = orDefault(p.Budget, "medium")
	p.Currency = orDefault(p.Currency, "USD")
	return p
}

// RequestContext identifies one generation run.
type RequestContext struct {
	TripID      string
	PortID      string
	OwnerID     string
	Preferences Preferences
}

// PortContext is the trip and port data a plan is generated for.
type PortContext struct {
	TripID     string
	ShipName   string
	CruiseLine string
	PortID     string
	Name       string
	Country    string
	Latitude   float64
	Longitude  float64
	// Arrival and Departure are local port times as stored with the trip.
	Arrival   string
	Departure string
}

// ArrivalDate returns the YYYY-MM-DD part of Arrival, or "" when it is not a date.
func (p PortContext) ArrivalDate() string {
	if len(p.Arrival) < 10 {
		return ""
	}
	date := p.Arrival[:10]
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return ""
	}
	return date
}

// WeatherSummary is the forecast for the arrival date. A zero value is the
// "unavailable" sentinel.
type WeatherSummary struct {
	Available       bool    `json:"available"`
	Date            string  `json:"date,omitempty"`
	TempMaxC        float64 `json:"temp_max_c"`
	TempMinC        float64 `json:"temp_min_c"`
	PrecipitationMM float64 `json:"precipitation_mm"`
	WindSpeedKmh    float64 `json:"wind_speed_kmh"`
}

// WeatherUnavailable is returned whenever the forecast could not be fetched.
func WeatherUnavailable() WeatherSummary {
	return WeatherSummary{}
}

// PersistedPlan is the stored outcome of a successful run.
type PersistedPlan struct {
	PlanID      string          `json:"plan_id"`
	OwnerID     string          `json:"device_id"`
	TripID      string          `json:"trip_id"`
	PortID      string          `json:"port_id"`
	PortName    string          `json:"port_name"`
	Preferences Preferences     `json:"preferences"`
	Weather     *WeatherSummary `json:"weather,omitempty"`
	Plan        Plan            `json:"plan"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ListFilter narrows plan listings. Empty fields match everything.
type ListFilter struct {
	TripID string
	PortID string
}

// Matches reports whether p passes the filter.
func (f ListFilter) Matches(p PersistedPlan) bool {
	if f.TripID != "" && p.TripID != f.TripID {
		return false
	}
	if f.PortID != "" && p.PortID != f.PortID {
		return false
	}
	return true
}

// GenerateRequest is the HTTP payload for plan generation.
type GenerateRequest struct {
	TripID      string      `json:"trip_id"`
	PortID      string      `json:"port_id"`
	Preferences Preferences `json:"preferences"`
}

// GatewayConfig tunes the generation gateway.
type GatewayConfig struct {
	Provider          string
	Model             string
	SystemInstruction string
	Temperature       float32
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
