package dayplan

import (
	"context"
	"errors"
)

// ErrPlanNotFound is returned when a plan does not exist for the owner.
var ErrPlanNotFound = errors.New("plan not found")

// ErrContextNotFound is returned by a ContextSource when the trip or port is missing.
var ErrContextNotFound = errors.New("trip or port not found")

// PlanRepository persists generated plans. Every read is scoped to an owner.
type PlanRepository interface {
	Save(ctx context.Context, plan PersistedPlan) error
	Get(ctx context.Context, planID, ownerID string) (PersistedPlan, error)
	// List returns the owner's plans newest first.
	List(ctx context.Context, ownerID string, filter ListFilter) ([]PersistedPlan, error)
	Delete(ctx context.Context, planID, ownerID string) error
	DeleteByTrip(ctx context.Context, tripID, ownerID string) error
	DeleteByPort(ctx context.Context, tripID, portID, ownerID string) error
}

// ContextSource resolves the trip and port a run is for.
type ContextSource interface {
	PortContext(ctx context.Context, tripID, portID, ownerID string) (PortContext, error)
}

// WeatherSource returns the forecast for one day, or the first forecast day
// when date is empty. It never fails; an unreachable provider yields
// WeatherUnavailable().
type WeatherSource interface {
	Summary(ctx context.Context, latitude, longitude float64, date string) WeatherSummary
}

// LinkRewriter attaches affiliate parameters to booking URLs.
type LinkRewriter interface {
	RewriteURL(raw string) string
}
