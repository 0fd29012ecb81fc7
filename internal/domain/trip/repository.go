package trip

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a trip does not exist for the owner.
var ErrNotFound = errors.New("trip not found")

// ErrPortNotFound is returned when the trip exists but the port does not.
var ErrPortNotFound = errors.New("port not found")

// Repository persists trips and their ports. Every call is scoped to an owner.
type Repository interface {
	Create(ctx context.Context, trip Trip) error
	Get(ctx context.Context, tripID, ownerID string) (Trip, error)
	// List returns the owner's trips newest first.
	List(ctx context.Context, ownerID string) ([]Trip, error)
	// Update rewrites ship name, cruise line and updated_at.
	Update(ctx context.Context, trip Trip) error
	Delete(ctx context.Context, tripID, ownerID string) error
	AddPort(ctx context.Context, tripID, ownerID string, port Port) error
	UpdatePort(ctx context.Context, tripID, ownerID string, port Port) error
	// RemovePort reports whether a port was removed. A missing trip is ErrNotFound.
	RemovePort(ctx context.Context, tripID, portID, ownerID string) (bool, error)
	GetTripPort(ctx context.Context, tripID, portID, ownerID string) (Trip, Port, error)
}

// PlanCleaner removes plans generated for a trip or port.
type PlanCleaner interface {
	DeleteByTrip(ctx context.Context, tripID, ownerID string) error
	DeleteByPort(ctx context.Context, tripID, portID, ownerID string) error
}
