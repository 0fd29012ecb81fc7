package triprepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/cruise-planner/internal/domain/trip"
)

// MemoryRepository is an in-memory trip.Repository used for tests/dev.
type MemoryRepository struct {
	mu    sync.RWMutex
	trips map[string]trip.Trip
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{trips: make(map[string]trip.Trip)}
}

// Create implements trip.Repository.
func (r *MemoryRepository) Create(_ context.Context, t trip.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips[t.TripID] = copyTrip(t)
	return nil
}

// Get implements trip.Repository.
func (r *MemoryRepository) Get(_ context.Context, tripID, ownerID string) (trip.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.owned(tripID, ownerID)
	if !ok {
		return trip.Trip{}, trip.ErrNotFound
	}
	return copyTrip(t), nil
}

// List implements trip.Repository.
func (r *MemoryRepository) List(_ context.Context, ownerID string) ([]trip.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]trip.Trip, 0)
	for _, t := range r.trips {
		if t.OwnerID == ownerID {
			out = append(out, copyTrip(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update implements trip.Repository.
func (r *MemoryRepository) Update(_ context.Context, t trip.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.owned(t.TripID, t.OwnerID)
	if !ok {
		return trip.ErrNotFound
	}
	current.ShipName = t.ShipName
	current.CruiseLine = t.CruiseLine
	current.UpdatedAt = t.UpdatedAt
	r.trips[t.TripID] = current
	return nil
}

// Delete implements trip.Repository.
func (r *MemoryRepository) Delete(_ context.Context, tripID, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owned(tripID, ownerID); !ok {
		return trip.ErrNotFound
	}
	delete(r.trips, tripID)
	return nil
}

// AddPort implements trip.Repository.
func (r *MemoryRepository) AddPort(_ context.Context, tripID, ownerID string, port trip.Port) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.owned(tripID, ownerID)
	if !ok {
		return trip.ErrNotFound
	}
	t.Ports = append(append([]trip.Port(nil), t.Ports...), port)
	r.trips[tripID] = t
	return nil
}

// UpdatePort implements trip.Repository.
func (r *MemoryRepository) UpdatePort(_ context.Context, tripID, ownerID string, port trip.Port) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.owned(tripID, ownerID)
	if !ok {
		return trip.ErrNotFound
	}
	ports := append([]trip.Port(nil), t.Ports...)
	for i := range ports {
		if ports[i].PortID == port.PortID {
			ports[i] = port
			t.Ports = ports
			r.trips[tripID] = t
			return nil
		}
	}
	return trip.ErrPortNotFound
}

// RemovePort implements trip.Repository.
func (r *MemoryRepository) RemovePort(_ context.Context, tripID, portID, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.owned(tripID, ownerID)
	if !ok {
		return false, trip.ErrNotFound
	}
	kept := make([]trip.Port, 0, len(t.Ports))
	for _, p := range t.Ports {
		if p.PortID != portID {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(t.Ports) {
		return false, nil
	}
	t.Ports = kept
	r.trips[tripID] = t
	return true, nil
}

// GetTripPort implements trip.Repository.
func (r *MemoryRepository) GetTripPort(_ context.Context, tripID, portID, ownerID string) (trip.Trip, trip.Port, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.owned(tripID, ownerID)
	if !ok {
		return trip.Trip{}, trip.Port{}, trip.ErrNotFound
	}
	for _, p := range t.Ports {
		if p.PortID == portID {
			return copyTrip(t), p, nil
		}
	}
	return trip.Trip{}, trip.Port{}, trip.ErrPortNotFound
}

func (r *MemoryRepository) owned(tripID, ownerID string) (trip.Trip, bool) {
	t, ok := r.trips[tripID]
	if !ok || t.OwnerID != ownerID {
		return trip.Trip{}, false
	}
	return t, true
}

func copyTrip(t trip.Trip) trip.Trip {
	out := t
	out.Ports = append([]trip.Port{}, t.Ports...)
	return out
}

var _ trip.Repository = (*MemoryRepository)(nil)
