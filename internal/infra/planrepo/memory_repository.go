package planrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
)

// MemoryRepository is an in-memory dayplan.PlanRepository used for tests/dev.
type MemoryRepository struct {
	mu    sync.RWMutex
	plans map[string]dayplan.PersistedPlan
}

// NewMemoryRepository constructs a repo backed by process memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{plans: make(map[string]dayplan.PersistedPlan)}
}

// Save implements dayplan.PlanRepository.
func (r *MemoryRepository) Save(_ context.Context, plan dayplan.PersistedPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.PlanID] = plan
	return nil
}

// Get implements dayplan.PlanRepository.
func (r *MemoryRepository) Get(_ context.Context, planID, ownerID string) (dayplan.PersistedPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[planID]
	if !ok || plan.OwnerID != ownerID {
		return dayplan.PersistedPlan{}, dayplan.ErrPlanNotFound
	}
	return plan, nil
}

// List implements dayplan.PlanRepository.
func (r *MemoryRepository) List(_ context.Context, ownerID string, filter dayplan.ListFilter) ([]dayplan.PersistedPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]dayplan.PersistedPlan, 0)
	for _, plan := range r.plans {
		if plan.OwnerID == ownerID && filter.Matches(plan) {
			out = append(out, plan)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Delete implements dayplan.PlanRepository.
func (r *MemoryRepository) Delete(_ context.Context, planID, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[planID]
	if !ok || plan.OwnerID != ownerID {
		return dayplan.ErrPlanNotFound
	}
	delete(r.plans, planID)
	return nil
}

// DeleteByTrip implements dayplan.PlanRepository.
func (r *MemoryRepository) DeleteByTrip(_ context.Context, tripID, ownerID string) error {
	r.deleteWhere(func(p dayplan.PersistedPlan) bool {
		return p.OwnerID == ownerID && p.TripID == tripID
	})
	return nil
}

// DeleteByPort implements dayplan.PlanRepository.
func (r *MemoryRepository) DeleteByPort(_ context.Context, tripID, portID, ownerID string) error {
	r.deleteWhere(func(p dayplan.PersistedPlan) bool {
		return p.OwnerID == ownerID && p.TripID == tripID && p.PortID == portID
	})
	return nil
}

func (r *MemoryRepository) deleteWhere(match func(dayplan.PersistedPlan) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, plan := range r.plans {
		if match(plan) {
			delete(r.plans, id)
		}
	}
}

func sortNewestFirst(plans []dayplan.PersistedPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].GeneratedAt.Equal(plans[j].GeneratedAt) {
			return plans[i].PlanID > plans[j].PlanID
		}
		return plans[i].GeneratedAt.After(plans[j].GeneratedAt)
	})
}

var _ dayplan.PlanRepository = (*MemoryRepository)(nil)
