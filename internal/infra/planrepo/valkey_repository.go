package planrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
)

// ValkeyRepository stores each plan as a JSON string and keeps a per-owner
// sorted set of plan ids scored by generation time.
type ValkeyRepository struct {
	client valkey.Client
	prefix string
}

// NewValkeyRepository constructs a repository backed by Valkey.
func NewValkeyRepository(client valkey.Client, prefix string) *ValkeyRepository {
	if prefix == "" {
		prefix = "cruise"
	}
	return &ValkeyRepository{client: client, prefix: prefix}
}

// Save implements dayplan.PlanRepository.
func (r *ValkeyRepository) Save(ctx context.Context, plan dayplan.PersistedPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("planrepo.ValkeyRepository.Save: %w", err)
	}
	score := float64(plan.GeneratedAt.UnixMilli())
	results := r.client.DoMulti(ctx,
		r.client.B().Set().Key(r.planKey(plan.PlanID)).Value(string(payload)).Build(),
		r.client.B().Zadd().Key(r.ownerKey(plan.OwnerID)).ScoreMember().ScoreMember(score, plan.PlanID).Build(),
	)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return fmt.Errorf("planrepo.ValkeyRepository.Save: %w", err)
		}
	}
	return nil
}

// Get implements dayplan.PlanRepository.
func (r *ValkeyRepository) Get(ctx context.Context, planID, ownerID string) (dayplan.PersistedPlan, error) {
	plan, found, err := r.load(ctx, planID)
	if err != nil {
		return dayplan.PersistedPlan{}, fmt.Errorf("planrepo.ValkeyRepository.Get: %w", err)
	}
	if !found || plan.OwnerID != ownerID {
		return dayplan.PersistedPlan{}, fmt.Errorf("planrepo.ValkeyRepository.Get: %w", dayplan.ErrPlanNotFound)
	}
	return plan, nil
}

// List implements dayplan.PlanRepository.
func (r *ValkeyRepository) List(ctx context.Context, ownerID string, filter dayplan.ListFilter) ([]dayplan.PersistedPlan, error) {
	plans, err := r.ownerPlans(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("planrepo.ValkeyRepository.List: %w", err)
	}
	out := make([]dayplan.PersistedPlan, 0, len(plans))
	for _, plan := range plans {
		if filter.Matches(plan) {
			out = append(out, plan)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Delete implements dayplan.PlanRepository.
func (r *ValkeyRepository) Delete(ctx context.Context, planID, ownerID string) error {
	if _, err := r.Get(ctx, planID, ownerID); err != nil {
		return err
	}
	if err := r.remove(ctx, ownerID, []string{planID}); err != nil {
		return fmt.Errorf("planrepo.ValkeyRepository.Delete: %w", err)
	}
	return nil
}

// DeleteByTrip implements dayplan.PlanRepository.
func (r *ValkeyRepository) DeleteByTrip(ctx context.Context, tripID, ownerID string) error {
	if err := r.deleteMatching(ctx, ownerID, dayplan.ListFilter{TripID: tripID}); err != nil {
		return fmt.Errorf("planrepo.ValkeyRepository.DeleteByTrip: %w", err)
	}
	return nil
}

// DeleteByPort implements dayplan.PlanRepository.
func (r *ValkeyRepository) DeleteByPort(ctx context.Context, tripID, portID, ownerID string) error {
	if err := r.deleteMatching(ctx, ownerID, dayplan.ListFilter{TripID: tripID, PortID: portID}); err != nil {
		return fmt.Errorf("planrepo.ValkeyRepository.DeleteByPort: %w", err)
	}
	return nil
}

func (r *ValkeyRepository) deleteMatching(ctx context.Context, ownerID string, filter dayplan.ListFilter) error {
	plans, err := r.ownerPlans(ctx, ownerID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(plans))
	for _, plan := range plans {
		if filter.Matches(plan) {
			ids = append(ids, plan.PlanID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return r.remove(ctx, ownerID, ids)
}

func (r *ValkeyRepository) remove(ctx context.Context, ownerID string, ids []string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.planKey(id))
	}
	results := r.client.DoMulti(ctx,
		r.client.B().Del().Key(keys...).Build(),
		r.client.B().Zrem().Key(r.ownerKey(ownerID)).Member(ids...).Build(),
	)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return err
		}
	}
	return nil
}

// ownerPlans loads every plan indexed for the owner and prunes index entries
// whose payload has disappeared.
func (r *ValkeyRepository) ownerPlans(ctx context.Context, ownerID string) ([]dayplan.PersistedPlan, error) {
	ids, err := r.client.Do(ctx, r.client.B().Zrevrange().Key(r.ownerKey(ownerID)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.planKey(id))
	}
	values, err := r.client.Do(ctx, r.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return nil, err
	}

	plans := make([]dayplan.PersistedPlan, 0, len(values))
	var stale []string
	for i, value := range values {
		payload, err := value.ToString()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				stale = append(stale, ids[i])
				continue
			}
			return nil, err
		}
		var plan dayplan.PersistedPlan
		if err := json.Unmarshal([]byte(payload), &plan); err != nil {
			return nil, fmt.Errorf("decode plan %s: %w", ids[i], err)
		}
		if plan.OwnerID == ownerID {
			plans = append(plans, plan)
		}
	}
	if len(stale) > 0 {
		_ = r.client.Do(ctx, r.client.B().Zrem().Key(r.ownerKey(ownerID)).Member(stale...).Build()).Error()
	}
	return plans, nil
}

func (r *ValkeyRepository) load(ctx context.Context, planID string) (dayplan.PersistedPlan, bool, error) {
	payload, err := r.client.Do(ctx, r.client.B().Get().Key(r.planKey(planID)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return dayplan.PersistedPlan{}, false, nil
		}
		return dayplan.PersistedPlan{}, false, err
	}
	var plan dayplan.PersistedPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return dayplan.PersistedPlan{}, false, err
	}
	return plan, true, nil
}

func (r *ValkeyRepository) planKey(planID string) string {
	return fmt.Sprintf("%s:plan:%s", r.prefix, planID)
}

func (r *ValkeyRepository) ownerKey(ownerID string) string {
	return fmt.Sprintf("%s:device:%s:plans", r.prefix, ownerID)
}

var _ dayplan.PlanRepository = (*ValkeyRepository)(nil)
