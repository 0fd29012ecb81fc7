package planrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores plans in the plans table with JSONB payloads.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const planColumns = `plan_id, device_id, trip_id, port_id, port_name, preferences, weather, plan, generated_at`

// Save implements dayplan.PlanRepository.
func (r *PostgresRepository) Save(ctx context.Context, plan dayplan.PersistedPlan) error {
	prefs, err := json.Marshal(plan.Preferences)
	if err != nil {
		return fmt.Errorf("planrepo.PostgresRepository.Save: preferences: %w", err)
	}
	body, err := json.Marshal(plan.Plan)
	if err != nil {
		return fmt.Errorf("planrepo.PostgresRepository.Save: plan: %w", err)
	}
	var weather []byte
	if plan.Weather != nil {
		if weather, err = json.Marshal(plan.Weather); err != nil {
			return fmt.Errorf("planrepo.PostgresRepository.Save: weather: %w", err)
		}
	}

	const q = `
		INSERT INTO plans (` + planColumns + `)
		VALUES (@plan_id, @device_id, @trip_id, @port_id, @port_name, @preferences, @weather, @plan, @generated_at)`

	_, err = r.db.Exec(ctx, q, pgx.NamedArgs{
		"plan_id":      plan.PlanID,
		"device_id":    plan.OwnerID,
		"trip_id":      plan.TripID,
		"port_id":      plan.PortID,
		"port_name":    plan.PortName,
		"preferences":  string(prefs),
		"weather":      nullableJSON(weather),
		"plan":         string(body),
		"generated_at": plan.GeneratedAt,
	})
	if err != nil {
		return fmt.Errorf("planrepo.PostgresRepository.Save: %w", err)
	}
	return nil
}

// Get implements dayplan.PlanRepository.
func (r *PostgresRepository) Get(ctx context.Context, planID, ownerID string) (dayplan.PersistedPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE plan_id = @plan_id AND device_id = @device_id`

	plan, err := scanPlan(r.db.QueryRow(ctx, q, pgx.NamedArgs{"plan_id": planID, "device_id": ownerID}))
	if err != nil {
		return dayplan.PersistedPlan{}, fmt.Errorf("planrepo.PostgresRepository.Get: %w", err)
	}
	return plan, nil
}

// List implements dayplan.PlanRepository.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, filter dayplan.ListFilter) ([]dayplan.PersistedPlan, error) {
	const q = `
		SELECT ` + planColumns + `
		FROM plans
		WHERE device_id = @device_id
		  AND (@trip_id::text = '' OR trip_id = @trip_id)
		  AND (@port_id::text = '' OR port_id = @port_id)
		ORDER BY generated_at DESC, plan_id DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"device_id": ownerID,
		"trip_id":   filter.TripID,
		"port_id":   filter.PortID,
	})
	if err != nil {
		return nil, fmt.Errorf("planrepo.PostgresRepository.List: %w", err)
	}
	defer rows.Close()

	plans := make([]dayplan.PersistedPlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("planrepo.PostgresRepository.List: scan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("planrepo.PostgresRepository.List: rows: %w", err)
	}
	return plans, nil
}

// Delete implements dayplan.PlanRepository.
func (r *PostgresRepository) Delete(ctx context.Context, planID, ownerID string) error {
	const q = `DELETE FROM plans WHERE plan_id = @plan_id AND device_id = @device_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"plan_id": planID, "device_id": ownerID})
	if err != nil {
		return fmt.Errorf("planrepo.PostgresRepository.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("planrepo.PostgresRepository.Delete: %w", dayplan.ErrPlanNotFound)
	}
	return nil
}

// DeleteByTrip implements dayplan.PlanRepository.
func (r *PostgresRepository) DeleteByTrip(ctx context.Context, tripID, ownerID string) error {
	const q = `DELETE FROM plans WHERE trip_id = @trip_id AND device_id = @device_id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID, "device_id": ownerID}); err != nil {
		return fmt.Errorf("planrepo.PostgresRepository.DeleteByTrip: %w", err)
	}
	return nil
}

// DeleteByPort implements dayplan.PlanRepository.
func (r *PostgresRepository) DeleteByPort(ctx context.Context, tripID, portID, ownerID string) error {
	const q = `DELETE FROM plans WHERE trip_id = @trip_id AND port_id = @port_id AND device_id = @device_id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID, "port_id": portID, "device_id": ownerID}); err != nil {
		return fmt.Errorf("planrepo.PostgresRepository.DeleteByPort: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (dayplan.PersistedPlan, error) {
	var (
		plan                 dayplan.PersistedPlan
		prefs, weather, body []byte
	)
	err := s.Scan(&plan.PlanID, &plan.OwnerID, &plan.TripID, &plan.PortID, &plan.PortName,
		&prefs, &weather, &body, &plan.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dayplan.PersistedPlan{}, dayplan.ErrPlanNotFound
		}
		return dayplan.PersistedPlan{}, err
	}
	if err := json.Unmarshal(prefs, &plan.Preferences); err != nil {
		return dayplan.PersistedPlan{}, fmt.Errorf("decode preferences: %w", err)
	}
	if len(weather) > 0 {
		var w dayplan.WeatherSummary
		if err := json.Unmarshal(weather, &w); err != nil {
			return dayplan.PersistedPlan{}, fmt.Errorf("decode weather: %w", err)
		}
		plan.Weather = &w
	}
	if err := json.Unmarshal(body, &plan.Plan); err != nil {
		return dayplan.PersistedPlan{}, fmt.Errorf("decode plan: %w", err)
	}
	plan.GeneratedAt = plan.GeneratedAt.UTC()
	return plan, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var _ dayplan.PlanRepository = (*PostgresRepository)(nil)
