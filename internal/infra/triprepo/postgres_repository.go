package triprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yanqian/cruise-planner/internal/domain/trip"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists trips in the trips and trip_ports tables.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create implements trip.Repository.
func (r *PostgresRepository) Create(ctx context.Context, t trip.Trip) error {
	const q = `
		INSERT INTO trips (trip_id, device_id, ship_name, cruise_line, created_at, updated_at)
		VALUES (@trip_id, @device_id, @ship_name, @cruise_line, @created_at, @updated_at)`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"trip_id":     t.TripID,
		"device_id":   t.OwnerID,
		"ship_name":   t.ShipName,
		"cruise_line": t.CruiseLine,
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("triprepo.PostgresRepository.Create: %w", err)
	}
	for i, p := range t.Ports {
		if err := r.insertPort(ctx, t.TripID, i+1, p); err != nil {
			return fmt.Errorf("triprepo.PostgresRepository.Create: %w", err)
		}
	}
	return nil
}

// Get implements trip.Repository.
func (r *PostgresRepository) Get(ctx context.Context, tripID, ownerID string) (trip.Trip, error) {
	const q = `
		SELECT trip_id, device_id, ship_name, cruise_line, created_at, updated_at
		FROM trips
		WHERE trip_id = @trip_id AND device_id = @device_id`

	t, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "device_id": ownerID}))
	if err != nil {
		return trip.Trip{}, fmt.Errorf("triprepo.PostgresRepository.Get: %w", err)
	}
	ports, err := r.ports(ctx, []string{tripID})
	if err != nil {
		return trip.Trip{}, fmt.Errorf("triprepo.PostgresRepository.Get: %w", err)
	}
	t.Ports = orEmpty(ports[tripID])
	return t, nil
}

// List implements trip.Repository.
func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]trip.Trip, error) {
	const q = `
		SELECT trip_id, device_id, ship_name, cruise_line, created_at, updated_at
		FROM trips
		WHERE device_id = @device_id
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"device_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("triprepo.PostgresRepository.List: %w", err)
	}
	defer rows.Close()

	trips := make([]trip.Trip, 0)
	ids := make([]string, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("triprepo.PostgresRepository.List: scan: %w", err)
		}
		trips = append(trips, t)
		ids = append(ids, t.TripID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("triprepo.PostgresRepository.List: rows: %w", err)
	}
	rows.Close()

	ports, err := r.ports(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("triprepo.PostgresRepository.List: %w", err)
	}
	for i := range trips {
		trips[i].Ports = orEmpty(ports[trips[i].TripID])
	}
	return trips, nil
}

// Update implements trip.Repository.
func (r *PostgresRepository) Update(ctx context.Context, t trip.Trip) error {
	const q = `
		UPDATE trips
		SET ship_name   = @ship_name,
		    cruise_line = @cruise_line,
		    updated_at  = @updated_at
		WHERE trip_id = @trip_id AND device_id = @device_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"trip_id":     t.TripID,
		"device_id":   t.OwnerID,
		"ship_name":   t.ShipName,
		"cruise_line": t.CruiseLine,
		"updated_at":  t.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("triprepo.PostgresRepository.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("triprepo.PostgresRepository.Update: %w", trip.ErrNotFound)
	}
	return nil
}

// Delete implements trip.Repository. Ports go with the trip via ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, tripID, ownerID string) error {
	const q = `DELETE FROM trips WHERE trip_id = @trip_id AND device_id = @device_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID, "device_id": ownerID})
	if err != nil {
		return fmt.Errorf("triprepo.PostgresRepository.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("triprepo.PostgresRepository.Delete: %w", trip.ErrNotFound)
	}
	return nil
}

// AddPort implements trip.Repository.
func (r *PostgresRepository) AddPort(ctx context.Context, tripID, ownerID string, port trip.Port) error {
	const q = `
		INSERT INTO trip_ports (port_id, trip_id, position, name, country, latitude, longitude, arrival, departure)
		SELECT @port_id, t.trip_id,
		       COALESCE((SELECT MAX(position) FROM trip_ports WHERE trip_id = t.trip_id), 0) + 1,
		       @name, @country, @latitude, @longitude, @arrival, @departure
		FROM trips t
		WHERE t.trip_id = @trip_id AND t.device_id = @device_id`

	args := portArgs(port)
	args["trip_id"] = tripID
	args["device_id"] = ownerID
	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("triprepo.PostgresRepository.AddPort: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("triprepo.PostgresRepository.AddPort: %w", trip.ErrNotFound)
	}
	return r.touch(ctx, tripID)
}

// UpdatePort implements trip.Repository.
func (r *PostgresRepository) UpdatePort(ctx context.Context, tripID, ownerID string, port trip.Port) error {
	if _, err := r.ownedTrip(ctx, tripID, ownerID); err != nil {
		return fmt.Errorf("triprepo.PostgresRepository.UpdatePort: %w", err)
	}
	const q = `
		UPDATE trip_ports
		SET name = @name, country = @country, latitude = @latitude, longitude = @longitude,
		    arrival = @arrival, departure = @departure
		WHERE port_id = @port_id AND trip_id = @trip_id`

	args := portArgs(port)
	args["trip_id"] = tripID
	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("triprepo.PostgresRepository.UpdatePort: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("triprepo.PostgresRepository.UpdatePort: %w", trip.ErrPortNotFound)
	}
	return r.touch(ctx, tripID)
}

// RemovePort implements trip.Repository.
func (r *PostgresRepository) RemovePort(ctx context.Context, tripID, portID, ownerID string) (bool, error) {
	if _, err := r.ownedTrip(ctx, tripID, ownerID); err != nil {
		return false, fmt.Errorf("triprepo.PostgresRepository.RemovePort: %w", err)
	}
	const q = `DELETE FROM trip_ports WHERE port_id = @port_id AND trip_id = @trip_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"port_id": portID, "trip_id": tripID})
	if err != nil {
		return false, fmt.Errorf("triprepo.PostgresRepository.RemovePort: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	return true, r.touch(ctx, tripID)
}

// GetTripPort implements trip.Repository.
func (r *PostgresRepository) GetTripPort(ctx context.Context, tripID, portID, ownerID string) (trip.Trip, trip.Port, error) {
	t, err := r.Get(ctx, tripID, ownerID)
	if err != nil {
		return trip.Trip{}, trip.Port{}, err
	}
	for _, p := range t.Ports {
		if p.PortID == portID {
			return t, p, nil
		}
	}
	return trip.Trip{}, trip.Port{}, fmt.Errorf("triprepo.PostgresRepository.GetTripPort: %w", trip.ErrPortNotFound)
}

func (r *PostgresRepository) ownedTrip(ctx context.Context, tripID, ownerID string) (string, error) {
	const q = `SELECT trip_id FROM trips WHERE trip_id = @trip_id AND device_id = @device_id`

	var id string
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "device_id": ownerID}).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", trip.ErrNotFound
	}
	return id, err
}

func (r *PostgresRepository) touch(ctx context.Context, tripID string) error {
	const q = `UPDATE trips SET updated_at = @now WHERE trip_id = @trip_id`
	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"now": time.Now().UTC(), "trip_id": tripID}); err != nil {
		return fmt.Errorf("triprepo.PostgresRepository.touch: %w", err)
	}
	return nil
}

func (r *PostgresRepository) insertPort(ctx context.Context, tripID string, position int, p trip.Port) error {
	const q = `
		INSERT INTO trip_ports (port_id, trip_id, position, name, country, latitude, longitude, arrival, departure)
		VALUES (@port_id, @trip_id, @position, @name, @country, @latitude, @longitude, @arrival, @departure)`

	args := portArgs(p)
	args["trip_id"] = tripID
	args["position"] = position
	_, err := r.db.Exec(ctx, q, args)
	return err
}

func (r *PostgresRepository) ports(ctx context.Context, tripIDs []string) (map[string][]trip.Port, error) {
	out := make(map[string][]trip.Port, len(tripIDs))
	if len(tripIDs) == 0 {
		return out, nil
	}
	const q = `
		SELECT trip_id, port_id, name, country, latitude, longitude, arrival, departure
		FROM trip_ports
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, position`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_ids": tripIDs})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tripID string
			p      trip.Port
		)
		if err := rows.Scan(&tripID, &p.PortID, &p.Name, &p.Country, &p.Latitude, &p.Longitude, &p.Arrival, &p.Departure); err != nil {
			return nil, err
		}
		out[tripID] = append(out[tripID], p)
	}
	return out, rows.Err()
}

func portArgs(p trip.Port) pgx.NamedArgs {
	return pgx.NamedArgs{
		"port_id":   p.PortID,
		"name":      p.Name,
		"country":   p.Country,
		"latitude":  p.Latitude,
		"longitude": p.Longitude,
		"arrival":   p.Arrival,
		"departure": p.Departure,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(s scanner) (trip.Trip, error) {
	var t trip.Trip
	err := s.Scan(&t.TripID, &t.OwnerID, &t.ShipName, &t.CruiseLine, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.Trip{}, trip.ErrNotFound
		}
		return trip.Trip{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func orEmpty(ports []trip.Port) []trip.Port {
	if ports == nil {
		return []trip.Port{}
	}
	return ports
}

var _ trip.Repository = (*PostgresRepository)(nil)
