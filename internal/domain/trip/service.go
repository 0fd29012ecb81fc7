package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
	apperrors "github.com/yanqian/cruise-planner/pkg/errors"
	"github.com/yanqian/cruise-planner/pkg/util"
)

const (
	maxShipNameLen = 200
	maxPortNameLen = 200
)

// Service exposes trip and port management.
type Service interface {
	CreateTrip(ctx context.Context, ownerID string, req CreateTripRequest) (Trip, error)
	ListTrips(ctx context.Context, ownerID string) ([]Trip, error)
	GetTrip(ctx context.Context, tripID, ownerID string) (Trip, error)
	UpdateTrip(ctx context.Context, tripID, ownerID string, req UpdateTripRequest) (Trip, error)
	DeleteTrip(ctx context.Context, tripID, ownerID string) error
	AddPort(ctx context.Context, tripID, ownerID string, req PortRequest) (Port, error)
	UpdatePort(ctx context.Context, tripID, portID, ownerID string, req UpdatePortRequest) (Port, error)
	RemovePort(ctx context.Context, tripID, portID, ownerID string) error
	PortContext(ctx context.Context, tripID, portID, ownerID string) (dayplan.PortContext, error)
}

type service struct {
	repo   Repository
	plans  PlanCleaner
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewService wires up the trip domain. plans may be nil.
func NewService(repo Repository, plans PlanCleaner, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		plans:  plans,
		logger: logger.With("component", "trip.service"),
		now:    util.NowUTC,
		newID:  util.NewID,
	}
}

func (s *service) CreateTrip(ctx context.Context, ownerID string, req CreateTripRequest) (Trip, error) {
	if err := requireOwner(ownerID); err != nil {
		return Trip{}, err
	}
	ship, err := normalizeShipName(req.ShipName)
	if err != nil {
		return Trip{}, err
	}
	now := s.now()
	t := Trip{
		TripID:     s.newID(),
		OwnerID:    ownerID,
		ShipName:   ship,
		CruiseLine: strings.TrimSpace(req.CruiseLine),
		Ports:      []Port{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Trip{}, apperrors.Wrap("trip_store_error", "failed to create trip", err)
	}
	s.logger.Info("trip created", "trip_id", t.TripID)
	return t, nil
}

func (s *service) ListTrips(ctx context.Context, ownerID string) ([]Trip, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	trips, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Wrap("trip_store_error", "failed to list trips", err)
	}
	if trips == nil {
		trips = []Trip{}
	}
	return trips, nil
}

func (s *service) GetTrip(ctx context.Context, tripID, ownerID string) (Trip, error) {
	if err := requireOwner(ownerID); err != nil {
		return Trip{}, err
	}
	t, err := s.repo.Get(ctx, tripID, ownerID)
	if err != nil {
		return Trip{}, wrapRepoError(err, "failed to load trip")
	}
	return t, nil
}

func (s *service) UpdateTrip(ctx context.Context, tripID, ownerID string, req UpdateTripRequest) (Trip, error) {
	t, err := s.GetTrip(ctx, tripID, ownerID)
	if err != nil {
		return Trip{}, err
	}
	if req.ShipName != nil {
		ship, err := normalizeShipName(*req.ShipName)
		if err != nil {
			return Trip{}, err
		}
		t.ShipName = ship
	}
	if req.CruiseLine != nil {
		t.CruiseLine = strings.TrimSpace(*req.CruiseLine)
	}
	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		return Trip{}, wrapRepoError(err, "failed to update trip")
	}
	return t, nil
}

func (s *service) DeleteTrip(ctx context.Context, tripID, ownerID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tripID, ownerID); err != nil {
		return wrapRepoError(err, "failed to delete trip")
	}
	if s.plans != nil {
		if err := s.plans.DeleteByTrip(ctx, tripID, ownerID); err != nil {
			s.logger.Error("plan cascade delete failed", "trip_id", tripID, "error", err)
		}
	}
	s.logger.Info("trip deleted", "trip_id", tripID)
	return nil
}

func (s *service) AddPort(ctx context.Context, tripID, ownerID string, req PortRequest) (Port, error) {
	if err := requireOwner(ownerID); err != nil {
		return Port{}, err
	}
	if req.Latitude == nil || req.Longitude == nil {
		return Port{}, apperrors.Wrap("invalid_input", "latitude and longitude are required", nil)
	}
	port := Port{
		PortID:    s.newID(),
		Name:      strings.TrimSpace(req.Name),
		Country:   strings.TrimSpace(req.Country),
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Arrival:   strings.TrimSpace(req.Arrival),
		Departure: strings.TrimSpace(req.Departure),
	}
	if err := validatePort(port); err != nil {
		return Port{}, err
	}
	if err := s.repo.AddPort(ctx, tripID, ownerID, port); err != nil {
		return Port{}, wrapRepoError(err, "failed to add port")
	}
	return port, nil
}

func (s *service) UpdatePort(ctx context.Context, tripID, portID, ownerID string, req UpdatePortRequest) (Port, error) {
	if err := requireOwner(ownerID); err != nil {
		return Port{}, err
	}
	_, port, err := s.repo.GetTripPort(ctx, tripID, portID, ownerID)
	if err != nil {
		return Port{}, wrapRepoError(err, "failed to load port")
	}
	if req.Name != nil {
		port.Name = strings.TrimSpace(*req.Name)
	}
	if req.Country != nil {
		port.Country = strings.TrimSpace(*req.Country)
	}
	if req.Latitude != nil {
		port.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		port.Longitude = *req.Longitude
	}
	if req.Arrival != nil {
		port.Arrival = strings.TrimSpace(*req.Arrival)
	}
	if req.Departure != nil {
		port.Departure = strings.TrimSpace(*req.Departure)
	}
	if err := validatePort(port); err != nil {
		return Port{}, err
	}
	if err := s.repo.UpdatePort(ctx, tripID, ownerID, port); err != nil {
		return Port{}, wrapRepoError(err, "failed to update port")
	}
	return port, nil
}

// RemovePort deletes a port and its plans. A port that is already gone on an
// existing trip is not an error.
func (s *service) RemovePort(ctx context.Context, tripID, portID, ownerID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	removed, err := s.repo.RemovePort(ctx, tripID, portID, ownerID)
	if err != nil {
		return wrapRepoError(err, "failed to remove port")
	}
	if !removed {
		s.logger.Info("port already absent", "trip_id", tripID, "port_id", portID)
		return nil
	}
	if s.plans != nil {
		if err := s.plans.DeleteByPort(ctx, tripID, portID, ownerID); err != nil {
			s.logger.Error("plan cascade delete failed", "trip_id", tripID, "port_id", portID, "error", err)
		}
	}
	return nil
}

// PortContext implements dayplan.ContextSource.
func (s *service) PortContext(ctx context.Context, tripID, portID, ownerID string) (dayplan.PortContext, error) {
	t, port, err := s.repo.GetTripPort(ctx, tripID, portID, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPortNotFound) {
			return dayplan.PortContext{}, fmt.Errorf("%w: %v", dayplan.ErrContextNotFound, err)
		}
		return dayplan.PortContext{}, err
	}
	return dayplan.PortContext{
		TripID:     t.TripID,
		ShipName:   t.ShipName,
		CruiseLine: t.CruiseLine,
		PortID:     port.PortID,
		Name:       port.Name,
		Country:    port.Country,
		Latitude:   port.Latitude,
		Longitude:  port.Longitude,
		Arrival:    port.Arrival,
		Departure:  port.Departure,
	}, nil
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return apperrors.Wrap("unauthorized", "device identity is required", nil)
	}
	return nil
}

func normalizeShipName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.Wrap("invalid_input", "ship_name is required", nil)
	}
	if len(name) > maxShipNameLen {
		return "", apperrors.Wrap("invalid_input", "ship_name is too long", nil)
	}
	return name, nil
}

var localTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseLocalTime(v string) (time.Time, bool) {
	for _, layout := range localTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func validatePort(p Port) error {
	switch {
	case p.Name == "":
		return apperrors.Wrap("invalid_input", "port name is required", nil)
	case len(p.Name) > maxPortNameLen:
		return apperrors.Wrap("invalid_input", "port name is too long", nil)
	case p.Country == "":
		return apperrors.Wrap("invalid_input", "country is required", nil)
	case math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90:
		return apperrors.Wrap("invalid_input", "latitude must be between -90 and 90", nil)
	case math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180:
		return apperrors.Wrap("invalid_input", "longitude must be between -180 and 180", nil)
	}
	arrival, ok := parseLocalTime(p.Arrival)
	if !ok {
		return apperrors.Wrap("invalid_input", "arrival must be formatted as YYYY-MM-DDTHH:MM[:SS]", nil)
	}
	departure, ok := parseLocalTime(p.Departure)
	if !ok {
		return apperrors.Wrap("invalid_input", "departure must be formatted as YYYY-MM-DDTHH:MM[:SS]", nil)
	}
	if departure.Before(arrival) {
		return apperrors.Wrap("invalid_input", "departure must not be before arrival", nil)
	}
	return nil
}

func wrapRepoError(err error, message string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.Wrap("not_found", "trip not found", err)
	case errors.Is(err, ErrPortNotFound):
		return apperrors.Wrap("not_found", "port not found", err)
	default:
		return apperrors.Wrap("trip_store_error", message, err)
	}
}
