package dayplan

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/cruise-planner/pkg/errors"
	"github.com/yanqian/cruise-planner/pkg/metrics"
	"github.com/yanqian/cruise-planner/pkg/util"
)

// Service runs the day-plan pipeline and exposes stored plans.
type Service interface {
	Generate(ctx context.Context, req RequestContext) Result
	GetPlan(ctx context.Context, planID, ownerID string) (PersistedPlan, error)
	ListPlans(ctx context.Context, ownerID string, filter ListFilter) ([]PersistedPlan, error)
	DeletePlan(ctx context.Context, planID, ownerID string) error
}

// Observer receives generation metrics.
type Observer interface {
	ObserveGeneration(result string, elapsed time.Duration)
	AddTokens(usage metrics.TokenUsage)
}

type noopObserver struct{}

func (noopObserver) ObserveGeneration(string, time.Duration) {}
func (noopObserver) AddTokens(metrics.TokenUsage)            {}

type service struct {
	contexts ContextSource
	weather  WeatherSource
	gateway  *Gateway
	links    LinkRewriter
	plans    PlanRepository
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewService wires up the day-plan domain.
func NewService(contexts ContextSource, weather WeatherSource, gateway *Gateway, links LinkRewriter, plans PlanRepository, observer Observer, logger *slog.Logger) Service {
	if observer == nil {
		observer = noopObserver{}
	}
	return &service{
		contexts: contexts,
		weather:  weather,
		gateway:  gateway,
		links:    links,
		plans:    plans,
		observer: observer,
		logger:   logger.With("component", "dayplan.service"),
		now:      util.NowUTC,
		newID:    util.NewID,
	}
}

// Generate runs context lookup, weather, prompt, generation, validation,
// link rewriting and persistence in that order. Weather and parse problems
// never fail a run.
func (s *service) Generate(ctx context.Context, req RequestContext) (res Result) {
	started := time.Now()
	req.Preferences = req.Preferences.WithDefaults()
	log := s.logger.With("trip_id", req.TripID, "port_id", req.PortID)
	defer func() {
		if res.Failure != nil {
			log.Warn("plan generation failed", "kind", res.Failure.Kind, "detail", res.Failure.Detail)
		}
		s.observer.ObserveGeneration(res.metricLabel(), time.Since(started))
	}()

	port, err := s.contexts.PortContext(ctx, req.TripID, req.PortID, req.OwnerID)
	if err != nil {
		if errors.Is(err, ErrContextNotFound) {
			return Failed(KindContextNotFound, "trip or port not found")
		}
		log.Error("plan context lookup failed", "error", err)
		return Failed(KindContextUnavailable, "trip data could not be loaded")
	}

	weather := WeatherUnavailable()
	if s.weather != nil {
		weather = s.weather.Summary(ctx, port.Latitude, port.Longitude, port.ArrivalDate())
	}
	log.Info("weather resolved", "available", weather.Available)

	prompt := BuildPrompt(req, port, weather)

	completion, err := s.gateway.Generate(ctx, prompt)
	if err != nil {
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			genErr = &GenerationError{Kind: KindProviderError, Err: err}
		}
		return Failed(genErr.Kind, failureDetail(genErr))
	}
	s.observer.AddTokens(completion.Usage)

	plan := ParseResponse(completion.Text)
	if plan.IsDegraded() {
		log.Warn("provider response could not be parsed", "error", plan.Degraded.ErrorMessage)
	} else if s.links != nil {
		rewritten := plan.Generated.WithBookingURLs(s.links.RewriteURL)
		plan = Plan{Generated: &rewritten}
	}

	persisted := PersistedPlan{
		PlanID:      s.newID(),
		OwnerID:     req.OwnerID,
		TripID:      req.TripID,
		PortID:      req.PortID,
		PortName:    port.Name,
		Preferences: req.Preferences,
		Plan:        plan,
		GeneratedAt: s.now(),
	}
	if weather.Available {
		w := weather
		persisted.Weather = &w
	}
	if err := s.plans.Save(ctx, persisted); err != nil {
		log.Error("plan persistence failed", "error", err)
		return Failed(KindPersistenceFailure, "plan could not be saved")
	}
	log.Info("plan generated", "plan_id", persisted.PlanID, "degraded", plan.IsDegraded())
	return Success(persisted)
}

// failureDetail returns the caller-facing detail. Generic failures carry the
// provider's own error text.
func failureDetail(genErr *GenerationError) string {
	switch genErr.Kind {
	case KindLLMNotConfigured:
		return "AI service is not configured"
	case KindQuotaExceeded:
		return "AI service quota exceeded, try again later"
	case KindAuthenticationFailed:
		return "AI service rejected the configured credentials"
	}
	if genErr.Err != nil {
		if detail := strings.TrimSpace(genErr.Err.Error()); detail != "" {
			return detail
		}
	}
	return "AI service is temporarily unavailable"
}

func (s *service) GetPlan(ctx context.Context, planID, ownerID string) (PersistedPlan, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return PersistedPlan{}, apperrors.Wrap("invalid_input", "plan id is required", nil)
	}
	plan, err := s.plans.Get(ctx, planID, ownerID)
	if err != nil {
		return PersistedPlan{}, wrapStoreError(err, "failed to load plan")
	}
	return plan, nil
}

func (s *service) ListPlans(ctx context.Context, ownerID string, filter ListFilter) ([]PersistedPlan, error) {
	plans, err := s.plans.List(ctx, ownerID, filter)
	if err != nil {
		return nil, wrapStoreError(err, "failed to list plans")
	}
	if plans == nil {
		plans = []PersistedPlan{}
	}
	return plans, nil
}

func (s *service) DeletePlan(ctx context.Context, planID, ownerID string) error {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return apperrors.Wrap("invalid_input", "plan id is required", nil)
	}
	if err := s.plans.Delete(ctx, planID, ownerID); err != nil {
		return wrapStoreError(err, "failed to delete plan")
	}
	return nil
}

func wrapStoreError(err error, message string) error {
	if errors.Is(err, ErrPlanNotFound) {
		return apperrors.Wrap("plan_not_found", "plan not found", err)
	}
	return apperrors.Wrap("plan_store_error", message, err)
}
