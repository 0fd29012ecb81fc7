package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/cruise-planner/internal/bootstrap"
	"github.com/yanqian/cruise-planner/internal/domain/affiliate"
	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
	"github.com/yanqian/cruise-planner/internal/domain/device"
	"github.com/yanqian/cruise-planner/internal/domain/portcatalog"
	"github.com/yanqian/cruise-planner/internal/domain/trip"
	"github.com/yanqian/cruise-planner/internal/infra/affiliateconf"
	"github.com/yanqian/cruise-planner/internal/infra/config"
	"github.com/yanqian/cruise-planner/internal/infra/database"
	"github.com/yanqian/cruise-planner/internal/infra/llm/gemini"
	"github.com/yanqian/cruise-planner/internal/infra/llm/openaicompat"
	"github.com/yanqian/cruise-planner/internal/infra/planrepo"
	"github.com/yanqian/cruise-planner/internal/infra/triprepo"
	"github.com/yanqian/cruise-planner/internal/infra/weather/openmeteo"
	"github.com/yanqian/cruise-planner/pkg/metrics"
)

// providePostgresPool returns nil when Postgres is not configured or not
// reachable; stores then fall back to memory.
func providePostgresPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	pgCfg := cfg.Storage.Postgres
	if strings.TrimSpace(pgCfg.DSN) == "" {
		logger.Info("postgres dsn not set, using memory repositories")
		return nil, func() {}
	}
	if pgCfg.AutoMigrate {
		versions, err := database.Migrate(ctx, pgCfg.DSN)
		if err != nil {
			logger.Error("postgres migration failed, using memory repositories", "error", err)
			return nil, func() {}
		}
		logger.Info("postgres migrations applied", "versions", versions)
	}
	pool, err := database.OpenPool(ctx, pgCfg)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repositories", "error", err)
		return nil, func() {}
	}
	logger.Info("postgres storage enabled")
	return pool, pool.Close
}

// provideValkeyClient returns nil when Valkey is disabled or unreachable.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	vcfg := cfg.Storage.Valkey
	if !vcfg.Enabled {
		return nil, func() {}
	}
	opt, err := buildValkeyOptions(vcfg.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, skipping valkey", "error", err)
		return nil, func() {}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, skipping valkey", "error", err)
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, skipping valkey", "error", err)
		client.Close()
		return nil, func() {}
	}
	logger.Info("valkey client ready", "addr", vcfg.Addr)
	return client, client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideTripRepository(pool *pgxpool.Pool, logger *slog.Logger) trip.Repository {
	if pool == nil {
		return triprepo.NewMemoryRepository()
	}
	logger.Info("trip postgres repository enabled")
	return triprepo.NewPostgresRepository(pool)
}

// providePlanRepository prefers Postgres, then Valkey, then memory.
func providePlanRepository(cfg *config.Config, pool *pgxpool.Pool, client valkey.Client, logger *slog.Logger) dayplan.PlanRepository {
	switch {
	case pool != nil:
		logger.Info("plan postgres repository enabled")
		return planrepo.NewPostgresRepository(pool)
	case client != nil:
		logger.Info("plan valkey repository enabled", "prefix", cfg.Storage.Valkey.Prefix)
		return planrepo.NewValkeyRepository(client, cfg.Storage.Valkey.Prefix)
	default:
		logger.Info("plan memory repository enabled")
		return planrepo.NewMemoryRepository()
	}
}

func providePlanCleaner(plans dayplan.PlanRepository) trip.PlanCleaner {
	return plans
}

func provideContextSource(trips trip.Service) dayplan.ContextSource {
	return trips
}

func provideWeatherClient(cfg *config.Config, logger *slog.Logger) *openmeteo.Client {
	return openmeteo.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timeout, logger)
}

// provideTextGenerator builds the configured provider. A missing key is not
// fatal: the gateway reports LLMNotConfigured per request instead.
func provideTextGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dayplan.TextGenerator, func(), error) {
	llm := cfg.LLM
	var (
		gen     dayplan.TextGenerator
		cleanup = func() {}
		err     error
	)
	switch llm.Provider {
	case config.ProviderGemini:
		var client *gemini.Client
		client, err = gemini.NewClient(ctx, llm.APIKey, llm.Model)
		if err == nil {
			gen = client
			cleanup = func() { _ = client.Close() }
		}
	default:
		baseURL := llm.BaseURL
		if baseURL == "" && llm.Provider == config.ProviderOpenAI {
			baseURL = openaicompat.OpenAIBaseURL
		}
		var client *openaicompat.Client
		client, err = openaicompat.NewClient(openaicompat.Config{
			APIKey:  llm.APIKey,
			BaseURL: baseURL,
			Model:   llm.Model,
			Timeout: llm.Timeout,
		})
		if err == nil {
			gen = client
		}
	}
	if errors.Is(err, dayplan.ErrMissingAPIKey) {
		logger.Warn("llm api key not set, plan generation disabled", "provider", llm.Provider)
		return nil, cleanup, nil
	}
	if err != nil {
		return nil, cleanup, err
	}
	logger.Info("llm provider configured", "provider", llm.Provider, "model", llm.Model)
	return gen, cleanup, nil
}

func provideGatewayConfig(cfg *config.Config) dayplan.GatewayConfig {
	return dayplan.GatewayConfig{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		SystemInstruction: cfg.LLM.SystemInstruction,
		Temperature:       cfg.LLM.Temperature,
	}
}

func provideTokenCounter() *metrics.TokenCounter {
	return metrics.NewTokenCounter("")
}

func provideObserver(recorder *metrics.Recorder) dayplan.Observer {
	return recorder
}

// affiliateSetup carries the id source and, when a file is configured, its watcher.
type affiliateSetup struct {
	ids     affiliate.IDSource
	watcher *affiliateconf.FileSource
}

// provideAffiliateSetup layers the watched file over the environment and
// then the ids from config.
func provideAffiliateSetup(cfg *config.Config, logger *slog.Logger) (affiliateSetup, error) {
	a := cfg.Affiliate
	base := affiliateconf.Chain{
		affiliateconf.EnvSource{},
		affiliateconf.StaticSource{
			affiliate.PartnerViator:       a.Viator,
			affiliate.PartnerGetYourGuide: a.GetYourGuide,
			affiliate.PartnerKlook:        a.Klook,
			affiliate.PartnerTripAdvisor:  a.TripAdvisor,
			affiliate.PartnerBooking:      a.Booking,
		},
	}
	if strings.TrimSpace(a.File) == "" {
		return affiliateSetup{ids: base}, nil
	}
	file, err := affiliateconf.NewFileSource(a.File, base, logger)
	if err != nil {
		return affiliateSetup{}, err
	}
	return affiliateSetup{ids: file, watcher: file}, nil
}

func provideAffiliateIDs(setup affiliateSetup) affiliate.IDSource {
	return setup.ids
}

func provideBackgroundTasks(setup affiliateSetup) []bootstrap.Task {
	if setup.watcher == nil {
		return nil
	}
	return []bootstrap.Task{setup.watcher}
}

func provideDeviceConfig(cfg *config.Config) device.Config {
	return device.Config{Secret: cfg.Auth.Secret, TokenTTL: cfg.Auth.TokenTTL}
}

func provideCatalog(cfg *config.Config) (*portcatalog.Catalog, error) {
	return portcatalog.New(portcatalog.Config{
		DefaultLimit: cfg.Catalog.DefaultLimit,
		MaxLimit:     cfg.Catalog.MaxLimit,
	})
}
