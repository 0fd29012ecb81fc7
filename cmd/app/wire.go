//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/yanqian/cruise-planner/internal/bootstrap"
	"github.com/yanqian/cruise-planner/internal/domain/affiliate"
	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
	"github.com/yanqian/cruise-planner/internal/domain/device"
	"github.com/yanqian/cruise-planner/internal/domain/trip"
	"github.com/yanqian/cruise-planner/internal/infra/config"
	"github.com/yanqian/cruise-planner/internal/infra/weather/openmeteo"
	httpiface "github.com/yanqian/cruise-planner/internal/interface/http"
	"github.com/yanqian/cruise-planner/pkg/logger"
	"github.com/yanqian/cruise-planner/pkg/metrics"
)

func initializeApp(ctx context.Context, cfg *config.Config) (*bootstrap.App, func(), error) {
	wire.Build(
		logger.New,
		metrics.NewRecorder,
		providePostgresPool,
		provideValkeyClient,
		provideTripRepository,
		providePlanRepository,
		providePlanCleaner,
		trip.NewService,
		provideContextSource,
		provideWeatherClient,
		provideTextGenerator,
		provideGatewayConfig,
		provideTokenCounter,
		dayplan.NewGateway,
		provideAffiliateSetup,
		provideAffiliateIDs,
		provideBackgroundTasks,
		affiliate.NewRewriter,
		provideObserver,
		dayplan.NewService,
		provideDeviceConfig,
		device.NewService,
		provideCatalog,
		wire.Bind(new(dayplan.WeatherSource), new(*openmeteo.Client)),
		wire.Bind(new(dayplan.LinkRewriter), new(*affiliate.Rewriter)),
		wire.Bind(new(httpiface.WeatherProvider), new(*openmeteo.Client)),
		wire.Bind(new(httpiface.LLMStatus), new(*dayplan.Gateway)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
