package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cruise-planner/internal/infra/config"
	"github.com/yanqian/cruise-planner/pkg/metrics"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, recorder *metrics.Recorder, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger),
		metricsMiddleware(recorder),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	api := router.Group("/api/v1",
		identityMiddleware(handler.devices),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)
	{
		api.POST("/devices/token", handler.IssueDeviceToken)
		api.GET("/weather", handler.Weather)
		api.GET("/ports/search", handler.SearchPorts)
		api.GET("/ports/regions", handler.PortRegions)
	}

	owned := api.Group("", requireOwner())
	{
		owned.POST("/trips", handler.CreateTrip)
		owned.GET("/trips", handler.ListTrips)
		owned.GET("/trips/:tripId", handler.GetTrip)
		owned.PUT("/trips/:tripId", handler.UpdateTrip)
		owned.DELETE("/trips/:tripId", handler.DeleteTrip)
		owned.POST("/trips/:tripId/ports", handler.AddPort)
		owned.PUT("/trips/:tripId/ports/:portId", handler.UpdatePort)
		owned.DELETE("/trips/:tripId/ports/:portId", handler.RemovePort)

		owned.POST("/plans/generate", handler.GeneratePlan)
		owned.GET("/plans", handler.ListPlans)
		owned.GET("/plans/:planId", handler.GetPlan)
		owned.DELETE("/plans/:planId", handler.DeletePlan)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
