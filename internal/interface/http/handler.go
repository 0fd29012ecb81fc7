package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
	"github.com/yanqian/cruise-planner/internal/domain/device"
	"github.com/yanqian/cruise-planner/internal/domain/portcatalog"
	"github.com/yanqian/cruise-planner/internal/domain/trip"
	"github.com/yanqian/cruise-planner/internal/infra/weather/openmeteo"
)

// WeatherProvider serves the weather proxy endpoint.
type WeatherProvider interface {
	Forecast(ctx context.Context, q openmeteo.Query) (openmeteo.Forecast, error)
}

// LLMStatus reports whether a generation provider is configured.
type LLMStatus interface {
	Configured() bool
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	trips   trip.Service
	plans   dayplan.Service
	devices device.Service
	weather WeatherProvider
	catalog *portcatalog.Catalog
	llm     LLMStatus
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(trips trip.Service, plans dayplan.Service, devices device.Service, weather WeatherProvider, catalog *portcatalog.Catalog, llm LLMStatus, logger *slog.Logger) *Handler {
	return &Handler{
		trips:   trips,
		plans:   plans,
		devices: devices,
		weather: weather,
		catalog: catalog,
		llm:     llm,
		logger:  logger.With("component", "http.handler"),
	}
}

// Health reports liveness and whether plans can be generated.
func (h *Handler) Health(c *gin.Context) {
	configured := h.llm != nil && h.llm.Configured()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "llm_configured": configured})
}

// IssueDeviceToken exchanges a device id for a signed token.
func (h *Handler) IssueDeviceToken(c *gin.Context) {
	var req device.TokenRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.devices.Issue(c.Request.Context(), req)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return false
	}
	return true
}

// mustOwner returns the device identity set by requireOwner.
func mustOwner(c *gin.Context) string {
	ownerID, _ := ownerFrom(c)
	return ownerID
}
