package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cruise-planner/internal/infra/weather/openmeteo"
)

// Weather proxies a daily forecast for a coordinate and optional date.
func (h *Handler) Weather(c *gin.Context) {
	lat, ok := parseCoordinate(c, "latitude", 90)
	if !ok {
		return
	}
	lon, ok := parseCoordinate(c, "longitude", 180)
	if !ok {
		return
	}
	date := strings.TrimSpace(c.Query("date"))
	if date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", "date must be formatted as YYYY-MM-DD", err))
			return
		}
	}

	forecast, err := h.weather.Forecast(c.Request.Context(), openmeteo.Query{Latitude: lat, Longitude: lon, Date: date})
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadGateway, "weather_unavailable", "weather service unavailable", err))
		return
	}
	c.JSON(http.StatusOK, forecast)
}

func parseCoordinate(c *gin.Context, name string, bound float64) (float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", name+" is required", nil))
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < -bound || v > bound {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", name+" is out of range", err))
		return 0, false
	}
	return v, true
}

// SearchPorts searches the built-in port catalog.
func (h *Handler) SearchPorts(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", "limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}
	ports := h.catalog.Search(c.Query("q"), c.Query("region"), limit)
	c.JSON(http.StatusOK, gin.H{"ports": ports, "count": len(ports)})
}

// PortRegions lists catalog regions alphabetically.
func (h *Handler) PortRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"regions": h.catalog.Regions()})
}
