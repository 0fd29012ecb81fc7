package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
)

const (
	defaultBaseURL = "https://api.open-meteo.com/v1/forecast"
	maxTimeout     = 15 * time.Second
	dailyFields    = "temperature_2m_max,temperature_2m_min,precipitation_sum,windspeed_10m_max,weathercode"
)

// Query selects the forecast location and an optional single day.
type Query struct {
	Latitude  float64
	Longitude float64
	// Date is YYYY-MM-DD; empty returns the provider's default range.
	Date string
}

// Forecast mirrors the daily section of an Open-Meteo response.
type Forecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
	Daily     Daily   `json:"daily"`
}

// Daily holds parallel per-day series. Missing values are null.
type Daily struct {
	Time             []string   `json:"time"`
	TemperatureMax   []*float64 `json:"temperature_2m_max"`
	TemperatureMin   []*float64 `json:"temperature_2m_min"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	WindSpeedMax     []*float64 `json:"windspeed_10m_max"`
	WeatherCode      []*float64 `json:"weathercode"`
}

// Client fetches daily forecasts from Open-Meteo.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds an API client. The timeout is capped at 15 seconds.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	endpoint := strings.TrimSpace(baseURL)
	if endpoint == "" {
		endpoint = defaultBaseURL
	}
	if timeout <= 0 || timeout > maxTimeout {
		timeout = maxTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "openmeteo.client"),
	}
}

// Forecast retrieves the daily forecast for q.
func (c *Client) Forecast(ctx context.Context, q Query) (Forecast, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("daily", dailyFields)
	params.Set("timezone", "auto")
	if date := strings.TrimSpace(q.Date); date != "" {
		params.Set("start_date", date)
		params.Set("end_date", date)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Forecast{}, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Forecast{}, fmt.Errorf("weather request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var forecast Forecast
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&forecast); err != nil {
		return Forecast{}, fmt.Errorf("decode weather response: %w", err)
	}
	return forecast, nil
}

// Summary implements dayplan.WeatherSource. Any failure yields the
// unavailable summary.
func (c *Client) Summary(ctx context.Context, latitude, longitude float64, date string) dayplan.WeatherSummary {
	forecast, err := c.Forecast(ctx, Query{Latitude: latitude, Longitude: longitude, Date: date})
	if err != nil {
		c.logger.Debug("weather unavailable", "error", err)
		return dayplan.WeatherUnavailable()
	}
	summary, ok := summarize(forecast.Daily, date)
	if !ok {
		c.logger.Debug("weather unavailable", "error", "forecast has no usable day", "date", date)
		return dayplan.WeatherUnavailable()
	}
	return summary
}

// summarize picks the day matching date, or the first day when date is
// empty. Both temperatures are required; other fields default to zero.
func summarize(d Daily, date string) (dayplan.WeatherSummary, bool) {
	idx := -1
	for i, day := range d.Time {
		if date == "" || day == date {
			idx = i
			break
		}
	}
	if idx < 0 {
		return dayplan.WeatherSummary{}, false
	}
	maxC, okMax := at(d.TemperatureMax, idx)
	minC, okMin := at(d.TemperatureMin, idx)
	if !okMax || !okMin {
		return dayplan.WeatherSummary{}, false
	}
	precip, _ := at(d.PrecipitationSum, idx)
	wind, _ := at(d.WindSpeedMax, idx)
	return dayplan.WeatherSummary{
		Available:       true,
		Date:            d.Time[idx],
		TempMaxC:        maxC,
		TempMinC:        minC,
		PrecipitationMM: precip,
		WindSpeedKmh:    wind,
	}, true
}

func at(values []*float64, idx int) (float64, bool) {
	if idx >= len(values) || values[idx] == nil {
		return 0, false
	}
	return *values[idx], true
}

var _ dayplan.WeatherSource = (*Client)(nil)
