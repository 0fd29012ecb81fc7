package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/cruise-planner/internal/domain/affiliate"
	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
	"github.com/yanqian/cruise-planner/internal/domain/device"
	"github.com/yanqian/cruise-planner/internal/domain/portcatalog"
	"github.com/yanqian/cruise-planner/internal/domain/trip"
	"github.com/yanqian/cruise-planner/internal/infra/affiliateconf"
	"github.com/yanqian/cruise-planner/internal/infra/config"
	"github.com/yanqian/cruise-planner/internal/infra/planrepo"
	"github.com/yanqian/cruise-planner/internal/infra/triprepo"
	"github.com/yanqian/cruise-planner/internal/infra/weather/openmeteo"
	"github.com/yanqian/cruise-planner/pkg/metrics"
)

const planJSON = `{
	"plan_title": "Barcelona in a day",
	"summary": "Gaudi and tapas",
	"return_by": "17:00",
	"total_estimated_cost": "EUR 120",
	"activities": [
		{"order": 1, "name": "Sagrada Familia", "booking_url": "https://www.viator.com/tours/Barcelona/d562"},
		{"order": 2, "name": "La Boqueria", "booking_url": null}
	],
	"packing_suggestions": ["water"],
	"safety_tips": ["watch for pickpockets"]
}`

type stubGenerator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (s *stubGenerator) Complete(context.Context, dayplan.CompletionRequest) (dayplan.Completion, error) {
	s.calls.Add(1)
	if s.err != nil {
		return dayplan.Completion{}, s.err
	}
	return dayplan.Completion{Text: s.text, Model: "stub"}, nil
}

type stubWeatherProvider struct {
	forecast openmeteo.Forecast
	err      error
	last     openmeteo.Query
}

func (s *stubWeatherProvider) Forecast(_ context.Context, q openmeteo.Query) (openmeteo.Forecast, error) {
	s.last = q
	return s.forecast, s.err
}

type fixture struct {
	server  *http.Server
	gen     *stubGenerator
	weather *stubWeatherProvider
	devices device.Service
}

type fixtureOption func(*config.Config, *fixtureDeps)

type fixtureDeps struct {
	withoutLLM bool
}

func withoutLLM() fixtureOption {
	return func(_ *config.Config, d *fixtureDeps) { d.withoutLLM = true }
}

func withRateLimit(burst int) fixtureOption {
	return func(cfg *config.Config, _ *fixtureDeps) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: burst}
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	logger := newTestLogger()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	var deps fixtureDeps
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	gen := &stubGenerator{text: planJSON}
	var textGen dayplan.TextGenerator = gen
	if deps.withoutLLM {
		textGen = nil
	}
	gateway := dayplan.NewGateway(dayplan.GatewayConfig{Provider: "groq", Model: "stub"}, textGen, nil, logger)

	plans := planrepo.NewMemoryRepository()
	trips := trip.NewService(triprepo.NewMemoryRepository(), plans, logger)
	rewriter := affiliate.NewRewriter(affiliateconf.StaticSource{affiliate.PartnerViator: "v1"})
	planSvc := dayplan.NewService(trips, nil, gateway, rewriter, plans, nil, logger)
	devices := device.NewService(device.Config{Secret: "test-secret", TokenTTL: time.Hour}, logger)
	catalog, err := portcatalog.New(portcatalog.Config{DefaultLimit: 5, MaxLimit: 10})
	require.NoError(t, err)
	weather := &stubWeatherProvider{}

	handler := NewHandler(trips, planSvc, devices, weather, catalog, gateway, logger)
	return &fixture{
		server:  NewRouter(cfg, handler, metrics.NewRecorder(), logger),
		gen:     gen,
		weather: weather,
		devices: devices,
	}
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rec, req)
	return rec
}

func asDevice(id string) map[string]string {
	return map[string]string{deviceIDHeader: id}
}

// seedPort creates a trip with one Barcelona call and returns both ids.
func (f *fixture) seedPort(t *testing.T, owner map[string]string) (string, string) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/v1/trips", `{"ship_name":"Harmony of the Seas","cruise_line":"Royal Caribbean"}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created trip.Trip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(http.MethodPost, "/api/v1/trips/"+created.TripID+"/ports",
		`{"name":"Barcelona","country":"Spain","latitude":41.3851,"longitude":2.1734,"arrival":"2025-06-01T08:00","departure":"2025-06-01T18:00"}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var port trip.Port
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &port))
	return created.TripID, port.PortID
}

func TestRouter_Health(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","llm_configured":true}`, rec.Body.String())

	rec = newFixture(t, withoutLLM()).do(http.MethodGet, "/healthz", "", nil)
	require.JSONEq(t, `{"status":"ok","llm_configured":false}`, rec.Body.String())
}

func TestRouter_RequestIDEcho(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: "req-123"})
	require.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rec = f.do(http.MethodGet, "/healthz", "", nil)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodGet, "/healthz", "", nil)

	rec := f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cruise_http_requests_total")
}

func TestRouter_TripsRequireIdentity(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/api/v1/trips", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_DeviceTokenFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/devices/token", `{"device_id":"ios-device-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var token device.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.NotEmpty(t, token.Token)

	bearer := map[string]string{"Authorization": "Bearer " + token.Token}
	rec = f.do(http.MethodPost, "/api/v1/trips", `{"ship_name":"Wonder of the Seas"}`, bearer)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/trips", "", asDevice("ios-device-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Trips []trip.Trip `json:"trips"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Trips, 1)

	rec = f.do(http.MethodGet, "/api/v1/trips", "", map[string]string{"Authorization": "Bearer not-a-token"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_token", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_TripValidationAndOwnership(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/trips", `{"ship_name":"  "}`, asDevice("a"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	tripID, portID := f.seedPort(t, asDevice("a"))

	rec = f.do(http.MethodGet, "/api/v1/trips/"+tripID, "", asDevice("b"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPut, "/api/v1/trips/"+tripID, `{"cruise_line":"RCI"}`, asDevice("a"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"cruise_line":"RCI"`)

	rec = f.do(http.MethodPut, "/api/v1/trips/"+tripID+"/ports/"+portID, `{"departure":"2025-06-01T07:00"}`, asDevice("a"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/v1/trips/"+tripID+"/ports/missing", `{"name":"Valencia"}`, asDevice("a"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/trips/"+tripID+"/ports/missing", "", asDevice("a"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/trips/unknown/ports/"+portID, "", asDevice("a"))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_GeneratePlanFlow(t *testing.T) {
	f := newFixture(t)
	owner := asDevice("device-1")
	tripID, portID := f.seedPort(t, owner)

	rec := f.do(http.MethodPost, "/api/v1/plans/generate",
		`{"trip_id":"`+tripID+`","port_id":"`+portID+`","preferences":{"currency":" eur "}}`, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var plan dayplan.PersistedPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.NotEmpty(t, plan.PlanID)
	require.Equal(t, "Barcelona", plan.PortName)
	require.Equal(t, "eur", plan.Preferences.Currency)
	require.Equal(t, "couple", plan.Preferences.PartyType)
	require.False(t, plan.Plan.IsDegraded())
	require.Equal(t, "https://www.viator.com/tours/Barcelona/d562?aid=v1&mcid=cruise-planner-app", *plan.Plan.Generated.Activities[0].BookingURL)
	require.Nil(t, plan.Plan.Generated.Activities[1].BookingURL)

	rec = f.do(http.MethodGet, "/api/v1/plans?trip_id="+tripID, "", owner)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Plans []dayplan.PersistedPlan `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Plans, 1)

	rec = f.do(http.MethodGet, "/api/v1/plans/"+plan.PlanID, "", asDevice("someone-else"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "plan_not_found", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = f.do(http.MethodDelete, "/api/v1/trips/"+tripID, "", owner)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/plans/"+plan.PlanID, "", owner)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_GeneratePlanFailures(t *testing.T) {
	t.Run("missing ids", func(t *testing.T) {
		rec := newFixture(t).do(http.MethodPost, "/api/v1/plans/generate", `{"trip_id":"t"}`, asDevice("d"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("context not found", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(http.MethodPost, "/api/v1/plans/generate", `{"trip_id":"t","port_id":"p"}`, asDevice("d"))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "context_not_found", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
		require.Zero(t, f.gen.calls.Load())
	})

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, withoutLLM())
		tripID, portID := f.seedPort(t, asDevice("d"))
		rec := f.do(http.MethodPost, "/api/v1/plans/generate", `{"trip_id":"`+tripID+`","port_id":"`+portID+`"}`, asDevice("d"))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeErrorBody(t, rec.Body.Bytes())
		require.Equal(t, "ai_service_not_configured", body["error"]["code"])
		require.Contains(t, body["error"]["message"], "API key")
	})

	t.Run("quota", func(t *testing.T) {
		f := newFixture(t)
		f.gen.err = errors.New("status=429 code=rate_limit_exceeded")
		tripID, portID := f.seedPort(t, asDevice("d"))
		rec := f.do(http.MethodPost, "/api/v1/plans/generate", `{"trip_id":"`+tripID+`","port_id":"`+portID+`"}`, asDevice("d"))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "300", rec.Header().Get("Retry-After"))

		var body struct {
			Error struct {
				Code       string `json:"code"`
				RetryAfter int    `json:"retry_after"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "ai_service_quota_exceeded", body.Error.Code)
		require.Equal(t, 300, body.Error.RetryAfter)
	})

	t.Run("auth failure", func(t *testing.T) {
		f := newFixture(t)
		f.gen.err = errors.New("401 Unauthorized: invalid api key")
		tripID, portID := f.seedPort(t, asDevice("d"))
		rec := f.do(http.MethodPost, "/api/v1/plans/generate", `{"trip_id":"`+tripID+`","port_id":"`+portID+`"}`, asDevice("d"))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "ai_service_auth_failed", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
	})

	t.Run("provider error is not retried", func(t *testing.T) {
		f := newFixture(t)
		f.server.Handler = withRetry(f.server.Handler, config.RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseBackoff: time.Millisecond,
			Exclude:     []string{"/api/v1/plans/generate"},
		}, newTestLogger())
		f.gen.err = errors.New("connection reset by peer")
		tripID, portID := f.seedPort(t, asDevice("d"))
		rec := f.do(http.MethodPost, "/api/v1/plans/generate", `{"trip_id":"`+tripID+`","port_id":"`+portID+`"}`, asDevice("d"))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeErrorBody(t, rec.Body.Bytes())
		require.Equal(t, "ai_service_unavailable", body["error"]["code"])
		require.Contains(t, body["error"]["message"], "connection reset by peer")
		require.Equal(t, int32(1), f.gen.calls.Load())
	})
}

func TestRouter_DegradedPlanIsStillSaved(t *testing.T) {
	f := newFixture(t)
	f.gen.text = "not json {broken"
	tripID, portID := f.seedPort(t, asDevice("d"))

	rec := f.do(http.MethodPost, "/api/v1/plans/generate", `{"trip_id":"`+tripID+`","port_id":"`+portID+`"}`, asDevice("d"))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	plan := raw["plan"].(map[string]any)
	require.Equal(t, true, plan["parse_error"])
	require.Equal(t, "not json {broken", plan["raw_response"])
}

func TestRouter_Weather(t *testing.T) {
	f := newFixture(t)
	maxC := 25.0
	f.weather.forecast = openmeteo.Forecast{
		Latitude:  41.38,
		Longitude: 2.17,
		Daily:     openmeteo.Daily{Time: []string{"2025-06-01"}, TemperatureMax: []*float64{&maxC}},
	}

	rec := f.do(http.MethodGet, "/api/v1/weather?latitude=41.38&longitude=2.17&date=2025-06-01", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"daily"`)
	require.Equal(t, "2025-06-01", f.weather.last.Date)

	rec = f.do(http.MethodGet, "/api/v1/weather?longitude=2.17", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/weather?latitude=91&longitude=2.17", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/weather?latitude=41&longitude=2&date=June", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	f.weather.err = errors.New("weather request error: status=500")
	rec = f.do(http.MethodGet, "/api/v1/weather?latitude=41.38&longitude=2.17", "", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "weather_unavailable", body["error"]["code"])
	require.Contains(t, body["error"]["message"], "unavailable")
}

func TestRouter_PortCatalog(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/ports/search?q=barcelona", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found struct {
		Ports []portcatalog.Port `json:"ports"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Equal(t, 1, found.Count)
	require.Equal(t, "Barcelona", found.Ports[0].Name)

	rec = f.do(http.MethodGet, "/api/v1/ports/search?limit=500", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Equal(t, 10, found.Count)

	rec = f.do(http.MethodGet, "/api/v1/ports/search?limit=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/ports/regions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Caribbean")
}

func TestRouter_RateLimitPerDevice(t *testing.T) {
	f := newFixture(t, withRateLimit(1))

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/trips", "", asDevice("a")).Code)

	rec := f.do(http.MethodGet, "/api/v1/trips", "", asDevice("a"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/trips", "", asDevice("b")).Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	rec := newFixture(t).do(http.MethodOptions, "/api/v1/trips", "", map[string]string{"Origin": "https://app.example"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Device-Id")
}

func TestWithRetry_RetriesTransientPOST(t *testing.T) {
	var calls int
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, `{"ship_name":"x"}`, string(body))
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	handler := withRetry(inner, config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trips", bytes.NewBufferString(`{"ship_name":"x"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 3, calls)
}

func TestWithRetry_SkipsExcludedAndNonPOST(t *testing.T) {
	var calls int
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	handler := withRetry(inner, config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		Exclude:     []string{"/api/v1/plans/generate"},
	}, newTestLogger())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/plans/generate", nil))
	require.Equal(t, 1, calls)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))
	require.Equal(t, 2, calls)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]any {
	t.Helper()
	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestFailureToHTTP(t *testing.T) {
	cases := []struct {
		failure dayplan.Failure
		status  int
		code    string
	}{
		{dayplan.Failure{Kind: dayplan.KindContextNotFound}, http.StatusNotFound, "context_not_found"},
		{dayplan.Failure{Kind: dayplan.KindContextUnavailable}, http.StatusServiceUnavailable, "trip_store_unavailable"},
		{dayplan.Failure{Kind: dayplan.KindPersistenceFailure}, http.StatusInternalServerError, "plan_not_saved"},
		{dayplan.Failure{Kind: dayplan.KindProviderError, Detail: "upstream 502"}, http.StatusServiceUnavailable, "ai_service_unavailable"},
	}
	for _, tc := range cases {
		f := tc.failure
		httpErr := failureToHTTP(&f)
		require.Equal(t, tc.status, httpErr.Status, tc.code)
		require.Equal(t, tc.code, httpErr.Code)
	}

	unavailable := failureToHTTP(&dayplan.Failure{Kind: dayplan.KindContextUnavailable})
	require.NotContains(t, unavailable.Message, "generated")
	generic := failureToHTTP(&dayplan.Failure{Kind: dayplan.KindProviderError, Detail: "upstream 502"})
	require.Equal(t, "AI service is temporarily unavailable: upstream 502", generic.Message)
}
