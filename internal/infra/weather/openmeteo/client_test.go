package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleBody = `{
	"latitude": 41.38,
	"longitude": 2.19,
	"timezone": "Europe/Madrid",
	"daily": {
		"time": ["2025-06-01"],
		"temperature_2m_max": [25.0],
		"temperature_2m_min": [18.0],
		"precipitation_sum": [0.4],
		"windspeed_10m_max": [12.5],
		"weathercode": [1]
	}
}`

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(url, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestForecastBuildsQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	forecast, err := newTestClient(srv.URL, time.Second).Forecast(context.Background(), Query{Latitude: 41.38, Longitude: 2.19, Date: "2025-06-01"})
	require.NoError(t, err)

	q := got.URL.Query()
	require.Equal(t, "41.38", q.Get("latitude"))
	require.Equal(t, "2.19", q.Get("longitude"))
	require.Equal(t, dailyFields, q.Get("daily"))
	require.Equal(t, "auto", q.Get("timezone"))
	require.Equal(t, "2025-06-01", q.Get("start_date"))
	require.Equal(t, "2025-06-01", q.Get("end_date"))
	require.Equal(t, "Europe/Madrid", forecast.Timezone)
	require.Len(t, forecast.Daily.Time, 1)
}

func TestForecastWithoutDateOmitsRange(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"daily":{}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).Forecast(context.Background(), Query{Latitude: 0, Longitude: 179.9})
	require.NoError(t, err)
	require.False(t, got.URL.Query().Has("start_date"))
}

func TestSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	summary := newTestClient(srv.URL, time.Second).Summary(context.Background(), 41.38, 2.19, "2025-06-01")

	require.True(t, summary.Available)
	require.Equal(t, "2025-06-01", summary.Date)
	require.Equal(t, 25.0, summary.TempMaxC)
	require.Equal(t, 18.0, summary.TempMinC)
	require.Equal(t, 0.4, summary.PrecipitationMM)
	require.Equal(t, 12.5, summary.WindSpeedKmh)
}

func TestSummaryFailuresAreUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"missing temperatures": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"daily":{"time":["2025-06-01"],"temperature_2m_max":[null],"temperature_2m_min":[18]}}`))
		},
		"other date": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"daily":{"time":["2025-06-02"],"temperature_2m_max":[20],"temperature_2m_min":[18]}}`))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			summary := newTestClient(srv.URL, 50*time.Millisecond).Summary(context.Background(), 41.38, 2.19, "2025-06-01")
			require.False(t, summary.Available)
		})
	}
}

func TestNewClientCapsTimeout(t *testing.T) {
	require.Equal(t, maxTimeout, newTestClient("", time.Minute).httpClient.Timeout)
	require.Equal(t, maxTimeout, newTestClient("", 0).httpClient.Timeout)
	require.Equal(t, 3*time.Second, newTestClient("", 3*time.Second).httpClient.Timeout)
	require.Equal(t, defaultBaseURL, newTestClient("", 0).baseURL)
}
