package dayplan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePort() PortContext {
	return PortContext{
		TripID:     "trip-1",
		ShipName:   "Harmony of the Seas",
		CruiseLine: "Royal Caribbean",
		PortID:     "port-1",
		Name:       "Barcelona",
		Country:    "Spain",
		Latitude:   41.3851,
		Longitude:  2.1734,
		Arrival:    "2025-06-01T08:00",
		Departure:  "2025-06-01T18:00",
	}
}

func TestBuildPromptUsesRequestedCurrency(t *testing.T) {
	req := RequestContext{Preferences: Preferences{Currency: "EUR"}}

	prompt := BuildPrompt(req, samplePort(), WeatherUnavailable())

	require.GreaterOrEqual(t, strings.Count(prompt, "EUR"), 2)
	require.Contains(t, prompt, "- Currency: EUR")
	require.Contains(t, prompt, `for example "EUR 25"`)
	require.NotContains(t, prompt, "USD")
	require.NotContains(t, prompt, "GBP")
}

func TestBuildPromptDefaultsPreferences(t *testing.T) {
	prompt := BuildPrompt(RequestContext{}, samplePort(), WeatherUnavailable())

	require.Contains(t, prompt, "- Party type: couple")
	require.Contains(t, prompt, "- Activity level: moderate")
	require.Contains(t, prompt, "- Transport mode: mixed")
	require.Contains(t, prompt, "- Budget: medium")
	require.Contains(t, prompt, "- Currency: USD")
}

func TestBuildPromptWeather(t *testing.T) {
	port := samplePort()

	unavailable := BuildPrompt(RequestContext{}, port, WeatherUnavailable())
	require.Contains(t, unavailable, "Weather data unavailable.")

	weather := WeatherSummary{Available: true, Date: "2025-06-01", TempMaxC: 27.4, TempMinC: 19.1, PrecipitationMM: 0.2, WindSpeedKmh: 14}
	available := BuildPrompt(RequestContext{}, port, weather)
	require.NotContains(t, available, "Weather data unavailable.")
	require.Contains(t, available, "19.1°C to 27.4°C")
	require.Contains(t, available, "2025-06-01")
}

func TestBuildPromptTripDetailsAndRules(t *testing.T) {
	prompt := BuildPrompt(RequestContext{}, samplePort(), WeatherUnavailable())

	require.Contains(t, prompt, "Harmony of the Seas (Royal Caribbean)")
	require.Contains(t, prompt, "Barcelona, Spain")
	require.Contains(t, prompt, "41.3851, 2.1734")
	require.Contains(t, prompt, "at least 1 hour before departure (2025-06-01T18:00)")
	require.Contains(t, prompt, "Celsius only")
	require.Contains(t, prompt, "between 5 and 8 activities")
	for _, domain := range []string{"viator.com", "getyourguide.com", "klook.com", "tripadvisor.com", "booking.com"} {
		require.Contains(t, prompt, domain)
	}
	require.Contains(t, prompt, `"plan_title"`)
	require.Contains(t, prompt, `"safety_tips"`)
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	req := RequestContext{Preferences: Preferences{PartyType: "family", Currency: "jpy"}}
	first := BuildPrompt(req, samplePort(), WeatherUnavailable())
	second := BuildPrompt(req, samplePort(), WeatherUnavailable())
	require.Equal(t, first, second)
	require.Contains(t, first, "- Currency: jpy")
	require.NotContains(t, first, "JPY")
}
