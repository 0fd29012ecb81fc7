package dayplan

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratedPlanToleratesLooseTypes(t *testing.T) {
	raw := `{
		"plan_title": "Day",
		"total_estimated_cost": 120,
		"activities": [
			{"order": "2", "name": "Museum", "latitude": "41.38", "duration_minutes": 89.6, "booking_url": null},
			"not an activity",
			{"order": 1, "name": "Market", "tips": ["go early", "bring cash"]}
		],
		"packing_suggestions": "Sunscreen",
		"safety_tips": null
	}`

	var plan GeneratedPlan
	require.NoError(t, json.Unmarshal([]byte(raw), &plan))

	require.Equal(t, "120", plan.TotalEstimatedCost)
	require.Len(t, plan.Activities, 2)
	require.Equal(t, 2.0, plan.Activities[0].Order)
	require.InDelta(t, 41.38, plan.Activities[0].Latitude, 1e-9)
	require.Equal(t, 90, plan.Activities[0].DurationMinutes)
	require.Nil(t, plan.Activities[0].BookingURL)
	require.Equal(t, "go early; bring cash", plan.Activities[1].Tips)
	require.Equal(t, []string{"Sunscreen"}, plan.PackingSuggestions)
	require.Empty(t, plan.SafetyTips)
}

func TestWithBookingURLsReturnsCopy(t *testing.T) {
	url := "https://www.viator.com/tours/1"
	original := GeneratedPlan{
		PlanTitle: "Day",
		Activities: []Activity{
			{Order: 1, Name: "Tour", BookingURL: &url},
			{Order: 2, Name: "Walk"},
		},
	}

	rewritten := original.WithBookingURLs(strings.ToUpper)

	require.Equal(t, "https://www.viator.com/tours/1", *original.Activities[0].BookingURL)
	require.Equal(t, "HTTPS://WWW.VIATOR.COM/TOURS/1", *rewritten.Activities[0].BookingURL)
	require.Nil(t, rewritten.Activities[1].BookingURL)
	require.Equal(t, 1.0, rewritten.Activities[0].Order)
	require.Equal(t, 2.0, rewritten.Activities[1].Order)
}

func TestPlanJSONRoundTripKeepsVariant(t *testing.T) {
	degraded := Plan{Degraded: &DegradedPlan{RawResponse: "oops", ParseError: true, ErrorMessage: "bad"}}
	encoded, err := json.Marshal(degraded)
	require.NoError(t, err)

	var decoded Plan
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.True(t, decoded.IsDegraded())
	require.Equal(t, "oops", decoded.Degraded.RawResponse)

	generated := Plan{Generated: &GeneratedPlan{PlanTitle: "Day", Activities: []Activity{}}}
	encoded, err = json.Marshal(generated)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.False(t, decoded.IsDegraded())
	require.Equal(t, "Day", decoded.Generated.PlanTitle)
}

func TestPreferencesWithDefaults(t *testing.T) {
	prefs := Preferences{PartyType: "solo", Currency: " eur "}.WithDefaults()
	require.Equal(t, Preferences{
		PartyType:     "solo",
		ActivityLevel: "moderate",
		TransportMode: "mixed",
		Budget:        "medium",
		Currency:      "eur",
	}, prefs)
	require.Equal(t, "USD", Preferences{}.WithDefaults().Currency)
}

func TestArrivalDate(t *testing.T) {
	require.Equal(t, "2025-06-01", PortContext{Arrival: "2025-06-01T08:00"}.ArrivalDate())
	require.Equal(t, "2025-06-01", PortContext{Arrival: "2025-06-01"}.ArrivalDate())
	require.Empty(t, PortContext{Arrival: "08:00"}.ArrivalDate())
	require.Empty(t, PortContext{Arrival: "June 1st, 2025"}.ArrivalDate())
}
