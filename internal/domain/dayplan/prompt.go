package dayplan

import (
	"fmt"
	"strings"

	"github.com/yanqian/cruise-planner/internal/domain/affiliate"
)

const weatherUnavailableLine = "Weather data unavailable."

// BuildPrompt renders the user instruction for one run. It performs no I/O.
func BuildPrompt(req RequestContext, port PortContext, weather WeatherSummary) string {
	prefs := req.Preferences.WithDefaults()
	currency := prefs.Currency

	var b strings.Builder
	fmt.Fprintf(&b, "Create a one-day shore excursion plan for a cruise passenger visiting %s.\n\n", placeName(port))

	b.WriteString("TRIP DETAILS:\n")
	fmt.Fprintf(&b, "- Ship: %s\n", shipLine(port))
	fmt.Fprintf(&b, "- Port: %s\n", placeName(port))
	fmt.Fprintf(&b, "- Port coordinates: %.4f, %.4f\n", port.Latitude, port.Longitude)
	fmt.Fprintf(&b, "- Arrival (local time): %s\n", orDefault(port.Arrival, "not specified"))
	fmt.Fprintf(&b, "- Departure (local time): %s\n\n", orDefault(port.Departure, "not specified"))

	b.WriteString("WEATHER:\n")
	b.WriteString(weatherLine(weather))
	b.WriteString("\n\n")

	b.WriteString("TRAVELER PREFERENCES:\n")
	fmt.Fprintf(&b, "- Party type: %s\n", prefs.PartyType)
	fmt.Fprintf(&b, "- Activity level: %s\n", prefs.ActivityLevel)
	fmt.Fprintf(&b, "- Transport mode: %s\n", prefs.TransportMode)
	fmt.Fprintf(&b, "- Budget: %s\n", prefs.Budget)
	fmt.Fprintf(&b, "- Currency: %s\n\n", currency)

	b.WriteString("RULES:\n")
	rules := []string{
		"Build a circular route that starts and ends at the cruise port terminal.",
		fmt.Sprintf("The traveler must be back at the port at least 1 hour before departure (%s).", orDefault(port.Departure, "departure time")),
		fmt.Sprintf("Use realistic travel times between stops for the %s transport mode, including walking to and from the terminal.", prefs.TransportMode),
		"Choose activities that suit the weather: favour indoor options for rain, strong wind or extreme heat.",
		"Give every temperature in Celsius only.",
		fmt.Sprintf("Express every cost in %s and prefix it with the currency code, for example \"%s 25\".", currency, currency),
		"Include between 5 and 8 activities, numbered by visit order starting at 1.",
		fmt.Sprintf("When an activity can be booked in advance, prefer a booking_url on one of: %s. Otherwise set booking_url to null.", strings.Join(affiliate.Domains(), ", ")),
		fmt.Sprintf("Match the pace to a %s activity level for a %s party and keep the total within a %s budget.", prefs.ActivityLevel, prefs.PartyType, prefs.Budget),
		"Respond with a single JSON object that follows the structure below, filled with concrete values.",
	}
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	b.WriteString("\nJSON STRUCTURE:\n")
	b.WriteString(outputTemplate(port, currency))
	return b.String()
}

func weatherLine(w WeatherSummary) string {
	if !w.Available {
		return weatherUnavailableLine
	}
	date := w.Date
	if date == "" {
		date = "arrival day"
	}
	return fmt.Sprintf("Forecast for %s: %.1f°C to %.1f°C, precipitation %.1f mm, wind up to %.1f km/h.",
		date, w.TempMinC, w.TempMaxC, w.PrecipitationMM, w.WindSpeedKmh)
}

func placeName(port PortContext) string {
	name := orDefault(port.Name, "the port")
	if c := strings.TrimSpace(port.Country); c != "" {
		return name + ", " + c
	}
	return name
}

func shipLine(port PortContext) string {
	ship := orDefault(port.ShipName, "unknown ship")
	if line := strings.TrimSpace(port.CruiseLine); line != "" {
		return fmt.Sprintf("%s (%s)", ship, line)
	}
	return ship
}

func outputTemplate(port PortContext, currency string) string {
	return fmt.Sprintf(`{
  "plan_title": "A Day in %[1]s",
  "summary": "Two or three sentences describing the day",
  "return_by": "HH:MM",
  "total_estimated_cost": "%[2]s 120",
  "activities": [
    {
      "order": 1,
      "name": "Activity name",
      "description": "What the traveler will do",
      "location": "Place or address",
      "latitude": %.4[3]f,
      "longitude": %.4[4]f,
      "start_time": "09:00",
      "end_time": "10:30",
      "duration_minutes": 90,
      "cost_estimate": "%[2]s 25",
      "booking_url": "https://www.viator.com/... or null",
      "transport_to_next": "Walk 10 minutes",
      "travel_time_to_next": "10 minutes",
      "tips": "Practical advice"
    }
  ],
  "packing_suggestions": ["item"],
  "safety_tips": ["tip"]
}`, orDefault(port.Name, "Port"), currency, port.Latitude, port.Longitude)
}
