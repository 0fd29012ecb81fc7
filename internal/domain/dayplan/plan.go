package dayplan

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Activity is one stop of the itinerary. Order is 1-based and defines the
// sequence; it keeps whatever number the provider sent.
type Activity struct {
	Order            float64 `json:"order"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Location         string  `json:"location"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	StartTime        string  `json:"start_time"`
	EndTime          string  `json:"end_time"`
	DurationMinutes  int     `json:"duration_minutes"`
	CostEstimate     string  `json:"cost_estimate"`
	BookingURL       *string `json:"booking_url"`
	TransportToNext  string  `json:"transport_to_next"`
	TravelTimeToNext string  `json:"travel_time_to_next"`
	Tips             string  `json:"tips"`
}

// GeneratedPlan is the itinerary shape the provider is asked to return.
type GeneratedPlan struct {
	PlanTitle          string     `json:"plan_title"`
	Summary            string     `json:"summary"`
	ReturnBy           string     `json:"return_by"`
	TotalEstimatedCost string     `json:"total_estimated_cost"`
	Activities         []Activity `json:"activities"`
	PackingSuggestions []string   `json:"packing_suggestions"`
	SafetyTips         []string   `json:"safety_tips"`
}

// WithBookingURLs returns a copy whose non-nil booking URLs went through fn.
// Activity order and every other field are left untouched.
func (g GeneratedPlan) WithBookingURLs(fn func(string) string) GeneratedPlan {
	out := g
	out.Activities = make([]Activity, len(g.Activities))
	for i, act := range g.Activities {
		if act.BookingURL != nil {
			rewritten := fn(*act.BookingURL)
			act.BookingURL = &rewritten
		}
		out.Activities[i] = act
	}
	out.PackingSuggestions = append([]string(nil), g.PackingSuggestions...)
	out.SafetyTips = append([]string(nil), g.SafetyTips...)
	return out
}

// DegradedPlan keeps an unparseable provider response visible to the caller.
type DegradedPlan struct {
	RawResponse  string `json:"raw_response"`
	ParseError   bool   `json:"parse_error"`
	ErrorMessage string `json:"error_message"`
}

// Plan is either a well-formed GeneratedPlan or a DegradedPlan.
type Plan struct {
	Generated *GeneratedPlan
	Degraded  *DegradedPlan
}

// IsDegraded reports whether the provider output could not be parsed.
func (p Plan) IsDegraded() bool {
	return p.Degraded != nil
}

// MarshalJSON emits whichever variant is set.
func (p Plan) MarshalJSON() ([]byte, error) {
	switch {
	case p.Degraded != nil:
		return json.Marshal(p.Degraded)
	case p.Generated != nil:
		return json.Marshal(p.Generated)
	default:
		return []byte("{}"), nil
	}
}

// UnmarshalJSON selects the variant by the parse_error flag.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var probe struct {
		ParseError bool `json:"parse_error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.ParseError {
		var degraded DegradedPlan
		if err := json.Unmarshal(data, &degraded); err != nil {
			return err
		}
		*p = Plan{Degraded: &degraded}
		return nil
	}
	var generated GeneratedPlan
	if err := json.Unmarshal(data, &generated); err != nil {
		return err
	}
	*p = Plan{Generated: &generated}
	return nil
}

// UnmarshalJSON tolerates loosely typed provider output: numbers as strings,
// a single string where a list is expected, and missing fields.
func (g *GeneratedPlan) UnmarshalJSON(data []byte) error {
	var raw struct {
		PlanTitle          json.RawMessage `json:"plan_title"`
		Summary            json.RawMessage `json:"summary"`
		ReturnBy           json.RawMessage `json:"return_by"`
		TotalEstimatedCost json.RawMessage `json:"total_estimated_cost"`
		Activities         json.RawMessage `json:"activities"`
		PackingSuggestions json.RawMessage `json:"packing_suggestions"`
		SafetyTips         json.RawMessage `json:"safety_tips"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := GeneratedPlan{
		PlanTitle:          coerceString(raw.PlanTitle),
		Summary:            coerceString(raw.Summary),
		ReturnBy:           coerceString(raw.ReturnBy),
		TotalEstimatedCost: coerceString(raw.TotalEstimatedCost),
		Activities:         decodeActivities(raw.Activities),
		PackingSuggestions: coerceStringArray(raw.PackingSuggestions),
		SafetyTips:         coerceStringArray(raw.SafetyTips),
	}
	*g = out
	return nil
}

// decodeActivities keeps provider order and skips entries that are not objects.
func decodeActivities(raw json.RawMessage) []Activity {
	var items []json.RawMessage
	if isNull(raw) || raw[0] != '[' || json.Unmarshal(raw, &items) != nil {
		return []Activity{}
	}
	out := make([]Activity, 0, len(items))
	for _, item := range items {
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var act Activity
		if err := json.Unmarshal(item, &act); err != nil {
			continue
		}
		out = append(out, act)
	}
	return out
}

// UnmarshalJSON applies the same tolerance as GeneratedPlan.
func (a *Activity) UnmarshalJSON(data []byte) error {
	var raw struct {
		Order            json.RawMessage `json:"order"`
		Name             json.RawMessage `json:"name"`
		Description      json.RawMessage `json:"description"`
		Location         json.RawMessage `json:"location"`
		Latitude         json.RawMessage `json:"latitude"`
		Longitude        json.RawMessage `json:"longitude"`
		StartTime        json.RawMessage `json:"start_time"`
		EndTime          json.RawMessage `json:"end_time"`
		DurationMinutes  json.RawMessage `json:"duration_minutes"`
		CostEstimate     json.RawMessage `json:"cost_estimate"`
		BookingURL       json.RawMessage `json:"booking_url"`
		TransportToNext  json.RawMessage `json:"transport_to_next"`
		TravelTimeToNext json.RawMessage `json:"travel_time_to_next"`
		Tips             json.RawMessage `json:"tips"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Activity{
		Order:            coerceFloat(raw.Order),
		Name:             coerceString(raw.Name),
		Description:      coerceString(raw.Description),
		Location:         coerceString(raw.Location),
		Latitude:         coerceFloat(raw.Latitude),
		Longitude:        coerceFloat(raw.Longitude),
		StartTime:        coerceString(raw.StartTime),
		EndTime:          coerceString(raw.EndTime),
		DurationMinutes:  coerceInt(raw.DurationMinutes),
		CostEstimate:     coerceString(raw.CostEstimate),
		BookingURL:       coerceOptionalString(raw.BookingURL),
		TransportToNext:  coerceString(raw.TransportToNext),
		TravelTimeToNext: coerceString(raw.TravelTimeToNext),
		Tips:             coerceString(raw.Tips),
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func coerceString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	case '[':
		return strings.Join(coerceStringArray(raw), "; ")
	case '{':
		return ""
	default:
		return string(raw)
	}
}

func coerceOptionalString(raw json.RawMessage) *string {
	s := strings.TrimSpace(coerceString(raw))
	if s == "" {
		return nil
	}
	return &s
}

func coerceStringArray(raw json.RawMessage) []string {
	if isNull(raw) {
		return []string{}
	}
	if raw[0] != '[' {
		if s := strings.TrimSpace(coerceString(raw)); s != "" {
			return []string{s}
		}
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(coerceString(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func coerceFloat(raw json.RawMessage) float64 {
	if isNull(raw) {
		return 0
	}
	text := string(raw)
	if raw[0] == '"' {
		text = coerceString(raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func coerceInt(raw json.RawMessage) int {
	return int(math.Round(coerceFloat(raw)))
}
