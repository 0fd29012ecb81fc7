package dayplan

import (
	"encoding/json"
	"errors"
	"strings"
)

const fence = "```"

var errNotObject = errors.New("response is not a JSON object")

// ParseResponse turns raw provider text into a Plan. It never fails: text that
// cannot be parsed becomes a degraded plan carrying the original response.
func ParseResponse(raw string) Plan {
	plan, err := parseGeneratedPlan(raw)
	if err != nil {
		return Plan{Degraded: &DegradedPlan{
			RawResponse:  raw,
			ParseError:   true,
			ErrorMessage: "The AI response could not be parsed as a day plan: " + err.Error(),
		}}
	}
	return Plan{Generated: &plan}
}

func parseGeneratedPlan(raw string) (GeneratedPlan, error) {
	clean := stripFormatting(raw)
	if !strings.HasPrefix(clean, "{") {
		if clean == "" {
			return GeneratedPlan{}, errors.New("response is empty")
		}
		return GeneratedPlan{}, errNotObject
	}
	var plan GeneratedPlan
	if err := json.Unmarshal([]byte(clean), &plan); err != nil {
		return GeneratedPlan{}, err
	}
	return plan, nil
}

// stripFormatting removes a surrounding markdown fence (with optional language
// tag) and a leading bare "json" line.
func stripFormatting(raw string) string {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, fence) {
		if idx := strings.IndexByte(clean, '\n'); idx >= 0 {
			clean = clean[idx+1:]
		} else {
			clean = clean[len(fence):]
		}
		clean = strings.TrimSuffix(clean, fence)
		clean = strings.TrimSpace(clean)
	}
	if strings.HasPrefix(clean, "json\n") {
		clean = strings.TrimSpace(clean[len("json\n"):])
	}
	return clean
}
