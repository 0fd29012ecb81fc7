package affiliate

// Partner keys used to resolve configured ids.
const (
	PartnerViator       = "viator"
	PartnerGetYourGuide = "getyourguide"
	PartnerKlook        = "klook"
	PartnerTripAdvisor  = "tripadvisor"
	PartnerBooking      = "booking"
)

// Param is one tracking query parameter. Its value is either a static string
// or the partner id resolved at rewrite time.
type Param struct {
	Name          string
	Static        string
	FromPartnerID bool
}

// Rule attaches tracking parameters to one booking domain and its subdomains.
type Rule struct {
	Domain  string
	Partner string
	Params  []Param
}

func partnerID(name string) Param { return Param{Name: name, FromPartnerID: true} }

func static(name, value string) Param { return Param{Name: name, Static: value} }

// DefaultRules is the fixed table of recognized booking platforms.
func DefaultRules() []Rule {
	return []Rule{
		{
			Domain:  "viator.com",
			Partner: PartnerViator,
			Params:  []Param{partnerID("aid"), static("mcid", "cruise-planner-app")},
		},
		{
			Domain:  "getyourguide.com",
			Partner: PartnerGetYourGuide,
			Params: []Param{
				partnerID("partner_id"),
				static("utm_source", "cruise-planner"),
				static("utm_medium", "affiliate"),
			},
		},
		{
			Domain:  "klook.com",
			Partner: PartnerKlook,
			Params:  []Param{partnerID("affiliate_id"), static("source", "cruise-planner")},
		},
		{
			Domain:  "tripadvisor.com",
			Partner: PartnerTripAdvisor,
			Params:  []Param{partnerID("pid"), static("source", "cruise-planner")},
		},
		{
			Domain:  "booking.com",
			Partner: PartnerBooking,
			Params:  []Param{partnerID("aid"), static("label", "cruise-planner-booking")},
		},
	}
}

// Partners lists the partner keys in table order.
func Partners() []string {
	rules := DefaultRules()
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Partner)
	}
	return out
}

// Domains lists the recognized booking domains in table order.
func Domains() []string {
	rules := DefaultRules()
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Domain)
	}
	return out
}
