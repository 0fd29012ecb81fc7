// Package affiliateconf provides live partner-id sources for the affiliate rewriter.
package affiliateconf

import (
	"os"
	"strings"

	"github.com/yanqian/cruise-planner/internal/domain/affiliate"
)

// EnvVars maps partner keys to the environment variables holding their ids.
var EnvVars = map[string]string{
	affiliate.PartnerViator:       "VIATOR_AFFILIATE_ID",
	affiliate.PartnerGetYourGuide: "GETYOURGUIDE_AFFILIATE_ID",
	affiliate.PartnerKlook:        "KLOOK_AFFILIATE_ID",
	affiliate.PartnerTripAdvisor:  "TRIPADVISOR_AFFILIATE_ID",
	affiliate.PartnerBooking:      "BOOKING_AFFILIATE_ID",
}

// EnvSource reads partner ids from the environment on every lookup.
type EnvSource struct{}

// PartnerID implements affiliate.IDSource.
func (EnvSource) PartnerID(partner string) string {
	name, ok := EnvVars[partner]
	if !ok {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

// StaticSource is a fixed partner id map.
type StaticSource map[string]string

// PartnerID implements affiliate.IDSource.
func (s StaticSource) PartnerID(partner string) string {
	return strings.TrimSpace(s[partner])
}

// Chain returns the first non-empty id from its sources in order.
type Chain []affiliate.IDSource

// PartnerID implements affiliate.IDSource.
func (c Chain) PartnerID(partner string) string {
	for _, src := range c {
		if src == nil {
			continue
		}
		if id := src.PartnerID(partner); id != "" {
			return id
		}
	}
	return ""
}

var (
	_ affiliate.IDSource = EnvSource{}
	_ affiliate.IDSource = StaticSource{}
	_ affiliate.IDSource = Chain{}
)
