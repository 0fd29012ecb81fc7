package portcatalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed ports.yaml
var defaultPorts []byte

// Port is one entry of the searchable cruise-port catalog.
type Port struct {
	Name    string  `yaml:"name" json:"name"`
	Country string  `yaml:"country" json:"country"`
	Region  string  `yaml:"region" json:"region"`
	Lat     float64 `yaml:"lat" json:"lat"`
	Lng     float64 `yaml:"lng" json:"lng"`
}

// Config bounds search result sizes.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// Catalog is an immutable, in-memory port list.
type Catalog struct {
	cfg   Config
	ports []Port
}

// New loads the embedded catalog.
func New(cfg Config) (*Catalog, error) {
	return Parse(defaultPorts, cfg)
}

// Parse builds a catalog from YAML.
func Parse(data []byte, cfg Config) (*Catalog, error) {
	var ports []Port
	if err := yaml.Unmarshal(data, &ports); err != nil {
		return nil, fmt.Errorf("portcatalog: decode: %w", err)
	}
	for i, p := range ports {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Region) == "" {
			return nil, fmt.Errorf("portcatalog: entry %d missing name or region", i)
		}
		if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
			return nil, fmt.Errorf("portcatalog: entry %q has invalid coordinates", p.Name)
		}
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	return &Catalog{cfg: cfg, ports: ports}, nil
}

// Search matches query case-insensitively against name, country and region,
// keeps only ports in region when it is set, and caps the result at limit.
// A non-positive limit means the default; larger limits are clamped.
func (c *Catalog) Search(query, region string, limit int) []Port {
	if limit <= 0 {
		limit = c.cfg.DefaultLimit
	}
	if limit > c.cfg.MaxLimit {
		limit = c.cfg.MaxLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))
	region = strings.TrimSpace(region)

	out := make([]Port, 0, limit)
	for _, p := range c.ports {
		if len(out) == limit {
			break
		}
		if region != "" && !strings.EqualFold(p.Region, region) {
			continue
		}
		if q != "" && !matches(p, q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Regions returns the distinct regions, sorted.
func (c *Catalog) Regions() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range c.ports {
		if _, ok := seen[p.Region]; ok {
			continue
		}
		seen[p.Region] = struct{}{}
		out = append(out, p.Region)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of ports.
func (c *Catalog) Len() int { return len(c.ports) }

func matches(p Port, q string) bool {
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Country), q) ||
		strings.Contains(strings.ToLower(p.Region), q)
}
