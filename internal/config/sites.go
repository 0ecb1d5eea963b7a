package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is one RSS feed subscription.
type Source struct {
	Name    string `yaml:"name"`
	FeedURL string `yaml:"feed_url"`
}

// SiteOverride pins a per-site extraction strategy order, tried before the
// global default. Matching is by article domain.
type SiteOverride struct {
	Domain string   `yaml:"domain"`
	Order  []string `yaml:"order"`
}

// Sites is the parsed feeds/overrides file.
type Sites struct {
	DefaultOrder []string       `yaml:"default_order"`
	Sources      []Source       `yaml:"sources"`
	Sites        []SiteOverride `yaml:"sites"`
}

// KnownStrategies are the extraction strategy names a sites file may use.
var KnownStrategies = map[string]bool{
	"direct":      true,
	"readability": true,
	"headless":    true,
	"reader":      true,
}

// LoadSites parses and validates a sites.yaml file.
func LoadSites(path string) (Sites, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sites{}, fmt.Errorf("read sites file: %w", err)
	}
	return ParseSites(data)
}

// ParseSites parses sites.yaml content.
func ParseSites(data []byte) (Sites, error) {
	var s Sites
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Sites{}, fmt.Errorf("parse sites file: %w", err)
	}

	if len(s.DefaultOrder) == 0 {
		s.DefaultOrder = []string{"direct", "readability", "headless", "reader"}
	}
	if err := validateOrder(s.DefaultOrder); err != nil {
		return Sites{}, fmt.Errorf("default_order: %w", err)
	}
	for _, site := range s.Sites {
		if site.Domain == "" {
			return Sites{}, fmt.Errorf("site override with empty domain")
		}
		if err := validateOrder(site.Order); err != nil {
			return Sites{}, fmt.Errorf("site %s: %w", site.Domain, err)
		}
	}
	for _, src := range s.Sources {
		if src.Name == "" || src.FeedURL == "" {
			return Sites{}, fmt.Errorf("source entries need both name and feed_url")
		}
	}
	return s, nil
}

// OrderFor returns the strategy order for a domain: the site override when
// present, the default order otherwise.
func (s Sites) OrderFor(domain string) []string {
	for _, site := range s.Sites {
		if site.Domain == domain {
			return site.Order
		}
	}
	return s.DefaultOrder
}

func validateOrder(order []string) error {
	if len(order) == 0 {
		return fmt.Errorf("strategy order must not be empty")
	}
	for _, name := range order {
		if !KnownStrategies[name] {
			return fmt.Errorf("unknown strategy %q", name)
		}
	}
	return nil
}
