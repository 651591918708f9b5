// Package inventory resolves the face count that utilization is measured
// against for a market / media-type selection.
package inventory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fallback entries used when a market or media type is not in the table.
const (
	OtherMarket = "OTHER"
	OtherMedia  = "Other"
)

// DefaultCapacityFloor is returned for ALL/ALL when the table sums to zero.
const DefaultCapacityFloor = 100

// Baseline is the operator-maintained capacity table plus the named groups
// selectors can refer to.
type Baseline struct {
	// Markets maps market -> media type -> face count.
	Markets map[string]map[string]int `yaml:"markets" json:"markets"`
	// Regions maps a region name to its member markets.
	Regions map[string][]string `yaml:"regions" json:"regions"`
	// Categories maps a category name to keywords matched against media types.
	Categories map[string][]string `yaml:"categories" json:"categories"`
}

// Row is one (market, media type) entry as stored in Postgres.
type Row struct {
	Market    string
	MediaType string
	Units     int
}

// FromRows builds a baseline from flat rows. Duplicate pairs are summed.
func FromRows(rows []Row) Baseline {
	b := Baseline{Markets: make(map[string]map[string]int)}
	for _, r := range rows {
		m, ok := b.Markets[r.Market]
		if !ok {
			m = make(map[string]int)
			b.Markets[r.Market] = m
		}
		m[r.MediaType] += r.Units
	}
	return b
}

// LoadFile reads a baseline from a YAML file. Sections that are absent are
// left empty so callers can merge with defaults.
func LoadFile(path string) (Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Baseline{}, fmt.Errorf("reading baseline: %w", err)
	}
	var b Baseline
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Baseline{}, fmt.Errorf("parsing baseline: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Baseline{}, fmt.Errorf("validating baseline %s: %w", path, err)
	}
	return b, nil
}

// Validate rejects negative unit counts and empty group definitions.
func (b Baseline) Validate() error {
	for market, media := range b.Markets {
		if strings.TrimSpace(market) == "" {
			return fmt.Errorf("market with empty name")
		}
		for mt, units := range media {
			if units < 0 {
				return fmt.Errorf("market %q media %q: negative units %d", market, mt, units)
			}
		}
	}
	for name, members := range b.Regions {
		if len(members) == 0 {
			return fmt.Errorf("region %q has no members", name)
		}
	}
	for name, keywords := range b.Categories {
		if len(keywords) == 0 {
			return fmt.Errorf("category %q has no keywords", name)
		}
	}
	return nil
}

// Merge returns b with any empty section filled from def.
func (b Baseline) Merge(def Baseline) Baseline {
	if len(b.Markets) == 0 {
		b.Markets = def.Markets
	}
	if len(b.Regions) == 0 {
		b.Regions = def.Regions
	}
	if len(b.Categories) == 0 {
		b.Categories = def.Categories
	}
	return b
}

// Total sums every (market, media type) pair in the table.
func (b Baseline) Total() int {
	total := 0
	for _, media := range b.Markets {
		for _, units := range media {
			total += units
		}
	}
	return total
}

// DefaultBaseline is the built-in table used when no file or database table
// is configured.
func DefaultBaseline() Baseline {
	return Baseline{
		Markets: map[string]map[string]int{
			"Los Angeles": {
				"Digital Bulletin": 40,
				"Bulletin":         120,
				"Poster":           260,
				"Transit Shelter":  400,
				"Bus":              180,
				OtherMedia:         30,
			},
			"San Diego": {
				"Digital Bulletin": 12,
				"Bulletin":         45,
				"Poster":           90,
				"Transit Shelter":  150,
				OtherMedia:         10,
			},
			"San Francisco": {
				"Digital Bulletin": 18,
				"Bulletin":         50,
				"Transit Shelter":  220,
				"Bus":              140,
				"Rail":             60,
				OtherMedia:         15,
			},
			"Phoenix": {
				"Bulletin":        70,
				"Poster":          110,
				"Transit Shelter": 120,
				OtherMedia:        10,
			},
			"Las Vegas": {
				"Digital Bulletin": 25,
				"Bulletin":         60,
				"Transit Shelter":  90,
				OtherMedia:         10,
			},
			OtherMarket: {
				OtherMedia: 50,
			},
		},
		Regions: map[string][]string{
			"Southern California": {"Los Angeles", "San Diego"},
			"Bay Area":            {"San Francisco"},
			"Southwest":           {"Phoenix", "Las Vegas"},
		},
		Categories: map[string][]string{
			"Digital":          {"digital", "led"},
			"Static":           {"bulletin", "poster"},
			"Transit":          {"transit", "bus", "rail"},
			"Street Furniture": {"shelter", "bench", "kiosk"},
		},
	}
}
