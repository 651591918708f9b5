// Package reach estimates weekly audience impressions for a media type.
// Figures are planning estimates from a business table, not measured data.
package reach

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tier buckets media types by audience weight.
type Tier string

const (
	TierPremium  Tier = "premium"
	TierHigh     Tier = "high"
	TierStandard Tier = "standard"
	TierLocal    Tier = "local"
)

// Rule classifies labels containing any of its keywords.
type Rule struct {
	Category          string   `yaml:"category" json:"category"`
	Keywords          []string `yaml:"keywords" json:"keywords"`
	WeeklyImpressions int64    `yaml:"weekly_impressions" json:"weekly_impressions"`
	Multiplier        float64  `yaml:"multiplier" json:"multiplier"`
	Tier              Tier     `yaml:"tier" json:"tier"`
}

// Estimate is the result of classifying one label.
type Estimate struct {
	Category          string  `json:"category"`
	WeeklyImpressions int64   `json:"weekly_impressions"`
	Multiplier        float64 `json:"multiplier"`
	Tier              Tier    `json:"tier"`
}

// Model is an ordered rule table with a default. The first matching rule
// wins, so order encodes precedence.
type Model struct {
	rules    []Rule
	fallback Rule
}

// DefaultRules checks digital and premium formats first, then transit, then
// static posters and bulletins, then street furniture.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "digital", Keywords: []string{"digital", "led", "lcd", "premium", "spectacular"}, WeeklyImpressions: 45000, Multiplier: 1.5, Tier: TierPremium},
		{Category: "transit", Keywords: []string{"transit", "bus", "rail", "subway", "metro", "train", "wrap"}, WeeklyImpressions: 25000, Multiplier: 1.2, Tier: TierHigh},
		{Category: "static", Keywords: []string{"bulletin", "poster", "billboard", "static", "sheet"}, WeeklyImpressions: 15000, Multiplier: 1.0, Tier: TierStandard},
		{Category: "street_furniture", Keywords: []string{"shelter", "bench", "kiosk", "furniture"}, WeeklyImpressions: 8000, Multiplier: 0.8, Tier: TierLocal},
	}
}

// DefaultFallback applies when no rule matches.
func DefaultFallback() Rule {
	return Rule{Category: "other", WeeklyImpressions: 10000, Multiplier: 1.0, Tier: TierStandard}
}

// NewModel builds a model from rules in precedence order. Keywords are
// lowercased once here.
func NewModel(rules []Rule, fallback Rule) *Model {
	m := &Model{fallback: fallback}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		r.Keywords = kws
		m.rules = append(m.rules, r)
	}
	return m
}

// DefaultModel returns the built-in table.
func DefaultModel() *Model {
	return NewModel(DefaultRules(), DefaultFallback())
}

// EstimateWeekly classifies label case-insensitively. The result depends on
// the label alone.
func (m *Model) EstimateWeekly(label string) Estimate {
	l := strings.ToLower(label)
	for _, r := range m.rules {
		for _, k := range r.Keywords {
			if strings.Contains(l, k) {
				return r.estimate()
			}
		}
	}
	return m.fallback.estimate()
}

// Rules returns a copy of the table in precedence order.
func (m *Model) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}

func (r Rule) estimate() Estimate {
	return Estimate{
		Category:          r.Category,
		WeeklyImpressions: int64(float64(r.WeeklyImpressions) * r.Multiplier),
		Multiplier:        r.Multiplier,
		Tier:              r.Tier,
	}
}

type fileSection struct {
	Reach        []Rule `yaml:"reach"`
	ReachDefault *Rule  `yaml:"reach_default"`
}

// LoadFile reads the reach and reach_default sections of the baseline YAML
// file. When the file has no reach section the built-in model is returned.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reach table: %w", err)
	}
	var sec fileSection
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return nil, fmt.Errorf("parsing reach table: %w", err)
	}
	if len(sec.Reach) == 0 {
		return DefaultModel(), nil
	}
	for i, r := range sec.Reach {
		if r.Category == "" {
			return nil, fmt.Errorf("reach rule %d has no category", i)
		}
		if r.WeeklyImpressions < 0 || r.Multiplier < 0 {
			return nil, fmt.Errorf("reach rule %q has negative figures", r.Category)
		}
		if r.Multiplier == 0 {
			sec.Reach[i].Multiplier = 1
		}
	}
	fallback := DefaultFallback()
	if sec.ReachDefault != nil {
		fallback = *sec.ReachDefault
		if fallback.Multiplier == 0 {
			fallback.Multiplier = 1
		}
	}
	return NewModel(sec.Reach, fallback), nil
}
