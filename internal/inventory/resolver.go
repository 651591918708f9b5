package inventory

import (
	"sort"
	"strings"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// Filter selects the capacity to resolve.
type Filter struct {
	Market    string // market name, region name, or ALL
	MediaType string // media type, category name, or ALL
	// Override wins over the table whenever it is non-nil.
	Override *int
}

// Resolution describes how a capacity was obtained.
type Resolution struct {
	Capacity       int  `json:"capacity"`
	Overridden     bool `json:"overridden"`
	MarketFallback bool `json:"market_fallback"` // an unknown market used OTHER
	MediaFallback  bool `json:"media_fallback"`  // an unknown media type used Other
	Floored        bool `json:"floored"`         // ALL/ALL summed to zero
}

// Resolver answers capacity questions against an immutable baseline. Safe for
// concurrent use; nothing is mutated after NewResolver returns.
type Resolver struct {
	markets    map[string]marketEntry // lowercased market -> entry
	order      []string               // lowercased market keys, sorted for stable iteration
	regions    map[string][]string    // lowercased region -> member markets
	categories map[string][]string    // lowercased category -> lowercased keywords
	total      int
	floor      int
}

type marketEntry struct {
	name  string
	media map[string]int // lowercased media type -> units
}

// NewResolver indexes b for case-insensitive lookups. A non-positive floor is
// replaced by DefaultCapacityFloor.
func NewResolver(b Baseline, floor int) *Resolver {
	if floor <= 0 {
		floor = DefaultCapacityFloor
	}
	r := &Resolver{
		markets:    make(map[string]marketEntry, len(b.Markets)),
		regions:    make(map[string][]string, len(b.Regions)),
		categories: make(map[string][]string, len(b.Categories)),
		total:      b.Total(),
		floor:      floor,
	}
	for name, media := range b.Markets {
		e := marketEntry{name: name, media: make(map[string]int, len(media))}
		for mt, units := range media {
			e.media[fold(mt)] += units
		}
		if _, dup := r.markets[fold(name)]; !dup {
			r.order = append(r.order, fold(name))
		}
		r.markets[fold(name)] = e
	}
	sort.Strings(r.order)
	for name, members := range b.Regions {
		r.regions[fold(name)] = append([]string(nil), members...)
	}
	for name, keywords := range b.Categories {
		kws := make([]string, 0, len(keywords))
		for _, k := range keywords {
			kws = append(kws, fold(k))
		}
		r.categories[fold(name)] = kws
	}
	return r
}

// Resolve returns the capacity for f.
func (r *Resolver) Resolve(f Filter) int {
	return r.Explain(f).Capacity
}

// Explain resolves f and reports which fallbacks were taken.
func (r *Resolver) Explain(f Filter) Resolution {
	if f.Override != nil {
		return Resolution{Capacity: *f.Override, Overridden: true}
	}

	var res Resolution
	allMarkets := isAll(f.Market)
	allMedia := isAll(f.MediaType)

	if allMarkets && allMedia {
		res.Capacity = r.total
		if res.Capacity <= 0 {
			res.Capacity = r.floor
			res.Floored = true
		}
		return res
	}

	for _, key := range r.marketKeys(f.Market, &res) {
		e := r.markets[key]
		res.Capacity += r.mediaUnits(e, f.MediaType, &res)
	}
	return res
}

// marketKeys expands a market selector into distinct table keys, mapping
// unknown markets to the OTHER entry at most once.
func (r *Resolver) marketKeys(selector string, res *Resolution) []string {
	if isAll(selector) {
		return r.order
	}
	names := []string{selector}
	if members, ok := r.regions[fold(selector)]; ok {
		names = members
	}

	seen := make(map[string]bool, len(names))
	keys := make([]string, 0, len(names))
	for _, n := range names {
		key := fold(n)
		if _, ok := r.markets[key]; !ok {
			res.MarketFallback = true
			key = fold(OtherMarket)
			if _, ok := r.markets[key]; !ok {
				continue
			}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func (r *Resolver) mediaUnits(e marketEntry, selector string, res *Resolution) int {
	if isAll(selector) {
		total := 0
		for _, units := range e.media {
			total += units
		}
		return total
	}
	if keywords, ok := r.categories[fold(selector)]; ok {
		total := 0
		for mt, units := range e.media {
			if containsAny(mt, keywords) {
				total += units
			}
		}
		return total
	}
	if units, ok := e.media[fold(selector)]; ok {
		return units
	}
	res.MediaFallback = true
	return e.media[fold(OtherMedia)]
}

// MatchMarket reports whether a booking in market belongs to selector.
func (r *Resolver) MatchMarket(selector, market string) bool {
	if isAll(selector) {
		return true
	}
	if members, ok := r.regions[fold(selector)]; ok {
		for _, m := range members {
			if strings.EqualFold(strings.TrimSpace(m), strings.TrimSpace(market)) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(strings.TrimSpace(selector), strings.TrimSpace(market))
}

// MatchMedia reports whether a booking for product belongs to selector.
// Category selectors match by keyword; anything else matches by name.
func (r *Resolver) MatchMedia(selector, product string) bool {
	if isAll(selector) {
		return true
	}
	if keywords, ok := r.categories[fold(selector)]; ok {
		return containsAny(fold(product), keywords)
	}
	return strings.EqualFold(strings.TrimSpace(selector), strings.TrimSpace(product))
}

// Markets returns the market names in the table, sorted case-insensitively.
func (r *Resolver) Markets() []string {
	out := make([]string, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.markets[key].name)
	}
	return out
}

// IsRegion reports whether name is a configured region group.
func (r *Resolver) IsRegion(name string) bool {
	_, ok := r.regions[fold(name)]
	return ok
}

// IsCategory reports whether name is a configured media category group.
func (r *Resolver) IsCategory(name string) bool {
	_, ok := r.categories[fold(name)]
	return ok
}

func isAll(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, models.All)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}
