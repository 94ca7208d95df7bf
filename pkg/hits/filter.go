package hits

import (
	"sort"
	"strings"
	"time"
)

// All is the sentinel for an unconstrained categorical selector.
const All = "all"

// FilterState is the full set of user filter controls. The zero value is
// unconstrained. It is mutated only by control events; every change triggers
// a wholesale recomputation downstream.
type FilterState struct {
	Query   string
	Country string
	City    string
	Device  string

	// Inclusive time range. HasStart/HasEnd distinguish "unset" from the
	// zero time.
	Start, End       time.Time
	HasStart, HasEnd bool
}

// Match evaluates the conjunction of the free-text, categorical and
// time-range predicates against one record.
func (f *FilterState) Match(h *Hit) bool {
	return f.matchQuery(h) && f.matchCategories(h) && f.matchTime(h)
}

func (f *FilterState) matchQuery(h *Hit) bool {
	if f.Query == "" {
		return true
	}
	haystack := strings.ToLower(strings.Join([]string{
		h.IP, h.Country, h.City, h.UAType, h.Path, h.Request,
	}, " "))
	return strings.Contains(haystack, strings.ToLower(f.Query))
}

func (f *FilterState) matchCategories(h *Hit) bool {
	return matchCategory(f.Country, h.Country) &&
		matchCategory(f.City, h.City) &&
		matchCategory(f.Device, h.UAType)
}

func matchCategory(selected, value string) bool {
	if selected == "" || strings.EqualFold(selected, All) {
		return true
	}
	return strings.EqualFold(selected, value)
}

// matchTime applies the inclusive [Start, End] bounds. A record with no
// parseable timestamp is never excluded by the time predicate.
func (f *FilterState) matchTime(h *Hit) bool {
	t, ok := h.Time()
	if !ok {
		return true
	}
	if f.HasStart && t.Before(f.Start) {
		return false
	}
	if f.HasEnd && t.After(f.End) {
		return false
	}
	return true
}

// Apply filters the full record set, preserving input order.
func (f *FilterState) Apply(hs []Hit) []Hit {
	out := make([]Hit, 0, len(hs))
	for i := range hs {
		if f.Match(&hs[i]) {
			out = append(out, hs[i])
		}
	}
	return out
}

// Options are the categorical selector values observed in the dataset, each
// list sorted and deduplicated. The "all" sentinel is the caller's to prepend.
type Options struct {
	Countries []string
	Cities    []string
	Devices   []string
}

// CollectOptions enumerates the selector values present in the record set.
func CollectOptions(hs []Hit) Options {
	countries := map[string]struct{}{}
	cities := map[string]struct{}{}
	devices := map[string]struct{}{}
	for i := range hs {
		h := &hs[i]
		if h.Country != "" {
			countries[h.Country] = struct{}{}
		}
		if h.City != "" {
			cities[h.City] = struct{}{}
		}
		if h.UAType != "" {
			devices[h.UAType] = struct{}{}
		}
	}
	return Options{
		Countries: sortedKeys(countries),
		Cities:    sortedKeys(cities),
		Devices:   sortedKeys(devices),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
