package hits

import (
	"sort"
	"time"
)

// IPSummary is the per-address rollup of the currently filtered record set.
// Summaries are always rebuilt wholesale, never patched in place, so the
// invariant sum(Count) == len(filtered) holds by construction.
type IPSummary struct {
	IP        string   `json:"ip"`
	Count     int      `json:"count"`
	FirstSeen string   `json:"first_seen"`
	LastSeen  string   `json:"last_seen"`
	Country   string   `json:"country,omitempty"`
	City      string   `json:"city,omitempty"`
	UAType    string   `json:"ua_type,omitempty"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`

	firstSeen, lastSeen time.Time
	hasTime             bool
}

// FirstSeenTime and LastSeenTime return the parsed bounds; ok is false when
// no record of the group had a parseable timestamp.
func (s *IPSummary) FirstSeenTime() (time.Time, bool) { return s.firstSeen, s.hasTime }
func (s *IPSummary) LastSeenTime() (time.Time, bool)  { return s.lastSeen, s.hasTime }

// merge folds one record into the summary with explicit precedence: counts
// accumulate, timestamps extend the min/max bounds, and for every attribute
// the first non-empty value wins.
func (s *IPSummary) merge(h *Hit) {
	s.Count++
	if t, ok := h.Time(); ok {
		if !s.hasTime || t.Before(s.firstSeen) {
			s.firstSeen = t
			s.FirstSeen = h.TS
		}
		if !s.hasTime || t.After(s.lastSeen) {
			s.lastSeen = t
			s.LastSeen = h.TS
		}
		s.hasTime = true
	}
	if s.Country == "" {
		s.Country = h.Country
	}
	if s.City == "" {
		s.City = h.City
	}
	if s.UAType == "" {
		s.UAType = h.UAType
	}
	if s.Lat == nil && s.Lon == nil && h.HasCoords() {
		s.Lat, s.Lon = h.Lat, h.Lon
	}
}

// Summarize groups the filtered record set by address and reduces each group.
// The result is sorted by descending count; ties keep the order the addresses
// first appeared in the input.
func Summarize(filtered []Hit) []IPSummary {
	index := make(map[string]int, len(filtered))
	summaries := make([]IPSummary, 0, len(filtered))
	for i := range filtered {
		h := &filtered[i]
		idx, ok := index[h.IP]
		if !ok {
			idx = len(summaries)
			index[h.IP] = idx
			summaries = append(summaries, IPSummary{IP: h.IP, FirstSeen: h.TS, LastSeen: h.TS})
		}
		summaries[idx].merge(h)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})
	return summaries
}

// TotalCount sums the summary counts. Always equal to the filtered record
// count that produced the summaries.
func TotalCount(summaries []IPSummary) int {
	total := 0
	for i := range summaries {
		total += summaries[i].Count
	}
	return total
}
