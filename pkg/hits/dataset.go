// Package hits models the access-log dataset and the filter/aggregation
// pipeline that turns raw hit records into per-address summaries.
package hits

import (
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
)

// Hit is one access-log event. Records are immutable once loaded; the
// pipeline only ever derives from them. Lat/Lon are nil when geolocation
// failed for the address.
type Hit struct {
	IP      string   `json:"ip"`
	OrigIP  string   `json:"orig_ip,omitempty"`
	TS      string   `json:"ts"`
	Request string   `json:"request"`
	Path    string   `json:"path"`
	Status  int      `json:"status"`
	Bytes   int64    `json:"bytes"`
	Referer *string  `json:"referer"`
	UA      string   `json:"ua"`
	UAType  string   `json:"ua_type"`
	Host    string   `json:"host,omitempty"`
	Country string   `json:"country,omitempty"`
	City    string   `json:"city,omitempty"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`

	// Parsed form of TS. Zero with ok=false when TS is unparseable; such
	// records stay in the dataset but never constrain the timeline.
	time    time.Time
	hasTime bool
}

// Time returns the parsed timestamp and whether one exists.
func (h *Hit) Time() (time.Time, bool) {
	return h.time, h.hasTime
}

// ResolveTime parses TS into the cached timestamp. Decode calls this for
// every record; producers building Hit values directly must call it before
// summarizing.
func (h *Hit) ResolveTime() {
	h.time, h.hasTime = ParseTimestamp(h.TS)
}

// HasCoords reports whether the record carries a usable geo-coordinate.
func (h *Hit) HasCoords() bool {
	return h.Lat != nil && h.Lon != nil
}

// tsLayouts are tried in order; the dataset writer emits RFC 3339 but raw
// nginx timestamps survive when parsing failed upstream.
var tsLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"02/Jan/2006:15:04:05 -0700",
}

// ParseTimestamp parses a dataset timestamp string.
func ParseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Dataset is the JSON document produced by logparse: a generation stamp, the
// ordered hit list, and the precomputed unfiltered per-IP fold. The viewer
// recomputes summaries itself so Summaries is informational.
type Dataset struct {
	GeneratedAt string      `json:"generated_at"`
	TotalHits   int         `json:"total_hits"`
	UniqueIPs   int         `json:"unique_ips"`
	Summaries   []IPSummary `json:"ips"`
	Hits        []Hit       `json:"hits"`
}

// Decode reads a dataset document and resolves every record's timestamp.
func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	for i := range ds.Hits {
		ds.Hits[i].ResolveTime()
	}
	return &ds, nil
}

// TimeDomain returns the min and max parsed timestamps across the hits.
// Records without a parseable timestamp do not contribute. ok is false when
// no record has one.
func TimeDomain(hs []Hit) (min, max time.Time, ok bool) {
	for i := range hs {
		t, has := hs[i].Time()
		if !has {
			continue
		}
		if !ok || t.Before(min) {
			min = t
		}
		if !ok || t.After(max) {
			max = t
		}
		ok = true
	}
	return min, max, ok
}
