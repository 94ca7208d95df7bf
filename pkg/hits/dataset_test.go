package hits

import (
	"strings"
	"testing"
	"time"
)

const sampleDataset = `{
  "generated_at": "2024-05-01T12:34:56Z",
  "total_hits": 2,
  "unique_ips": 2,
  "ips": [
    {"ip": "1.2.3.4", "count": 1, "first_seen": "2024-05-01T10:00:00Z", "last_seen": "2024-05-01T10:00:00Z", "country": "US", "lat": 40.7, "lon": -74.0},
    {"ip": "5.6.7.8", "count": 1, "first_seen": "2024-05-01T11:00:00Z", "last_seen": "2024-05-01T11:00:00Z", "country": "DE", "lat": null, "lon": null}
  ],
  "hits": [
    {"ip": "1.2.3.4", "ts": "2024-05-01T10:00:00+00:00", "request": "GET / HTTP/1.1", "path": "/", "status": 200, "bytes": 512, "referer": null, "ua": "curl/8.4.0", "ua_type": "Other", "country": "US", "city": "New York", "lat": 40.7, "lon": -74.0},
    {"ip": "5.6.7.8", "ts": "02/May/2024:09:15:00 +0200", "request": "GET /x HTTP/1.1", "path": "/x", "status": 404, "bytes": 0, "referer": "https://example.com", "ua": "x", "ua_type": "Other", "country": "DE", "lat": null, "lon": null}
  ]
}`

func TestDecode(t *testing.T) {
	ds, err := Decode(strings.NewReader(sampleDataset))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ds.GeneratedAt != "2024-05-01T12:34:56Z" || ds.TotalHits != 2 || ds.UniqueIPs != 2 {
		t.Errorf("header = %s/%d/%d", ds.GeneratedAt, ds.TotalHits, ds.UniqueIPs)
	}
	if len(ds.Hits) != 2 || len(ds.Summaries) != 2 {
		t.Fatalf("got %d hits, %d summaries", len(ds.Hits), len(ds.Summaries))
	}

	// Both timestamp layouts resolve, including the raw nginx form.
	t0, ok := ds.Hits[0].Time()
	if !ok || !t0.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("hit 0 time = %v ok=%v", t0, ok)
	}
	t1, ok := ds.Hits[1].Time()
	if !ok || !t1.Equal(time.Date(2024, 5, 2, 7, 15, 0, 0, time.UTC)) {
		t.Errorf("hit 1 time = %v ok=%v", t1, ok)
	}

	if !ds.Hits[0].HasCoords() {
		t.Error("hit 0 should carry coordinates")
	}
	if ds.Hits[1].HasCoords() {
		t.Error("hit 1 has null coordinates but claims some")
	}
	if ds.Hits[1].Referer == nil || *ds.Hits[1].Referer != "https://example.com" {
		t.Error("referer not decoded")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode(strings.NewReader("not json")); err == nil {
		t.Error("expected an error for malformed input")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-05-01T10:00:00Z", true},
		{"2024-05-01T10:00:00+07:00", true},
		{"01/May/2024:10:00:00 +0000", true},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		if _, ok := ParseTimestamp(tt.in); ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v; want %v", tt.in, ok, tt.ok)
		}
	}
}
