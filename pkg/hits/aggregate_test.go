package hits

import (
	"testing"
	"time"
)

func TestSummarizeGroupsByIP(t *testing.T) {
	hs := testDataset()

	f := FilterState{Country: "US"}
	summaries := Summarize(f.Apply(hs))

	if len(summaries) != 1 {
		t.Fatalf("got %d summaries; want 1", len(summaries))
	}
	s := summaries[0]
	if s.IP != "1.2.3.4" || s.Count != 3 {
		t.Errorf("summary = %s count=%d; want 1.2.3.4 count=3", s.IP, s.Count)
	}
	if s.FirstSeen != "2024-05-01T10:00:00Z" {
		t.Errorf("first seen = %s; want the earliest timestamp", s.FirstSeen)
	}
	if s.LastSeen != "2024-05-01T12:00:00Z" {
		t.Errorf("last seen = %s; want the latest timestamp", s.LastSeen)
	}
	if s.Country != "US" || s.City != "New York" || s.UAType != "Chrome" {
		t.Errorf("attributes = %s/%s/%s; want US/New York/Chrome", s.Country, s.City, s.UAType)
	}
	if TotalCount(summaries) != 3 {
		t.Errorf("total = %d; want 3", TotalCount(summaries))
	}
}

func TestSummarizeTimeWindow(t *testing.T) {
	hs := testDataset()
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 5, 1, 11, 30, 0, 0, time.UTC)

	f := FilterState{Start: t1, End: t2, HasStart: true, HasEnd: true}
	filtered := f.Apply(hs)
	summaries := Summarize(filtered)

	counts := map[string]int{}
	for _, s := range summaries {
		counts[s.IP] = s.Count
	}
	if counts["1.2.3.4"] != 2 || counts["5.6.7.8"] != 1 {
		t.Errorf("counts = %v; want 1.2.3.4:2 5.6.7.8:1", counts)
	}

	// Conservation: summary counts partition the filtered set.
	if TotalCount(summaries) != len(filtered) {
		t.Errorf("total %d != filtered %d", TotalCount(summaries), len(filtered))
	}
}

func TestSummarizeSortsByCountDescending(t *testing.T) {
	summaries := Summarize(testDataset())
	for i := 1; i < len(summaries); i++ {
		if summaries[i].Count > summaries[i-1].Count {
			t.Fatalf("summaries not sorted: %d before %d", summaries[i-1].Count, summaries[i].Count)
		}
	}
	if summaries[0].IP != "1.2.3.4" {
		t.Errorf("top summary = %s; want the most frequent address", summaries[0].IP)
	}
}

func TestSummarizeOutOfOrderTimestamps(t *testing.T) {
	hs := []Hit{
		testHit("10.0.0.1", "2024-05-02T08:00:00Z", "", "", "", "/a"),
		testHit("10.0.0.1", "2024-05-01T08:00:00Z", "", "", "", "/b"),
		testHit("10.0.0.1", "2024-05-03T08:00:00Z", "", "", "", "/c"),
	}
	s := Summarize(hs)[0]
	if s.FirstSeen != "2024-05-01T08:00:00Z" || s.LastSeen != "2024-05-03T08:00:00Z" {
		t.Errorf("bounds = [%s, %s]; want the min and max regardless of input order", s.FirstSeen, s.LastSeen)
	}
	first, ok := s.FirstSeenTime()
	if !ok || !first.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("parsed first seen = %v ok=%v", first, ok)
	}
}

func TestSummarizeFirstNonEmptyAttributeWins(t *testing.T) {
	lat1, lon1 := 40.7, -74.0
	lat2, lon2 := 52.5, 13.4
	hs := []Hit{
		testHit("10.0.0.2", "2024-05-01T08:00:00Z", "", "", "Chrome", "/"),
		{IP: "10.0.0.2", TS: "2024-05-01T09:00:00Z", Country: "US", City: "New York", UAType: "Firefox", Lat: &lat1, Lon: &lon1},
		{IP: "10.0.0.2", TS: "2024-05-01T10:00:00Z", Country: "DE", City: "Berlin", Lat: &lat2, Lon: &lon2},
	}
	for i := range hs {
		hs[i].ResolveTime()
	}

	s := Summarize(hs)[0]
	if s.Country != "US" || s.City != "New York" {
		t.Errorf("location = %s/%s; want the first non-empty values US/New York", s.Country, s.City)
	}
	if s.UAType != "Chrome" {
		t.Errorf("ua type = %s; want Chrome from the first record", s.UAType)
	}
	if s.Lat == nil || *s.Lat != lat1 || *s.Lon != lon1 {
		t.Errorf("coords = %v/%v; want the first non-nil pair", s.Lat, s.Lon)
	}
}

func TestSummarizeUnparseableTimestamps(t *testing.T) {
	hs := []Hit{
		testHit("10.0.0.3", "garbage", "", "", "", "/"),
		testHit("10.0.0.3", "also garbage", "", "", "", "/"),
	}
	s := Summarize(hs)[0]
	if s.Count != 2 {
		t.Errorf("count = %d; want 2", s.Count)
	}
	if _, ok := s.FirstSeenTime(); ok {
		t.Error("summary claims a parsed time bound with no parseable record")
	}
	// The raw strings are still carried for display.
	if s.FirstSeen != "garbage" {
		t.Errorf("raw first seen = %q; want the first record's string", s.FirstSeen)
	}
}

func TestTimeDomain(t *testing.T) {
	hs := testDataset()
	min, max, ok := TimeDomain(hs)
	if !ok {
		t.Fatal("domain not found despite parseable timestamps")
	}
	if !min.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("domain min = %v", min)
	}
	if !max.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("domain max = %v", max)
	}

	if _, _, ok := TimeDomain([]Hit{testHit("1.1.1.1", "nope", "", "", "", "/")}); ok {
		t.Error("domain reported for a set with no parseable timestamps")
	}
}
