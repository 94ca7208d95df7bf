package main

import "testing"

const sampleLine = `203.0.113.9 - - [01/May/2024:10:15:30 +0000] "GET /blog/post HTTP/1.1" 200 5120 "https://example.com/" "Mozilla/5.0 AppleWebKit/537.36 Chrome/120.0 Safari/537.36" cf-ip=198.51.100.7 xfwd=198.51.100.7 host=example.org sn=example.org cf-country=NL cache=HIT`

func TestParseLine(t *testing.T) {
	h, ok := parseLine(sampleLine)
	if !ok {
		t.Fatal("sample line did not match")
	}
	if h.IP != "198.51.100.7" {
		t.Errorf("ip = %s; want the cf-ip value", h.IP)
	}
	if h.OrigIP != "203.0.113.9" {
		t.Errorf("orig_ip = %s; want the socket address", h.OrigIP)
	}
	if h.TS != "2024-05-01T10:15:30Z" {
		t.Errorf("ts = %s; want the RFC 3339 form", h.TS)
	}
	if h.Path != "/blog/post" {
		t.Errorf("path = %s; want /blog/post", h.Path)
	}
	if h.Status != 200 || h.Bytes != 5120 {
		t.Errorf("status/bytes = %d/%d; want 200/5120", h.Status, h.Bytes)
	}
	if h.Referer == nil || *h.Referer != "https://example.com/" {
		t.Error("referer not captured")
	}
	if h.UAType != "Chrome" {
		t.Errorf("ua_type = %s; want Chrome", h.UAType)
	}
	if h.Host != "example.org" || h.Country != "NL" {
		t.Errorf("host/country = %s/%s; want example.org/NL", h.Host, h.Country)
	}
}

func TestParseLineFallbacks(t *testing.T) {
	line := `203.0.113.9 - - [01/May/2024:10:15:30 +0000] "GET / HTTP/1.1" 304 0 "-" "curl/8.4.0" cf-ip=- xfwd=- host=example.org sn=example.org cf-country=XX cache=MISS`
	h, ok := parseLine(line)
	if !ok {
		t.Fatal("fallback line did not match")
	}
	if h.IP != "203.0.113.9" {
		t.Errorf("ip = %s; want the socket address when cf-ip is absent", h.IP)
	}
	if h.Referer != nil {
		t.Error(`referer should be nil for "-"`)
	}
	if h.Country != "" {
		t.Errorf("country = %q; want empty for the XX placeholder", h.Country)
	}
	if h.UAType != "Other" {
		t.Errorf("ua_type = %s; want Other", h.UAType)
	}
}

func TestParseLineRejectsNonMatching(t *testing.T) {
	lines := []string{
		"",
		"garbage",
		`203.0.113.9 - - [01/May/2024:10:15:30 +0000] "GET / HTTP/1.1" 200 0 "-" "ua"`, // combined format without the proxy fields
	}
	for _, line := range lines {
		if _, ok := parseLine(line); ok {
			t.Errorf("line unexpectedly matched: %q", line)
		}
	}
}
