// Command logparse turns an nginx access log into the dataset document the
// globe viewer consumes: one record per hit with geolocation and a coarse
// device class, plus a precomputed per-address rollup.
package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hitstream/hit-globe/pkg/hits"
)

var (
	logPathFlag  = flag.String("log-path", "/var/log/nginx/hanzi.access.log", "Path to nginx access log")
	geoDBFlag    = flag.String("geo-db", "/usr/share/GeoIP/GeoLite2-City.mmdb", "Path to GeoLite2-City mmdb file")
	geoCacheFlag = flag.String("geo-cache", "data/geo-cache", "Badger cache dir for geo lookups (empty to disable)")
	outputFlag   = flag.String("output", "data/data.json", "Output dataset path")
	tailFlag     = flag.Int("tail", 1000, "How many recent hits to keep in the dataset")
)

// logLine matches nginx combined-format lines extended with the cf-ip /
// cf-country proxy fields.
var logLine = regexp.MustCompile(
	`^(?P<ip>\S+)\s+\S+\s+\S+\s+\[(?P<ts>[^\]]+)\]\s+"(?P<req>[^"]+)"\s+` +
		`(?P<status>\d{3})\s+(?P<bytes>\d+)\s+"(?P<ref>[^"]*)"\s+"(?P<ua>[^"]*)"\s+` +
		`cf-ip=(?P<cf_ip>\S+)\s+xfwd=(?P<xfwd>.*?)\s+host=(?P<host>\S+)\s+sn=(?P<sn>\S+)\s+cf-country=(?P<cf_country>\S+)\s+cache=(?P<cache>\S+)`)

const nginxTimeLayout = "02/Jan/2006:15:04:05 -0700"

// parseLine turns one matched log line into a Hit. The raw timestamp is kept
// when it does not parse so the record survives without a timeline position.
func parseLine(line string) (hits.Hit, bool) {
	m := logLine.FindStringSubmatch(line)
	if m == nil {
		return hits.Hit{}, false
	}
	field := func(name string) string {
		return m[logLine.SubexpIndex(name)]
	}

	ts := field("ts")
	if t, err := time.Parse(nginxTimeLayout, ts); err == nil {
		ts = t.Format(time.RFC3339)
	}

	req := field("req")
	path := req
	if i := indexSpace(req); i >= 0 {
		rest := req[i+1:]
		if j := indexSpace(rest); j >= 0 {
			path = rest[:j]
		} else {
			path = rest
		}
	}

	ip := field("cf_ip")
	if ip == "" || ip == "-" {
		ip = field("ip")
	}
	status, _ := strconv.Atoi(field("status"))
	bytesSent, _ := strconv.ParseInt(field("bytes"), 10, 64)

	h := hits.Hit{
		IP:      ip,
		OrigIP:  field("ip"),
		TS:      ts,
		Request: req,
		Path:    path,
		Status:  status,
		Bytes:   bytesSent,
		UA:      field("ua"),
		UAType:  hits.ClassifyUA(field("ua")),
		Host:    field("host"),
		Country: normalizeHint(field("cf_country")),
	}
	if ref := field("ref"); ref != "" && ref != "-" {
		h.Referer = &ref
	}
	return h, true
}

func indexSpace(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return i
		}
	}
	return -1
}

func normalizeHint(cc string) string {
	if cc == "-" || cc == "XX" {
		return ""
	}
	return cc
}

func main() {
	flag.Parse()
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	f, err := os.Open(*logPathFlag)
	if err != nil {
		log.Fatalf("Log not found: %v", err)
	}
	defer f.Close()

	var parsed []hits.Hit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if h, ok := parseLine(scanner.Text()); ok {
			parsed = append(parsed, h)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Reading log: %v", err)
	}
	log.Printf("[PARSE] %d hits from %s", len(parsed), *logPathFlag)

	// Geolocate once per unique address. Records keep their country hint
	// when the database has nothing better.
	geo, err := hits.OpenGeolocator(*geoDBFlag, *geoCacheFlag)
	if err != nil {
		log.Printf("[GEO] Unavailable, emitting without coordinates: %v", err)
	} else {
		geo.Enrich(parsed)
		if err := geo.Close(); err != nil {
			log.Printf("[GEO] Close error: %v", err)
		}
	}

	// Summarize needs resolved timestamps; Decode does this for datasets
	// read back from disk, here we built the records ourselves.
	for i := range parsed {
		parsed[i].ResolveTime()
	}

	summaries := hits.Summarize(parsed)
	tail := parsed
	if len(tail) > *tailFlag {
		tail = tail[len(tail)-*tailFlag:]
	}

	payload := hits.Dataset{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		TotalHits:   len(parsed),
		UniqueIPs:   len(summaries),
		Summaries:   summaries,
		Hits:        tail,
	}

	if err := os.MkdirAll(filepath.Dir(*outputFlag), 0o755); err != nil {
		log.Fatalf("Creating output dir: %v", err)
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Fatalf("Encoding dataset: %v", err)
	}
	if err := os.WriteFile(*outputFlag, out, 0o644); err != nil {
		log.Fatalf("Writing dataset: %v", err)
	}
	log.Printf("[PARSE] Wrote %s (hits: %d, unique IPs: %d)", *outputFlag, len(tail), len(summaries))
}
