package hits

import (
	"fmt"
	"net"

	json "github.com/goccy/go-json"
	"github.com/oschwald/maxminddb-golang"

	"github.com/hitstream/hit-globe/pkg/utils"
)

// GeoInfo is the geolocation payload for one address. Lat/Lon stay nil when
// the database has no location for it.
type GeoInfo struct {
	Country string   `json:"country,omitempty"`
	City    string   `json:"city,omitempty"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// Geolocator resolves addresses against a GeoLite2/ipinfo style mmdb, with an
// optional badger cache so repeated runs skip lookups already done.
type Geolocator struct {
	reader *maxminddb.Reader
	cache  *utils.GeoCache
}

// OpenGeolocator opens the mmdb at dbPath. cachePath may be empty to run
// without the persistent cache.
func OpenGeolocator(dbPath, cachePath string) (*Geolocator, error) {
	reader, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open geo db: %w", err)
	}
	g := &Geolocator{reader: reader}
	if cachePath != "" {
		cache, err := utils.OpenGeoCache(cachePath)
		if err != nil {
			reader.Close()
			return nil, fmt.Errorf("open geo cache: %w", err)
		}
		g.cache = cache
	}
	return g, nil
}

func (g *Geolocator) Close() error {
	if g.cache != nil {
		if err := g.cache.Close(); err != nil {
			return err
		}
	}
	return g.reader.Close()
}

type mmdbRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Lookup resolves one address. ok is false when the address is invalid or the
// database has nothing for it.
func (g *Geolocator) Lookup(ipStr string) (GeoInfo, bool) {
	if g.cache != nil {
		if raw, hit := g.cache.Get(ipStr); hit {
			var info GeoInfo
			if err := json.Unmarshal(raw, &info); err == nil {
				return info, true
			}
		}
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return GeoInfo{}, false
	}
	var rec mmdbRecord
	if err := g.reader.Lookup(ip, &rec); err != nil {
		return GeoInfo{}, false
	}
	info := GeoInfo{
		Country: rec.Country.ISOCode,
		City:    rec.City.Names["en"],
	}
	if rec.Location.Latitude != 0 || rec.Location.Longitude != 0 {
		lat, lon := rec.Location.Latitude, rec.Location.Longitude
		info.Lat, info.Lon = &lat, &lon
	}
	if info.Country == "" && info.City == "" && info.Lat == nil {
		return GeoInfo{}, false
	}

	if g.cache != nil {
		if raw, err := json.Marshal(info); err == nil {
			_ = g.cache.Set(ipStr, raw)
		}
	}
	return info, true
}

// Enrich fills country/city/coordinates on records that are missing them.
// Records stay in the dataset either way; enrichment only improves what the
// point layer and spatial join can use.
func (g *Geolocator) Enrich(hs []Hit) {
	for i := range hs {
		h := &hs[i]
		if h.HasCoords() && h.Country != "" {
			continue
		}
		info, ok := g.Lookup(h.IP)
		if !ok {
			continue
		}
		if h.Country == "" {
			h.Country = info.Country
		}
		if h.City == "" {
			h.City = info.City
		}
		if !h.HasCoords() && info.Lat != nil {
			h.Lat, h.Lon = info.Lat, info.Lon
		}
	}
}
