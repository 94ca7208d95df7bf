// Package sources fetches the two session resources: the world base map and
// the hit dataset. Both loads happen once per session and may run
// concurrently; the engine degrades gracefully while either is missing.
package sources

import (
	"fmt"
	"io"
	"os"
	"strings"

	geojson "github.com/paulmach/go.geojson"

	"github.com/hitstream/hit-globe/pkg/hits"
	"github.com/hitstream/hit-globe/pkg/utils"
)

const (
	// WorldGeoJSONURL is the default land-boundary topology, downloaded on
	// first run and cached under data/cache.
	WorldGeoJSONURL = "https://raw.githubusercontent.com/johan/world.geo.json/master/countries.geo.json"

	// DefaultDatasetPath is where logparse writes its output.
	DefaultDatasetPath = "data/data.json"
)

// FetchWorldMap loads the base-map feature collection from a URL, using the
// local download cache.
func FetchWorldMap(url string) (*geojson.FeatureCollection, error) {
	r, err := utils.GetCachedReader(url, true, "[BASEMAP]")
	if err != nil {
		return nil, fmt.Errorf("fetch base map: %w", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read base map: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base map: %w", err)
	}
	return fc, nil
}

// FetchDataset loads the hit dataset from a local path or an http(s) URL.
func FetchDataset(pathOrURL string) (*hits.Dataset, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		r, err := utils.GetCachedReader(pathOrURL, false, "[DATASET]")
		if err != nil {
			return nil, fmt.Errorf("fetch dataset: %w", err)
		}
		defer r.Close()
		return hits.Decode(r)
	}
	f, err := os.Open(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return hits.Decode(f)
}
