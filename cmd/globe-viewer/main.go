package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/hitstream/hit-globe/pkg/globeengine"
	"github.com/hitstream/hit-globe/pkg/hits"
	"github.com/hitstream/hit-globe/pkg/sources"
)

var (
	widthFlag    = flag.Int("width", 1280, "Internal rendering width")
	heightFlag   = flag.Int("height", 800, "Internal rendering height")
	tpsFlag      = flag.Int("tps", 60, "Ticks per second (engine updates)")
	datasetFlag  = flag.String("dataset", sources.DefaultDatasetPath, "Dataset path or URL")
	basemapFlag  = flag.String("basemap", sources.WorldGeoJSONURL, "World GeoJSON URL")
	geoDBFlag    = flag.String("geo-db", "", "Optional mmdb path to geolocate records missing coordinates")
	geoCacheFlag = flag.String("geo-cache", "data/geo-cache", "Badger cache dir for geo lookups")
)

func main() {
	flag.Parse()
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	engine := globeengine.NewEngine(*widthFlag, *heightFlag)

	// The two resource loads run concurrently; the engine renders with
	// whatever has arrived and flips to the failure state if either fails.
	go func() {
		fc, err := sources.FetchWorldMap(*basemapFlag)
		if err != nil {
			log.Printf("[BASEMAP] Load failed: %v", err)
			engine.Fail(err)
			return
		}
		log.Printf("[BASEMAP] Loaded %d features", len(fc.Features))
		engine.SetLand(fc)
	}()
	go func() {
		ds, err := sources.FetchDataset(*datasetFlag)
		if err != nil {
			log.Printf("[DATASET] Load failed: %v", err)
			engine.Fail(err)
			return
		}
		if *geoDBFlag != "" {
			geo, err := hits.OpenGeolocator(*geoDBFlag, *geoCacheFlag)
			if err != nil {
				log.Printf("[GEO] Unavailable, rendering without enrichment: %v", err)
			} else {
				geo.Enrich(ds.Hits)
				if err := geo.Close(); err != nil {
					log.Printf("[GEO] Close error: %v", err)
				}
			}
		}
		log.Printf("[DATASET] Loaded %d hits (generated %s)", len(ds.Hits), ds.GeneratedAt)
		engine.SetDataset(ds)
	}()

	ebiten.SetTPS(*tpsFlag)
	ebiten.SetWindowSize(*widthFlag, *heightFlag)
	ebiten.SetWindowTitle("Access Log Globe")
	if err := ebiten.RunGame(engine); err != nil {
		log.Fatal(err)
	}
}
