package globeengine

import (
	"math"

	geojson "github.com/paulmach/go.geojson"
)

// LandPolygon is one polygon of the base map: its rings in GeoJSON vertex
// order ([lon, lat], outer ring first) plus a cached bounding box. Geometry is
// read-only after load; only the companion count array changes.
type LandPolygon struct {
	Index          int
	Rings          [][][]float64
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// LandSet is the base map flattened into indexed polygons. Counts is rebuilt
// wholesale on every aggregation pass and is indexed by LandPolygon.Index,
// never keyed by feature identity.
type LandSet struct {
	Polygons []LandPolygon
	Counts   []int
}

// NewLandSet flattens a GeoJSON feature collection into indexed polygons.
// MultiPolygon features contribute one entry per member polygon.
func NewLandSet(fc *geojson.FeatureCollection) *LandSet {
	ls := &LandSet{}
	add := func(rings [][][]float64) {
		if len(rings) == 0 || len(rings[0]) == 0 {
			return
		}
		lp := LandPolygon{
			Index:  len(ls.Polygons),
			Rings:  rings,
			MinLon: math.Inf(1), MinLat: math.Inf(1),
			MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
		}
		for _, pos := range rings[0] {
			lp.MinLon = math.Min(lp.MinLon, pos[0])
			lp.MaxLon = math.Max(lp.MaxLon, pos[0])
			lp.MinLat = math.Min(lp.MinLat, pos[1])
			lp.MaxLat = math.Max(lp.MaxLat, pos[1])
		}
		ls.Polygons = append(ls.Polygons, lp)
	}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if f.Geometry.IsPolygon() {
			add(f.Geometry.Polygon)
		} else if f.Geometry.IsMultiPolygon() {
			for _, poly := range f.Geometry.MultiPolygon {
				add(poly)
			}
		}
	}
	ls.Counts = make([]int, len(ls.Polygons))
	return ls
}

// Contains tests the point against every ring with an even-odd ray cast, so
// holes are excluded without special casing.
func (lp *LandPolygon) Contains(lat, lon float64) bool {
	if lon < lp.MinLon || lon > lp.MaxLon || lat < lp.MinLat || lat > lp.MaxLat {
		return false
	}
	inside := false
	for _, ring := range lp.Rings {
		n := len(ring)
		if n < 3 {
			continue
		}
		j := n - 1
		for i := 0; i < n; i++ {
			yi, yj := ring[i][1], ring[j][1]
			xi, xj := ring[i][0], ring[j][0]
			if (yi > lat) != (yj > lat) && lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
				inside = !inside
			}
			j = i
		}
	}
	return inside
}

// Locate returns the index of the first polygon containing the point, or -1.
// This is a linear scan: with hundreds of points against low hundreds of
// polygons it stays well under the frame budget, and that is the accepted
// scaling limit until the polygon count grows materially.
func (ls *LandSet) Locate(lat, lon float64) int {
	for i := range ls.Polygons {
		if ls.Polygons[i].Contains(lat, lon) {
			return i
		}
	}
	return -1
}

// Coordinate is a bare geographic position.
type Coordinate struct {
	Lat, Lon float64
}

// RebuildCounts recomputes the per-polygon counts from scratch. Each point is
// attributed to at most one polygon; points outside every polygon are left
// uncounted.
func (ls *LandSet) RebuildCounts(pts []Coordinate) {
	for i := range ls.Counts {
		ls.Counts[i] = 0
	}
	for _, pt := range pts {
		if idx := ls.Locate(pt.Lat, pt.Lon); idx >= 0 {
			ls.Counts[idx]++
		}
	}
}

// landBaseOpacity is the fill for polygons with no attributed points.
const landBaseOpacity = 0.10

// FillOpacity is the saturating logarithmic opacity curve for a polygon's
// count. The exact curve matters for visual parity with the table view.
func FillOpacity(count int) float64 {
	if count <= 0 {
		return landBaseOpacity
	}
	return math.Min(0.8, 0.2+math.Log10(float64(count)+1)*0.6)
}
