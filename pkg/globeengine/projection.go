// Package globeengine renders geolocated access-log hits onto an interactive
// globe/map and keeps the drawn layers in sync with the hit filter pipeline.
package globeengine

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// ProjectionKind identifies one of the supported map projection families.
type ProjectionKind int

const (
	Orthographic ProjectionKind = iota
	Mercator
	Mollweide
)

func (k ProjectionKind) String() string {
	switch k {
	case Orthographic:
		return "orthographic"
	case Mercator:
		return "mercator"
	case Mollweide:
		return "mollweide"
	}
	return "unknown"
}

// Rotatable reports whether the family has a meaningful orientation that
// spinning makes sense for. The flat families pan instead.
func (k ProjectionKind) Rotatable() bool {
	return k == Orthographic
}

// ScaleFactor is the nominal per-family scale multiplier applied before the
// user zoom, chosen so switching families keeps a comparable globe size.
func (k ProjectionKind) ScaleFactor() float64 {
	switch k {
	case Mercator:
		return 0.55
	case Mollweide:
		return 0.90
	}
	return 1.0
}

const (
	maxMercatorLat  = 85.0
	maxMollweideLat = 89.5
	degToRad        = math.Pi / 180
	radToDeg        = 180 / math.Pi
)

// Projection maps geographic coordinates to screen coordinates. Scale is in
// pixels (sphere radius for the orthographic family), TX/TY is the screen
// origin, and Lambda/Phi is the rotation pair in degrees. Only the
// orthographic family consumes the rotation.
type Projection struct {
	Kind        ProjectionKind
	Scale       float64
	TX, TY      float64
	Lambda, Phi float64
}

// Project returns the screen position of (lat, lon) in degrees. ok is false
// for coordinates outside the projection's valid domain, such as the far
// hemisphere under orthographic clipping.
func (p *Projection) Project(lat, lon float64) (x, y float64, ok bool) {
	switch p.Kind {
	case Orthographic:
		return p.projectOrthographic(lat, lon)
	case Mercator:
		return p.projectMercator(lat, lon)
	default:
		return p.projectMollweide(lat, lon)
	}
}

func (p *Projection) projectOrthographic(lat, lon float64) (float64, float64, bool) {
	x, y, z := p.viewVector(lat, lon)
	if z < 0 {
		return 0, 0, false
	}
	return p.TX + p.Scale*x, p.TY - p.Scale*y, true
}

// viewVector returns the orthographic view-space unit vector of a geographic
// point: x right on screen, y up, z toward the viewer. The point is on the
// visible hemisphere when z >= 0.
func (p *Projection) viewVector(lat, lon float64) (x, y, z float64) {
	lam := (lon + p.Lambda) * degToRad
	phi := lat * degToRad
	phi0 := p.Phi * degToRad
	x = math.Cos(phi) * math.Sin(lam)
	y = math.Cos(phi0)*math.Sin(phi) - math.Sin(phi0)*math.Cos(phi)*math.Cos(lam)
	z = math.Sin(phi0)*math.Sin(phi) + math.Cos(phi0)*math.Cos(phi)*math.Cos(lam)
	return x, y, z
}

func (p *Projection) projectMercator(lat, lon float64) (float64, float64, bool) {
	if lat > maxMercatorLat {
		lat = maxMercatorLat
	}
	if lat < -maxMercatorLat {
		lat = -maxMercatorLat
	}
	x := p.TX + p.Scale*lon*degToRad
	y := p.TY - p.Scale*math.Log(math.Tan(math.Pi/4+lat*degToRad/2))
	return x, y, true
}

func (p *Projection) projectMollweide(lat, lon float64) (float64, float64, bool) {
	if lat > maxMollweideLat {
		lat = maxMollweideLat
	}
	if lat < -maxMollweideLat {
		lat = -maxMollweideLat
	}
	latRad, lonRad := lat*degToRad, lon*degToRad
	theta := latRad
	for i := 0; i < 10; i++ {
		denom := 2 + 2*math.Cos(2*theta)
		if math.Abs(denom) < 1e-9 {
			break
		}
		delta := (2*theta + math.Sin(2*theta) - math.Pi*math.Sin(latRad)) / denom
		theta -= delta
		if math.Abs(delta) < 1e-7 {
			break
		}
	}
	x := p.TX + p.Scale*(2*math.Sqrt(2)/math.Pi)*lonRad*math.Cos(theta)
	y := p.TY - p.Scale*math.Sqrt(2)*math.Sin(theta)
	return x, y, true
}

// RotatedLonOffset returns the signed longitudinal offset of lon from the view
// center under the current rotation, wrapped into [-180, 180).
func (p *Projection) RotatedLonOffset(lon float64) float64 {
	return wrapDegrees(lon + p.Lambda)
}

func wrapDegrees(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

// whiteSubImage is the 1x1 texture used to fill vector paths with
// DrawTriangles. The 3x3 parent avoids bleeding at the texel edges.
var (
	whiteImage    = ebiten.NewImage(3, 3)
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

// PathRenderer strokes and fills projected geometry onto an ebiten image. It
// reuses its vertex buffers across calls so per-frame drawing does not
// allocate.
type PathRenderer struct {
	Proj *Projection

	vertices []ebiten.Vertex
	indices  []uint16
}

// FillGeoPolygon fills a polygon given as rings of [lon, lat] positions, the
// GeoJSON vertex order. Holes are handled by the even-odd fill rule.
// Unprojectable vertices break the ring into visible segments, which is good
// enough for land masses straddling the orthographic horizon.
func (r *PathRenderer) FillGeoPolygon(dst *ebiten.Image, rings [][][]float64, clr color.RGBA) {
	var path vector.Path
	for _, ring := range rings {
		started := false
		for _, pos := range ring {
			x, y, ok := r.Proj.Project(pos[1], pos[0])
			if !ok || math.IsNaN(x) || math.IsNaN(y) {
				started = false
				continue
			}
			if !started {
				path.MoveTo(float32(x), float32(y))
				started = true
			} else {
				path.LineTo(float32(x), float32(y))
			}
		}
		if started {
			path.Close()
		}
	}
	r.fillPath(dst, &path, clr)
}

// FillScreenPolygon fills a polygon already expressed in screen coordinates.
func (r *PathRenderer) FillScreenPolygon(dst *ebiten.Image, pts [][2]float64, clr color.RGBA) {
	if len(pts) < 3 {
		return
	}
	var path vector.Path
	path.MoveTo(float32(pts[0][0]), float32(pts[0][1]))
	for _, pt := range pts[1:] {
		path.LineTo(float32(pt[0]), float32(pt[1]))
	}
	path.Close()
	r.fillPath(dst, &path, clr)
}

func (r *PathRenderer) fillPath(dst *ebiten.Image, path *vector.Path, clr color.RGBA) {
	r.vertices, r.indices = path.AppendVerticesAndIndicesForFilling(r.vertices[:0], r.indices[:0])
	// Premultiplied, as the blend expects
	ca := float32(clr.A) / 255
	cr := float32(clr.R) / 255 * ca
	cg := float32(clr.G) / 255 * ca
	cb := float32(clr.B) / 255 * ca
	for i := range r.vertices {
		r.vertices[i].SrcX = 1
		r.vertices[i].SrcY = 1
		r.vertices[i].ColorR = cr
		r.vertices[i].ColorG = cg
		r.vertices[i].ColorB = cb
		r.vertices[i].ColorA = ca
	}
	op := &ebiten.DrawTrianglesOptions{}
	op.FillRule = ebiten.FillRuleEvenOdd
	op.AntiAlias = true
	dst.DrawTriangles(r.vertices, r.indices, whiteSubImage, op)
}

// StrokeGeoLine strokes a polyline of [lon, lat] positions, splitting at
// unprojectable vertices.
func (r *PathRenderer) StrokeGeoLine(dst *ebiten.Image, line [][]float64, width float32, clr color.RGBA) {
	var px, py float64
	have := false
	for _, pos := range line {
		x, y, ok := r.Proj.Project(pos[1], pos[0])
		if !ok || math.IsNaN(x) || math.IsNaN(y) {
			have = false
			continue
		}
		if have {
			vector.StrokeLine(dst, float32(px), float32(py), float32(x), float32(y), width, clr, false)
		}
		px, py, have = x, y, true
	}
}

// StrokeGeoRings strokes polygon outlines in the same coordinate space as
// FillGeoPolygon.
func (r *PathRenderer) StrokeGeoRings(dst *ebiten.Image, rings [][][]float64, width float32, clr color.RGBA) {
	for _, ring := range rings {
		r.StrokeGeoLine(dst, ring, width, clr)
	}
}

// DrawGraticule draws meridians and parallels every 30 degrees, sampled every
// 2 degrees so the curves stay smooth under every family.
func (r *PathRenderer) DrawGraticule(dst *ebiten.Image, clr color.RGBA) {
	for lon := -180.0; lon <= 180.0; lon += 30 {
		line := make([][]float64, 0, 91)
		for lat := -90.0; lat <= 90.0; lat += 2 {
			line = append(line, []float64{lon, lat})
		}
		r.StrokeGeoLine(dst, line, 1, clr)
	}
	for lat := -60.0; lat <= 60.0; lat += 30 {
		line := make([][]float64, 0, 181)
		for lon := -180.0; lon <= 180.0; lon += 2 {
			line = append(line, []float64{lon, lat})
		}
		r.StrokeGeoLine(dst, line, 1, clr)
	}
}

// DrawSphere paints the projection's whole-world outline and background. For
// the orthographic family that is the visible disc; the flat families get the
// full projected extent of the sphere.
func (r *PathRenderer) DrawSphere(dst *ebiten.Image, fill, outline color.RGBA) {
	switch r.Proj.Kind {
	case Orthographic:
		vector.DrawFilledCircle(dst, float32(r.Proj.TX), float32(r.Proj.TY), float32(r.Proj.Scale), fill, true)
		vector.StrokeCircle(dst, float32(r.Proj.TX), float32(r.Proj.TY), float32(r.Proj.Scale), 1.5, outline, true)
	default:
		edge := make([][]float64, 0, 4*90+1)
		for lat := -90.0; lat < 90; lat += 2 {
			edge = append(edge, []float64{-180, lat})
		}
		for lat := 90.0; lat > -90; lat -= 2 {
			edge = append(edge, []float64{180, lat})
		}
		pts := make([][2]float64, 0, len(edge))
		for _, pos := range edge {
			x, y, ok := r.Proj.Project(pos[1], pos[0])
			if !ok {
				continue
			}
			pts = append(pts, [2]float64{x, y})
		}
		r.FillScreenPolygon(dst, pts, fill)
		r.StrokeGeoLine(dst, append(edge, edge[0]), 1.5, outline)
	}
}

// DrawPoint draws a hit marker at (lat, lon), honoring projection clipping.
func (r *PathRenderer) DrawPoint(dst *ebiten.Image, lat, lon, radius float64, clr color.RGBA) bool {
	x, y, ok := r.Proj.Project(lat, lon)
	if !ok || math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	vector.DrawFilledCircle(dst, float32(x), float32(y), float32(radius), clr, true)
	return true
}
