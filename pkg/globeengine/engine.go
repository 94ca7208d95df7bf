package globeengine

import (
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	geojson "github.com/paulmach/go.geojson"

	"github.com/hitstream/hit-globe/pkg/hits"
)

var (
	colorBackground = color.RGBA{8, 10, 15, 255}
	colorOcean      = color.RGBA{13, 18, 28, 255}
	colorOutline    = color.RGBA{36, 42, 53, 255}
	colorLand       = color.RGBA{80, 200, 120, 255}
	colorLandEdge   = color.RGBA{46, 60, 66, 255}
	colorGraticule  = color.RGBA{40, 46, 58, 70}
	colorNight      = color.RGBA{5, 8, 38, 115}
	colorPoint      = color.RGBA{0, 191, 255, 210}
	colorPointRim   = color.RGBA{180, 235, 255, 160}
)

const pointBaseRadius = 3.0

// Engine is the frame loop: it owns the view and filter state, reacts to the
// control surface, and composes the layers every tick. All state is mutated
// from the game loop goroutine; the mutex only guards the two async resource
// loads racing the first frames.
type Engine struct {
	Width, Height int

	mu      sync.Mutex
	land    *LandSet
	dataset *hits.Dataset
	loadErr error

	view   *ViewState
	filter hits.FilterState

	filtered  []hits.Hit
	summaries []hits.IPSummary
	options   hits.Options

	domainMin, domainMax time.Time
	hasDomain            bool

	searchMode bool

	lastX, lastY int

	renderer PathRenderer

	// now is the terminator clock, swappable in tests.
	now func() time.Time

	hudFonts
}

func NewEngine(width, height int) *Engine {
	e := &Engine{
		Width:  width,
		Height: height,
		view:   NewViewState(width, height),
		now:    time.Now,
	}
	e.initFonts()
	return e
}

// SetLand installs the base map. Safe to call from a loader goroutine; until
// it happens the engine simply draws no land layer.
func (e *Engine) SetLand(fc *geojson.FeatureCollection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.land = NewLandSet(fc)
	e.refilterLocked()
}

// SetDataset installs the hit records. Safe to call from a loader goroutine;
// until it happens the engine draws no points and ignores filter input.
func (e *Engine) SetDataset(ds *hits.Dataset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dataset = ds
	e.options = hits.CollectOptions(ds.Hits)
	e.domainMin, e.domainMax, e.hasDomain = hits.TimeDomain(ds.Hits)
	e.refilterLocked()
}

// Fail puts the engine into the terminal failure state: interactivity is
// disabled and every frame draws the failure indication. There is no retry.
func (e *Engine) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadErr = err
}

// Summaries returns the aggregate list for the currently filtered records.
func (e *Engine) Summaries() []hits.IPSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaries
}

// FilteredCount returns the size of the currently filtered record set.
func (e *Engine) FilteredCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.filtered)
}

// SetFilter replaces the filter state wholesale and recomputes.
func (e *Engine) SetFilter(f hits.FilterState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter = f
	e.view.Apply(InputEvent{Kind: EventFilterChanged})
	e.refilterLocked()
}

// refilterLocked recomputes every filter-derived structure from scratch:
// filtered records, summaries, and the per-polygon counts. Total and
// synchronous on purpose; at this data scale diffing would cost more than it
// saves.
func (e *Engine) refilterLocked() {
	if e.dataset == nil {
		e.filtered = nil
		e.summaries = nil
		return
	}
	e.filtered = e.filter.Apply(e.dataset.Hits)
	e.summaries = hits.Summarize(e.filtered)
	if e.land != nil {
		pts := make([]Coordinate, 0, len(e.summaries))
		for i := range e.summaries {
			s := &e.summaries[i]
			if s.Lat != nil && s.Lon != nil {
				pts = append(pts, Coordinate{Lat: *s.Lat, Lon: *s.Lon})
			}
		}
		e.land.RebuildCounts(pts)
	}
}

func (e *Engine) Update() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return nil
	}
	if e.searchMode {
		e.updateSearchInput()
	} else {
		e.handleKeys()
	}
	e.handlePointer()
	e.view.TickIdle()
	return nil
}

func (e *Engine) handleKeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyDigit1):
		e.view.Apply(InputEvent{Kind: EventProjectionChanged, Projection: Orthographic})
	case inpututil.IsKeyJustPressed(ebiten.KeyDigit2):
		e.view.Apply(InputEvent{Kind: EventProjectionChanged, Projection: Mercator})
	case inpututil.IsKeyJustPressed(ebiten.KeyDigit3):
		e.view.Apply(InputEvent{Kind: EventProjectionChanged, Projection: Mollweide})
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		e.filter.Country = cycleOption(e.options.Countries, e.filter.Country)
		e.view.Apply(InputEvent{Kind: EventFilterChanged})
		e.refilterLocked()
	case inpututil.IsKeyJustPressed(ebiten.KeyX):
		e.filter.City = cycleOption(e.options.Cities, e.filter.City)
		e.view.Apply(InputEvent{Kind: EventFilterChanged})
		e.refilterLocked()
	case inpututil.IsKeyJustPressed(ebiten.KeyV):
		e.filter.Device = cycleOption(e.options.Devices, e.filter.Device)
		e.view.Apply(InputEvent{Kind: EventFilterChanged})
		e.refilterLocked()
	case inpututil.IsKeyJustPressed(ebiten.KeySlash):
		e.searchMode = true
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		kind := e.view.Kind
		e.view.Apply(InputEvent{Kind: EventProjectionChanged, Projection: kind})
		e.filter = hits.FilterState{}
		e.refilterLocked()
	}
	e.handleTimeKeys()
}

// handleTimeKeys moves the inclusive time-range bounds in steps of 1/24 of
// the observed domain. First use snaps the unset bounds to the full domain.
func (e *Engine) handleTimeKeys() {
	if !e.hasDomain {
		return
	}
	left := inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft)
	right := inpututil.IsKeyJustPressed(ebiten.KeyArrowRight)
	down := inpututil.IsKeyJustPressed(ebiten.KeyArrowDown)
	up := inpututil.IsKeyJustPressed(ebiten.KeyArrowUp)
	if !left && !right && !down && !up {
		return
	}
	if !e.filter.HasStart {
		e.filter.Start, e.filter.HasStart = e.domainMin, true
	}
	if !e.filter.HasEnd {
		e.filter.End, e.filter.HasEnd = e.domainMax, true
	}
	step := e.domainMax.Sub(e.domainMin) / 24
	if step <= 0 {
		step = time.Minute
	}
	switch {
	case left:
		e.filter.Start = e.filter.Start.Add(-step)
	case right:
		e.filter.Start = e.filter.Start.Add(step)
	case down:
		e.filter.End = e.filter.End.Add(-step)
	case up:
		e.filter.End = e.filter.End.Add(step)
	}
	if e.filter.Start.Before(e.domainMin) {
		e.filter.Start = e.domainMin
	}
	if e.filter.End.After(e.domainMax) {
		e.filter.End = e.domainMax
	}
	if e.filter.End.Before(e.filter.Start) {
		e.filter.End = e.filter.Start
	}
	e.view.Apply(InputEvent{Kind: EventTimeChanged})
	e.refilterLocked()
}

func (e *Engine) updateSearchInput() {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r == '/' || r < ' ' {
			continue
		}
		e.filter.Query += string(r)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && e.filter.Query != "" {
		runes := []rune(e.filter.Query)
		e.filter.Query = string(runes[:len(runes)-1])
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		e.searchMode = false
	}
	e.view.Apply(InputEvent{Kind: EventFilterChanged})
	e.refilterLocked()
}

// cycleOption walks "" (all) -> options[0] -> ... -> back to all.
func cycleOption(options []string, current string) string {
	if len(options) == 0 {
		return ""
	}
	if current == "" || current == hits.All {
		return options[0]
	}
	for i, opt := range options {
		if opt == current {
			if i+1 < len(options) {
				return options[i+1]
			}
			return ""
		}
	}
	return ""
}

func shiftHeld() bool {
	return ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
}

func (e *Engine) handlePointer() {
	x, y := ebiten.CursorPosition()

	if _, wy := ebiten.Wheel(); wy != 0 {
		e.view.Apply(InputEvent{Kind: EventWheel, X: float64(x), Y: float64(y), WheelY: wy})
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		e.view.Apply(InputEvent{Kind: EventDragStart, X: float64(x), Y: float64(y), ForcePan: shiftHeld()})
		e.lastX, e.lastY = x, y
		return
	}
	if e.view.Drag != DragNone {
		if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
			e.view.Apply(InputEvent{Kind: EventDragEnd})
			return
		}
		if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
			dx, dy := x-e.lastX, y-e.lastY
			if dx != 0 || dy != 0 {
				e.view.Apply(InputEvent{
					Kind: EventDragMove,
					X:    float64(x), Y: float64(y),
					DX: float64(dx), DY: float64(dy),
				})
				e.lastX, e.lastY = x, y
			}
		}
	}
}

func (e *Engine) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loadErr != nil {
		e.drawFailure(screen)
		return
	}

	proj := e.view.Projection()
	e.renderer.Proj = proj
	r := &e.renderer

	r.DrawSphere(screen, colorOcean, colorOutline)
	e.drawLand(screen, r)
	e.drawNight(screen, r)
	r.DrawGraticule(screen, colorGraticule)
	e.drawPoints(screen, proj, r)
	e.drawHUD(screen)
}

func (e *Engine) drawLand(screen *ebiten.Image, r *PathRenderer) {
	if e.land == nil {
		return
	}
	for i := range e.land.Polygons {
		lp := &e.land.Polygons[i]
		opacity := FillOpacity(e.land.Counts[lp.Index])
		fill := colorLand
		fill.A = uint8(opacity * 255)
		r.FillGeoPolygon(screen, lp.Rings, fill)
		r.StrokeGeoRings(screen, lp.Rings, 1, colorLandEdge)
	}
}

// drawNight overlays the hemisphere opposite the sub-solar point. Recomputed
// every frame from the wall clock; at this granularity caching would buy
// nothing.
func (e *Engine) drawNight(screen *ebiten.Image, r *PathRenderer) {
	t := e.now()
	if e.view.Kind == Orthographic {
		if pts := nightPolygon(r.Proj, t); len(pts) >= 3 {
			r.FillScreenPolygon(screen, pts, colorNight)
		}
		return
	}
	outline := NightOutlineFlat(t)
	pts := make([][2]float64, 0, len(outline))
	for _, pos := range outline {
		x, y, ok := r.Proj.Project(pos[1], pos[0])
		if !ok {
			continue
		}
		pts = append(pts, [2]float64{x, y})
	}
	r.FillScreenPolygon(screen, pts, colorNight)
}

type viewVec struct {
	x, y, z float64
}

// nightPolygon returns the visible part of the night hemisphere under the
// orthographic family as a screen polygon: the front portion of the
// terminator circle, closed along the horizon arc on the night side. When the
// view faces the sun this is a thin lune at the limb; facing away it grows to
// the whole disc.
func nightPolygon(p *Projection, t time.Time) [][2]float64 {
	sunLat, sunLon := SubsolarPoint(t)
	sunX, sunY, sunZ := p.viewVector(sunLat, sunLon)

	circle := NightCircle(t, 180)
	// Drop the duplicated closing vertex; the walk below wraps by index.
	vs := make([]viewVec, 0, len(circle)-1)
	visible := 0
	for _, pos := range circle[:len(circle)-1] {
		x, y, z := p.viewVector(pos[1], pos[0])
		if z >= 0 {
			visible++
		}
		vs = append(vs, viewVec{x, y, z})
	}
	screenPt := func(x, y float64) [2]float64 {
		return [2]float64{p.TX + p.Scale*x, p.TY - p.Scale*y}
	}

	n := len(vs)
	switch visible {
	case 0:
		// Terminator entirely behind the sphere: the disc is all night or
		// all day depending on which side the sun is.
		if sunZ >= 0 {
			return nil
		}
		pts := make([][2]float64, 0, 180)
		for a := 0.0; a < 360; a += 2 {
			pts = append(pts, screenPt(math.Cos(a*degToRad), math.Sin(a*degToRad)))
		}
		return pts
	case n:
		pts := make([][2]float64, 0, n)
		for _, v := range vs {
			pts = append(pts, screenPt(v.x, v.y))
		}
		return pts
	}

	// The terminator and horizon are distinct great circles here, so there is
	// exactly one front arc. Find where it starts.
	start := -1
	for i := 0; i < n; i++ {
		if vs[i].z < 0 && vs[(i+1)%n].z >= 0 {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	entryX, entryY := horizonCrossing(vs[start], vs[(start+1)%n])
	pts := make([][2]float64, 0, n+180)
	pts = append(pts, screenPt(entryX, entryY))
	i := (start + 1) % n
	for vs[i].z >= 0 {
		pts = append(pts, screenPt(vs[i].x, vs[i].y))
		i = (i + 1) % n
	}
	exitX, exitY := horizonCrossing(vs[(i-1+n)%n], vs[i])
	pts = append(pts, screenPt(exitX, exitY))

	// Close along the horizon, walking the side whose midpoint is in night.
	a1 := math.Atan2(exitY, exitX)
	a2 := math.Atan2(entryY, entryX)
	delta := math.Mod(a2-a1+4*math.Pi, 2*math.Pi)
	mid := a1 + delta/2
	if math.Cos(mid)*sunX+math.Sin(mid)*sunY >= 0 {
		delta -= 2 * math.Pi
	}
	steps := int(math.Abs(delta) / (2 * degToRad))
	for s := 1; s < steps; s++ {
		ang := a1 + delta*float64(s)/float64(steps)
		pts = append(pts, screenPt(math.Cos(ang), math.Sin(ang)))
	}
	return pts
}

// horizonCrossing interpolates the z=0 crossing between two adjacent
// terminator samples and normalizes it onto the horizon circle.
func horizonCrossing(a, b viewVec) (float64, float64) {
	t := a.z / (a.z - b.z)
	x := a.x + (b.x-a.x)*t
	y := a.y + (b.y-a.y)*t
	if norm := math.Hypot(x, y); norm > 1e-12 {
		x, y = x/norm, y/norm
	}
	return x, y
}

func (e *Engine) drawPoints(screen *ebiten.Image, proj *Projection, r *PathRenderer) {
	for i := range e.summaries {
		s := &e.summaries[i]
		if s.Lat == nil || s.Lon == nil {
			continue
		}
		// Back-of-globe culling under the rotatable family
		if proj.Kind == Orthographic && math.Abs(proj.RotatedLonOffset(*s.Lon)) > 90 {
			continue
		}
		count := s.Count
		if count > 10 {
			count = 10
		}
		radius := pointBaseRadius * (1 + float64(count)*0.1)
		if r.DrawPoint(screen, *s.Lat, *s.Lon, radius, colorPoint) {
			r.DrawPoint(screen, *s.Lat, *s.Lon, radius*0.45, colorPointRim)
		}
	}
}

func (e *Engine) Layout(outsideWidth, outsideHeight int) (int, int) {
	return e.Width, e.Height
}
