package globeengine

// DragMode is the pointer interaction state.
type DragMode int

const (
	DragNone DragMode = iota
	DragRotate
	DragPan
)

const (
	rotateSensitivity = 0.3  // degrees of spin per pixel of horizontal drag
	idleRotationStep  = 0.05 // degrees per tick while idle
	zoomOutFactor     = 0.9
	zoomInFactor      = 1.1
	minZoom           = 0.5
	maxZoom           = 6.0
)

// ViewState owns the rotation/zoom/pan state for the draw surface. It is
// mutated only through Apply so every mutation point stays enumerable.
type ViewState struct {
	Kind       ProjectionKind
	Rotation   float64
	Zoom       float64
	PanX, PanY float64
	Drag       DragMode

	// Viewport geometry, needed to rebuild the projection and to anchor
	// zoom at the cursor.
	Width, Height int
	BaseRadius    float64
}

// NewViewState returns a view centered on the given viewport.
func NewViewState(width, height int) *ViewState {
	v := &ViewState{Zoom: 1}
	v.Resize(width, height)
	return v
}

// Resize updates the viewport geometry. The base radius leaves a margin so a
// zoom-1 orthographic globe fits with room for the HUD.
func (v *ViewState) Resize(width, height int) {
	v.Width, v.Height = width, height
	min := float64(width)
	if float64(height) < min {
		min = float64(height)
	}
	v.BaseRadius = min/2 - 40
	if v.BaseRadius < 10 {
		v.BaseRadius = 10
	}
}

// InputEventKind enumerates every way the view or filters can change.
type InputEventKind int

const (
	EventDragStart InputEventKind = iota
	EventDragMove
	EventDragEnd
	EventWheel
	EventProjectionChanged
	EventFilterChanged
	EventTimeChanged
)

// InputEvent is the single event type consumed by the state machine. X/Y is
// the pointer position, DX/DY the drag delta, WheelY the scroll direction,
// and Projection the newly selected family for EventProjectionChanged.
// ForcePan marks a modified drag that pans even on a rotatable family.
type InputEvent struct {
	Kind       InputEventKind
	X, Y       float64
	DX, DY     float64
	WheelY     float64
	Projection ProjectionKind
	ForcePan   bool
}

// Apply advances the state machine for one event. Filter and time events do
// not touch view state; they exist so callers can funnel every mutation
// through one place and react uniformly.
func (v *ViewState) Apply(ev InputEvent) {
	switch ev.Kind {
	case EventDragStart:
		if v.Kind.Rotatable() && !ev.ForcePan {
			v.Drag = DragRotate
		} else {
			v.Drag = DragPan
		}
	case EventDragMove:
		switch v.Drag {
		case DragRotate:
			v.Rotation = wrapDegrees(v.Rotation + ev.DX*rotateSensitivity)
		case DragPan:
			v.PanX += ev.DX
			v.PanY += ev.DY
		}
	case EventDragEnd:
		v.Drag = DragNone
	case EventWheel:
		v.applyWheel(ev)
	case EventProjectionChanged:
		v.Kind = ev.Projection
		v.Zoom = 1
		v.PanX, v.PanY = 0, 0
		v.Rotation = 0
	}
}

// applyWheel multiplies the zoom and compensates the pan so the geographic
// point under the cursor stays under the cursor.
func (v *ViewState) applyWheel(ev InputEvent) {
	factor := zoomOutFactor
	if ev.WheelY > 0 {
		factor = zoomInFactor
	}
	newZoom := v.Zoom * factor
	if newZoom < minZoom {
		newZoom = minZoom
	}
	if newZoom > maxZoom {
		newZoom = maxZoom
	}
	if newZoom == v.Zoom {
		return
	}
	change := newZoom / v.Zoom
	cx := float64(v.Width)/2 + v.PanX
	cy := float64(v.Height)/2 + v.PanY
	v.PanX -= (ev.X - cx) * (change - 1)
	v.PanY -= (ev.Y - cy) * (change - 1)
	v.Zoom = newZoom
}

// TickIdle advances the idle auto-rotation. It is a no-op while dragging and
// on families without an orientation.
func (v *ViewState) TickIdle() {
	if v.Drag != DragNone || !v.Kind.Rotatable() {
		return
	}
	v.Rotation = wrapDegrees(v.Rotation + idleRotationStep)
}

// Projection rebuilds the geo projection from the current state. Scale is
// baseRadius x family factor x zoom; the origin is the viewport center plus
// the pan offset.
func (v *ViewState) Projection() *Projection {
	return &Projection{
		Kind:   v.Kind,
		Scale:  v.BaseRadius * v.Kind.ScaleFactor() * v.Zoom,
		TX:     float64(v.Width)/2 + v.PanX,
		TY:     float64(v.Height)/2 + v.PanY,
		Lambda: v.Rotation,
	}
}
