package globeengine

import (
	"math"
	"testing"
)

func TestDragRotate(t *testing.T) {
	v := NewViewState(1280, 800)

	v.Apply(InputEvent{Kind: EventDragStart, X: 100, Y: 100})
	if v.Drag != DragRotate {
		t.Fatalf("drag mode = %v; want DragRotate on the orthographic family", v.Drag)
	}
	v.Apply(InputEvent{Kind: EventDragMove, DX: 10, DY: 5})
	if math.Abs(v.Rotation-3.0) > 1e-9 {
		t.Errorf("rotation after 10px drag = %f; want 3.0", v.Rotation)
	}
	if v.PanX != 0 || v.PanY != 0 {
		t.Errorf("rotate drag moved the pan offset: (%f, %f)", v.PanX, v.PanY)
	}
	v.Apply(InputEvent{Kind: EventDragEnd})
	if v.Drag != DragNone {
		t.Errorf("drag mode after release = %v; want DragNone", v.Drag)
	}

	// Deltas with no drag in progress are ignored.
	v.Apply(InputEvent{Kind: EventDragMove, DX: 50})
	if math.Abs(v.Rotation-3.0) > 1e-9 {
		t.Errorf("rotation changed without an active drag: %f", v.Rotation)
	}
}

func TestDragPanOnFlatFamily(t *testing.T) {
	v := NewViewState(1280, 800)
	v.Apply(InputEvent{Kind: EventProjectionChanged, Projection: Mercator})

	v.Apply(InputEvent{Kind: EventDragStart})
	if v.Drag != DragPan {
		t.Fatalf("drag mode = %v; want DragPan on a flat family", v.Drag)
	}
	v.Apply(InputEvent{Kind: EventDragMove, DX: 12, DY: -7})
	if v.PanX != 12 || v.PanY != -7 {
		t.Errorf("pan = (%f, %f); want (12, -7)", v.PanX, v.PanY)
	}
	if v.Rotation != 0 {
		t.Errorf("flat-family drag changed rotation: %f", v.Rotation)
	}
}

func TestForcePan(t *testing.T) {
	v := NewViewState(1280, 800)
	v.Apply(InputEvent{Kind: EventDragStart, ForcePan: true})
	if v.Drag != DragPan {
		t.Errorf("drag mode = %v; want DragPan when the pan modifier is held", v.Drag)
	}
}

func TestWheelZoomClamps(t *testing.T) {
	v := NewViewState(1280, 800)

	for i := 0; i < 50; i++ {
		v.Apply(InputEvent{Kind: EventWheel, WheelY: 1, X: 640, Y: 400})
	}
	if v.Zoom != maxZoom {
		t.Errorf("zoom after heavy zoom-in = %f; want clamp at %f", v.Zoom, maxZoom)
	}
	for i := 0; i < 100; i++ {
		v.Apply(InputEvent{Kind: EventWheel, WheelY: -1, X: 640, Y: 400})
	}
	if v.Zoom != minZoom {
		t.Errorf("zoom after heavy zoom-out = %f; want clamp at %f", v.Zoom, minZoom)
	}
}

// TestWheelZoomAnchorsCursor checks that the geographic point under the cursor
// stays under the cursor across a zoom step.
func TestWheelZoomAnchorsCursor(t *testing.T) {
	v := NewViewState(1280, 800)
	v.Apply(InputEvent{Kind: EventProjectionChanged, Projection: Mercator})
	v.PanX, v.PanY = 37, -12

	const lat, lon = 48.8, 2.3
	bx, by, ok := v.Projection().Project(lat, lon)
	if !ok {
		t.Fatal("anchor point not projectable")
	}

	v.Apply(InputEvent{Kind: EventWheel, WheelY: 1, X: bx, Y: by})

	ax, ay, ok := v.Projection().Project(lat, lon)
	if !ok {
		t.Fatal("anchor point lost after zoom")
	}
	if math.Abs(ax-bx) > 0.01 || math.Abs(ay-by) > 0.01 {
		t.Errorf("anchor drifted from (%f, %f) to (%f, %f)", bx, by, ax, ay)
	}
}

func TestProjectionChangeResetsView(t *testing.T) {
	v := NewViewState(1280, 800)
	v.Rotation = 77
	v.Zoom = 3
	v.PanX, v.PanY = 50, -20

	v.Apply(InputEvent{Kind: EventProjectionChanged, Projection: Mollweide})

	if v.Kind != Mollweide {
		t.Errorf("kind = %v; want Mollweide", v.Kind)
	}
	if v.Zoom != 1 || v.PanX != 0 || v.PanY != 0 || v.Rotation != 0 {
		t.Errorf("view not reset: zoom=%f pan=(%f, %f) rotation=%f", v.Zoom, v.PanX, v.PanY, v.Rotation)
	}
}

func TestIdleRotation(t *testing.T) {
	v := NewViewState(1280, 800)

	v.TickIdle()
	if math.Abs(v.Rotation-idleRotationStep) > 1e-9 {
		t.Errorf("rotation after one idle tick = %f; want %f", v.Rotation, idleRotationStep)
	}

	// Idle rotation wraps instead of growing without bound.
	v.Rotation = 179.99
	v.TickIdle()
	if v.Rotation > 180 || v.Rotation < -180 {
		t.Errorf("idle rotation left the wrapped range: %f", v.Rotation)
	}

	// No idle spin while a drag is in progress.
	v.Rotation = 0
	v.Apply(InputEvent{Kind: EventDragStart})
	v.TickIdle()
	if v.Rotation != 0 {
		t.Errorf("idle rotation advanced during a drag: %f", v.Rotation)
	}
	v.Apply(InputEvent{Kind: EventDragEnd})

	// Flat families have no orientation to spin.
	v.Apply(InputEvent{Kind: EventProjectionChanged, Projection: Mercator})
	v.TickIdle()
	if v.Rotation != 0 {
		t.Errorf("idle rotation advanced on a flat family: %f", v.Rotation)
	}
}

func TestProjectionRebuild(t *testing.T) {
	v := NewViewState(1000, 800)
	v.Zoom = 2
	v.PanX, v.PanY = 10, 20
	v.Rotation = 45

	p := v.Projection()
	if p.Kind != Orthographic {
		t.Errorf("kind = %v; want Orthographic", p.Kind)
	}
	// base radius is min(w, h)/2 - 40 = 360, doubled by zoom
	if p.Scale != 720 {
		t.Errorf("scale = %f; want 720", p.Scale)
	}
	if p.TX != 510 || p.TY != 420 {
		t.Errorf("origin = (%f, %f); want (510, 420)", p.TX, p.TY)
	}
	if p.Lambda != 45 {
		t.Errorf("lambda = %f; want 45", p.Lambda)
	}
}
