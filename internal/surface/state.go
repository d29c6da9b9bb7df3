package surface

import (
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

// Transform mirrors wl_output.transform (rotation/flip applied to the
// buffer before it is sampled).
type Transform int

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// State is a Surface's double-buffered content. Damage and DamageBuffer
// are cleared on every commit; every other field persists until
// explicitly changed again, matching real wl_surface semantics.
type State struct {
	Buffer       ids.BufferID // 0 = none attached
	Damage       []geom.Rect  // surface-local, accumulated since the last commit
	DamageBuffer bool         // true if damage was expressed in buffer (not surface) coords
	InputRegion  *geom.Rect   // nil = infinite (whole surface accepts input)
	OpaqueRegion *geom.Rect   // nil = fully transparent
	Scale        int32        // wl_surface.set_buffer_scale; default 1
	Transform    Transform
	ViewportSrc  *geom.Rect // wp_viewport source rect, nil = whole buffer
	ViewportDst  *geom.Size // wp_viewport destination size, nil = buffer size
	Children     []ids.SurfaceID
}

func identityState(cur State) State {
	return State{
		Buffer:       cur.Buffer,
		InputRegion:  cur.InputRegion,
		OpaqueRegion: cur.OpaqueRegion,
		Scale:        cur.Scale,
		Transform:    cur.Transform,
		ViewportSrc:  cur.ViewportSrc,
		ViewportDst:  cur.ViewportDst,
		Children:     cur.Children,
		// Damage and DamageBuffer reset: new damage must be re-reported
		// after every commit.
	}
}

func defaultState() State {
	return State{Scale: 1}
}
