// Package geom holds the axis-aligned rectangle type shared by damage
// tracking, workspace layout, and rendering, and its pure-geometry
// operations: intersection, union, containment, and adjacency.
package geom

// Rect is an axis-aligned rectangle: integer pixel origin, unsigned
// integer extent. Coordinates are integer pixels at every boundary that
// crosses into the renderer; layout code that needs sub-pixel precision
// works in float64 and snaps to this type only when it hands geometry to
// damage/render.
type Rect struct {
	X, Y int32
	W, H uint32
}

func (r Rect) Empty() bool { return r.W == 0 || r.H == 0 }

func (r Rect) Right() int32  { return r.X + int32(r.W) }
func (r Rect) Bottom() int32 { return r.Y + int32(r.H) }

// Intersects reports whether r and o share any pixel.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Intersect returns the overlapping region of r and o, and false if they
// don't overlap.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	if !r.Intersects(o) {
		return Rect{}, false
	}
	x0 := max32(r.X, o.X)
	y0 := max32(r.Y, o.Y)
	x1 := min32(r.Right(), o.Right())
	y1 := min32(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: uint32(x1 - x0), H: uint32(y1 - y0)}, true
}

// Union returns the smallest rectangle containing both r and o. An empty
// operand is treated as the identity.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min32(r.X, o.X)
	y0 := min32(r.Y, o.Y)
	x1 := max32(r.Right(), o.Right())
	y1 := max32(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: uint32(x1 - x0), H: uint32(y1 - y0)}
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	if o.Empty() {
		return true
	}
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Translate returns r shifted by (dx, dy), e.g. from surface-local to
// screen-space coordinates.
func (r Rect) Translate(dx, dy int32) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Adjacent reports whether r and o touch or overlap, for damage-region
// merge-on-adjacency coalescing.
func (r Rect) Adjacent(o Rect) bool {
	if r.Intersects(o) {
		return true
	}
	touchesX := r.X == o.Right() || o.X == r.Right()
	touchesY := r.Y == o.Bottom() || o.Y == r.Bottom()
	overlapsY := r.Y < o.Bottom() && o.Y < r.Bottom()
	overlapsX := r.X < o.Right() && o.X < r.Right()
	return (touchesX && overlapsY) || (touchesY && overlapsX)
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// Point is an integer pixel offset, used for subsurface placement and
// output geometry.
type Point struct{ X, Y int32 }

// Size is an unsigned pixel extent.
type Size struct{ W, H uint32 }
