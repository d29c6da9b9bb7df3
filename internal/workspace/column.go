package workspace

import "github.com/axiomwm/axiom/internal/ids"

type LayoutMode int

const (
	LayoutSingle LayoutMode = iota
	LayoutSplitVertical
)

// Column is an ordered group of surfaces sharing one horizontal slot in
// the strip.
type Column struct {
	ID      ids.ColumnID
	Members []ids.SurfaceID
	Layout  LayoutMode
	// Width is the column's own intrinsic width in pixels, derived from
	// its members or a default, clamped to [minWidth, maxWidth].
	Width int
}

func (c *Column) contains(surf ids.SurfaceID) bool {
	for _, m := range c.Members {
		if m == surf {
			return true
		}
	}
	return false
}

func (c *Column) removeMember(surf ids.SurfaceID) {
	for i, m := range c.Members {
		if m == surf {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return
		}
	}
}
