// Package ids defines the stable integer handles used throughout the
// compositor instead of direct references, so that cyclic structures
// (subsurface trees, popup chains) and cross-package lookups don't
// require shared ownership or lifetimes.
package ids

import "sync/atomic"

type ClientID uint64
type ObjectID uint64
type SurfaceID uint64
type BufferID uint64
type TextureID uint64
type ColumnID uint64

// Generator hands out monotonically increasing ids from one counter
// shared by every id kind, so an id is unique across kinds as well.
// Zero is never issued, so the zero value of any id type means "none".
type Generator struct {
	next uint64
}

func (g *Generator) Next() uint64 {
	return atomic.AddUint64(&g.next, 1)
}

func (g *Generator) NextClient() ClientID   { return ClientID(g.Next()) }
func (g *Generator) NextObject() ObjectID   { return ObjectID(g.Next()) }
func (g *Generator) NextSurface() SurfaceID { return SurfaceID(g.Next()) }
func (g *Generator) NextBuffer() BufferID   { return BufferID(g.Next()) }
func (g *Generator) NextTexture() TextureID { return TextureID(g.Next()) }
func (g *Generator) NextColumn() ColumnID   { return ColumnID(g.Next()) }
