package render

import (
	"github.com/axiomwm/axiom/internal/buffer"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

// WindowInfo is everything the Renderer needs about one mapped surface
// for a single frame: its draw-order position comes from the Window
// Stack, not from this struct.
type WindowInfo struct {
	Surface      ids.SurfaceID
	Rect         geom.Rect // on-screen position and size
	FullyOpaque  bool      // opacity == 1 and no partial-alpha opaque region
	Opacity      float32
}

// Renderer drains pending texture uploads, culls occluded windows, and
// issues scissor-bounded textured-quad draws through a Backend.
type Renderer struct {
	backend  Backend
	textures map[ids.SurfaceID]ids.TextureID
}

func NewRenderer(backend Backend) *Renderer {
	return &Renderer{backend: backend, textures: make(map[ids.SurfaceID]ids.TextureID)}
}

func (r *Renderer) textureFor(surf ids.SurfaceID) ids.TextureID {
	if t, ok := r.textures[surf]; ok {
		return t
	}
	t := ids.TextureID(surf)
	r.textures[surf] = t
	return t
}

// DrainUploads pushes every queued texture update to the backend,
// allocating/reusing a texture keyed by surface id.
func (r *Renderer) DrainUploads(uploads []buffer.Upload) error {
	for _, u := range uploads {
		tex := r.textureFor(u.Surface)
		if err := r.backend.UploadTexture(tex, u.Pixels, u.Width, u.Height, u.Damage); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) DestroyTexture(surf ids.SurfaceID) {
	if t, ok := r.textures[surf]; ok {
		r.backend.DestroyTexture(t)
		delete(r.textures, surf)
	}
}

// occludedForRect reports whether some fully opaque window above index i
// in draw order fully contains rect — meaning a window at i would be
// completely hidden for that rect specifically, even though its own
// bounds reach well outside it. Culling must be scoped to the scissor
// rect being drawn, not a below-window's whole rect: a window can be
// occluded for one damage region and visible for another.
func occludedForRect(order []ids.SurfaceID, windows map[ids.SurfaceID]WindowInfo, i int, rect geom.Rect) bool {
	for j := i + 1; j < len(order); j++ {
		above, ok := windows[order[j]]
		if !ok || !above.FullyOpaque {
			continue
		}
		if above.Rect.Contains(rect) {
			return true
		}
	}
	return false
}

// RenderFrame draws every non-culled, damage-intersecting window for
// each screen-space damage region, bottom-to-top. An empty damageRegions
// list performs zero draw calls and is not an error.
func (r *Renderer) RenderFrame(order []ids.SurfaceID, windows map[ids.SurfaceID]WindowInfo, damageRegions []geom.Rect, outputSize geom.Size) error {
	if len(damageRegions) == 0 {
		return nil
	}

	outputBounds := geom.Rect{X: 0, Y: 0, W: outputSize.W, H: outputSize.H}

	var draws []Draw
	for _, region := range damageRegions {
		scissor, ok := region.Intersect(outputBounds)
		if !ok {
			continue
		}
		for i, surf := range order {
			win, ok := windows[surf]
			if !ok || !win.Rect.Intersects(scissor) {
				continue
			}
			if occludedForRect(order, windows, i, scissor) {
				continue
			}
			draws = append(draws, Draw{
				Texture: r.textureFor(surf),
				SrcRect: geom.Rect{X: 0, Y: 0, W: win.Rect.W, H: win.Rect.H},
				DstRect: win.Rect,
				Opacity: win.Opacity,
				Scissor: scissor,
			})
		}
	}
	return r.backend.PresentFrame(outputSize, draws)
}
