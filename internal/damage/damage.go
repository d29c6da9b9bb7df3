// Package damage tracks per-surface damage regions and accumulates them,
// each frame, into a screen-space region list for the renderer.
package damage

import (
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

// WindowDamage is one surface's accumulated damage since its last render.
type WindowDamage struct {
	Regions     []geom.Rect
	FullDamage  bool
	FrameNumber uint64
}

func (w *WindowDamage) empty() bool {
	return !w.FullDamage && len(w.Regions) == 0
}

// Tracker owns every live surface's WindowDamage and the previous frame's
// screen-space positions, so moving or hiding a window can dirty the area
// it vacated.
type Tracker struct {
	maxRegions int
	windows    map[ids.SurfaceID]*WindowDamage
	lastRect   map[ids.SurfaceID]geom.Rect // screen-space rect as of the last render
	frame      uint64
}

func NewTracker(maxRegions int) *Tracker {
	return &Tracker{
		maxRegions: maxRegions,
		windows:    make(map[ids.SurfaceID]*WindowDamage),
		lastRect:   make(map[ids.SurfaceID]geom.Rect),
	}
}

func (t *Tracker) windowOf(surf ids.SurfaceID) *WindowDamage {
	w, ok := t.windows[surf]
	if !ok {
		w = &WindowDamage{}
		t.windows[surf] = w
	}
	return w
}

// AddRegions records surface-local damage rectangles from a commit. An
// empty slice with bufferAttached true means a new buffer with no
// explicit damage — the whole surface is marked dirty.
func (t *Tracker) AddRegions(surf ids.SurfaceID, regions []geom.Rect, bufferAttached bool) {
	w := t.windowOf(surf)
	if len(regions) == 0 {
		if bufferAttached {
			w.FullDamage = true
		}
		return
	}
	w.Regions = append(w.Regions, regions...)
	if len(w.Regions) > t.maxRegions {
		w.FullDamage = true
		w.Regions = nil
	}
}

// MarkFullDamage marks a surface fully dirty — first map, geometry
// mutation (move/resize/raise/lower/hide/show), or role transitions.
func (t *Tracker) MarkFullDamage(surf ids.SurfaceID) {
	w := t.windowOf(surf)
	w.FullDamage = true
	w.Regions = nil
}

// MarkVacated dirties the screen-space area a surface previously covered,
// so moving or hiding a window also repaints what it uncovers.
func (t *Tracker) MarkVacated(surf ids.SurfaceID) (vacated geom.Rect, had bool) {
	r, ok := t.lastRect[surf]
	if !ok {
		return geom.Rect{}, false
	}
	return r, true
}

// RemoveSurface drops all tracked damage and position history for a
// destroyed surface.
func (t *Tracker) RemoveSurface(surf ids.SurfaceID) {
	delete(t.windows, surf)
	delete(t.lastRect, surf)
}

// HasDamage reports whether any tracked surface currently has damage —
// the Render Scheduler's gate for skipping an empty frame entirely.
func (t *Tracker) HasDamage() bool {
	for _, w := range t.windows {
		if !w.empty() {
			return true
		}
	}
	return false
}

// ComputeFrameDamage translates every damaged surface's regions into
// screen space using its current on-screen rect, unions them, and
// optionally merges adjacent/overlapping regions. Full-damage surfaces
// contribute their entire on-screen rect. Surfaces with no damage, or
// with no rect in positions, are skipped.
func ComputeFrameDamage(t *Tracker, positions map[ids.SurfaceID]geom.Rect, mergeAdjacent bool) []geom.Rect {
	var out []geom.Rect
	for surf, w := range t.windows {
		if w.empty() {
			continue
		}
		rect, ok := positions[surf]
		if !ok {
			continue
		}
		if w.FullDamage {
			out = append(out, rect)
		} else {
			for _, r := range w.Regions {
				translated := geom.Rect{X: rect.X + r.X, Y: rect.Y + r.Y, W: r.W, H: r.H}
				out = append(out, translated)
			}
		}
	}
	if mergeAdjacent {
		out = coalesceAdjacent(out)
	}
	return out
}

func coalesceAdjacent(regions []geom.Rect) []geom.Rect {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(regions); i++ {
			for j := i + 1; j < len(regions); j++ {
				if regions[i].Adjacent(regions[j]) {
					regions[i] = regions[i].Union(regions[j])
					regions = append(regions[:j], regions[j+1:]...)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
	}
	return regions
}

// EndFrame records the current screen rect of every tracked surface
// present in positions (damaged or not) for the next frame's vacate check, clears per-window damage, and advances the
// frame counter. Call after a successful present.
func (t *Tracker) EndFrame(positions map[ids.SurfaceID]geom.Rect) {
	t.frame++
	for surf, w := range t.windows {
		if rect, ok := positions[surf]; ok {
			t.lastRect[surf] = rect
		}
		w.Regions = nil
		w.FullDamage = false
		w.FrameNumber = t.frame
	}
}

func (t *Tracker) CurrentFrame() uint64 { return t.frame }
