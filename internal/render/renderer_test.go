package render

import (
	"testing"

	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

type fakeBackend struct {
	presented   int
	lastDraws   []Draw
	uploads     int
	destroyed   []ids.TextureID
	vsyncCB     func()
}

func (f *fakeBackend) PresentFrame(outputSize geom.Size, draws []Draw) error {
	f.presented++
	f.lastDraws = draws
	return nil
}
func (f *fakeBackend) UploadTexture(id ids.TextureID, pixels []byte, w, h uint32, damage *geom.Rect) error {
	f.uploads++
	return nil
}
func (f *fakeBackend) DestroyTexture(id ids.TextureID) { f.destroyed = append(f.destroyed, id) }
func (f *fakeBackend) OnVsync(cb func())               { f.vsyncCB = cb }

func TestEmptyDamagePerformsZeroDrawCalls(t *testing.T) {
	be := &fakeBackend{}
	r := NewRenderer(be)
	err := r.RenderFrame(nil, nil, nil, geom.Size{W: 1920, H: 1080})
	if err != nil {
		t.Fatal(err)
	}
	if be.presented != 0 {
		t.Fatalf("expected zero PresentFrame calls for empty damage, got %d", be.presented)
	}
}

func TestOcclusionCullsFullyCoveredWindow(t *testing.T) {
	be := &fakeBackend{}
	r := NewRenderer(be)

	order := []ids.SurfaceID{1, 2}
	windows := map[ids.SurfaceID]WindowInfo{
		1: {Surface: 1, Rect: geom.Rect{X: 0, Y: 0, W: 100, H: 100}, FullyOpaque: false, Opacity: 1},
		2: {Surface: 2, Rect: geom.Rect{X: 0, Y: 0, W: 200, H: 200}, FullyOpaque: true, Opacity: 1},
	}
	damage := []geom.Rect{{X: 0, Y: 0, W: 200, H: 200}}

	if err := r.RenderFrame(order, windows, damage, geom.Size{W: 1920, H: 1080}); err != nil {
		t.Fatal(err)
	}
	for _, d := range be.lastDraws {
		if d.Texture == r.textureFor(1) {
			t.Fatal("window fully covered by an opaque window above it should be culled")
		}
	}
}

// TestOcclusionCullsPerDamageRegionNotWholeRect is spec.md §8 scenario S4
// verbatim: W1 (0,0,1920,1080) is far larger than the fully opaque W2
// above it (100,100,400,300), so W1 is never fully contained by W2 and
// must never be culled outright — but the single damage rect
// (150,150,10,10) lies entirely inside W2, so W1 must be culled for
// that rect specifically. Exactly one draw call is expected.
func TestOcclusionCullsPerDamageRegionNotWholeRect(t *testing.T) {
	be := &fakeBackend{}
	r := NewRenderer(be)

	order := []ids.SurfaceID{1, 2}
	windows := map[ids.SurfaceID]WindowInfo{
		1: {Surface: 1, Rect: geom.Rect{X: 0, Y: 0, W: 1920, H: 1080}, FullyOpaque: true, Opacity: 1},
		2: {Surface: 2, Rect: geom.Rect{X: 100, Y: 100, W: 400, H: 300}, FullyOpaque: true, Opacity: 1},
	}
	damage := []geom.Rect{{X: 150, Y: 150, W: 10, H: 10}}

	if err := r.RenderFrame(order, windows, damage, geom.Size{W: 1920, H: 1080}); err != nil {
		t.Fatal(err)
	}
	if len(be.lastDraws) != 1 {
		t.Fatalf("expected exactly one draw for the damage rect fully covered by W2, got %d: %+v", len(be.lastDraws), be.lastDraws)
	}
	if be.lastDraws[0].Texture != r.textureFor(2) {
		t.Fatalf("expected the surviving draw to be W2 (the occluder), got texture %v", be.lastDraws[0].Texture)
	}
}

func TestDrawsOnlyWindowsIntersectingDamage(t *testing.T) {
	be := &fakeBackend{}
	r := NewRenderer(be)
	order := []ids.SurfaceID{1, 2}
	windows := map[ids.SurfaceID]WindowInfo{
		1: {Surface: 1, Rect: geom.Rect{X: 0, Y: 0, W: 100, H: 100}, Opacity: 1},
		2: {Surface: 2, Rect: geom.Rect{X: 900, Y: 900, W: 100, H: 100}, Opacity: 1},
	}
	damage := []geom.Rect{{X: 0, Y: 0, W: 50, H: 50}}

	if err := r.RenderFrame(order, windows, damage, geom.Size{W: 1920, H: 1080}); err != nil {
		t.Fatal(err)
	}
	if len(be.lastDraws) != 1 || be.lastDraws[0].Texture != r.textureFor(1) {
		t.Fatalf("expected exactly one draw for the intersecting window, got %+v", be.lastDraws)
	}
}
