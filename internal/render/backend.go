// Package render drains the pending texture-upload queue, computes what
// needs to be redrawn, culls occluded windows, and issues draws against a
// pluggable Backend so the core never depends on a concrete GPU API.
package render

import (
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

// Draw is one textured quad submission, in output (screen) space.
type Draw struct {
	Texture  ids.TextureID
	SrcRect  geom.Rect
	DstRect  geom.Rect
	Opacity  float32
	Scissor  geom.Rect
	Effects  Effects
}

// Effects carries opaque per-draw shader parameters; this package treats
// the shaders that consume them as external.
type Effects struct {
	CornerRadiusPx float32
	ShadowBlurPx   float32
	ShadowOffset   geom.Point
	Opacity        float32
	BlurBehind     bool
}

// Backend is the internal boundary to a concrete rendering backend
// (software/SDL2 for debugging, GPU for production).
type Backend interface {
	PresentFrame(outputSize geom.Size, draws []Draw) error
	UploadTexture(id ids.TextureID, pixelsRGBA8SRGB []byte, width, height uint32, damage *geom.Rect) error
	DestroyTexture(id ids.TextureID)
	OnVsync(callback func())
}
