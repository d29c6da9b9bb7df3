// Package software implements a CPU-rendered Backend over SDL2 that
// draws into a visible SDL window, used as a debug and reference
// backend when no GPU backend is available. It uploads RGBA8 pixels straight to an SDL texture and
// draws scissored, textured quads through the SDL renderer.
package software

import (
	"fmt"

	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
	"github.com/axiomwm/axiom/internal/render"
	"github.com/veandco/go-sdl2/sdl"
)

// Backend implements render.Backend on top of an SDL2 window and
// accelerated renderer.
type Backend struct {
	win      *sdl.Window
	renderer *sdl.Renderer
	textures map[ids.TextureID]*sdl.Texture
	sizes    map[ids.TextureID]geom.Size
	vsyncCB  func()
}

func New(title string, width, height int32) (*Backend, error) {
	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, width, height, sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	renderer, err := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	return &Backend{
		win:      win,
		renderer: renderer,
		textures: make(map[ids.TextureID]*sdl.Texture),
		sizes:    make(map[ids.TextureID]geom.Size),
	}, nil
}

func (b *Backend) Close() {
	for _, tex := range b.textures {
		tex.Destroy()
	}
	b.renderer.Destroy()
	b.win.Destroy()
}

// UploadTexture writes pixels into an SDL streaming texture, allocating
// one keyed by id on first use or on a size change.
func (b *Backend) UploadTexture(id ids.TextureID, pixels []byte, width, height uint32, damage *geom.Rect) error {
	size, ok := b.sizes[id]
	if tex, exists := b.textures[id]; !exists || !ok || size.W != width || size.H != height {
		if exists {
			tex.Destroy()
		}
		newTex, err := b.renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING, int32(width), int32(height))
		if err != nil {
			return fmt.Errorf("create texture: %w", err)
		}
		b.textures[id] = newTex
		b.sizes[id] = geom.Size{W: width, H: height}
	}
	tex := b.textures[id]

	if damage == nil {
		return tex.Update(nil, pixels, int(width*4))
	}
	rect := &sdl.Rect{X: damage.X, Y: damage.Y, W: int32(damage.W), H: int32(damage.H)}
	rowStride := int(width * 4)
	return tex.Update(rect, rowSlice(pixels, rowStride, damage), rowStride)
}

// rowSlice narrows a full-image RGBA8 buffer so it starts at the damage
// rect's top-left pixel and ends with the rect's last row, since
// sdl.Texture.Update expects pixels scoped to rect (rows still advance by
// the full-image rowStride). Out-of-range rects get the whole buffer.
func rowSlice(pixels []byte, rowStride int, damage *geom.Rect) []byte {
	start := int(damage.Y)*rowStride + int(damage.X)*4
	end := (int(damage.Y) + int(damage.H)) * rowStride
	if start < 0 || start > end || end > len(pixels) {
		return pixels
	}
	return pixels[start:end]
}

func (b *Backend) DestroyTexture(id ids.TextureID) {
	if tex, ok := b.textures[id]; ok {
		tex.Destroy()
		delete(b.textures, id)
		delete(b.sizes, id)
	}
}

func (b *Backend) OnVsync(cb func()) { b.vsyncCB = cb }

// PresentFrame clears and issues one Copy per draw with the requested
// scissor clip, then flips the renderer.
func (b *Backend) PresentFrame(outputSize geom.Size, draws []render.Draw) error {
	b.renderer.SetDrawColor(0, 0, 0, 255)
	b.renderer.Clear()

	for _, d := range draws {
		tex, ok := b.textures[d.Texture]
		if !ok {
			continue
		}
		b.renderer.SetClipRect(&sdl.Rect{X: d.Scissor.X, Y: d.Scissor.Y, W: int32(d.Scissor.W), H: int32(d.Scissor.H)})
		src := &sdl.Rect{X: d.SrcRect.X, Y: d.SrcRect.Y, W: int32(d.SrcRect.W), H: int32(d.SrcRect.H)}
		dst := &sdl.Rect{X: d.DstRect.X, Y: d.DstRect.Y, W: int32(d.DstRect.W), H: int32(d.DstRect.H)}
		tex.SetAlphaMod(uint8(d.Opacity * 255))
		if err := b.renderer.Copy(tex, src, dst); err != nil {
			return fmt.Errorf("copy draw: %w", err)
		}
	}
	b.renderer.SetClipRect(nil)
	b.renderer.Present()
	if b.vsyncCB != nil {
		b.vsyncCB()
	}
	return nil
}

var _ render.Backend = (*Backend)(nil)
