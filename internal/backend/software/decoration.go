package software

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderTitleBar rasterizes a toplevel's title into a fixed-height RGBA8
// strip for server-side decoration, when the client did not opt into
// drawing its own. Nothing in the compositor calls it, so setting
// ServerSideDecoration on a surface does not by itself draw a title bar.
func RenderTitleBar(title string, width, height int, bg, fg color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, bg)
		}
	}

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(6, height/2+4),
	}
	drawer.DrawString(title)

	return img.Pix
}
