package buffer

import (
	"image"
	"image/color"

	"github.com/KononK/resize"
)

// ScaleViewport resizes a canonical RGBA8 image from its source dimensions
// to a viewporter-requested destination size, for surfaces whose
// viewport destination differs from the attached buffer's own size.
// Buffers with no viewport set skip this path entirely and upload as-is.
func ScaleViewport(rgba []byte, srcW, srcH, dstW, dstH uint32) []byte {
	if srcW == dstW && srcH == dstH {
		return rgba
	}
	img := &image.NRGBA{
		Pix:    rgba,
		Stride: int(srcW) * 4,
		Rect:   image.Rect(0, 0, int(srcW), int(srcH)),
	}
	scaled := resize.Resize(uint(dstW), uint(dstH), img, resize.Bilinear)

	out := make([]byte, dstW*dstH*4)
	bounds := scaled.Bounds()
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := scaled.At(x, y).RGBA()
			c := color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
			out[i], out[i+1], out[i+2], out[i+3] = c.R, c.G, c.B, c.A
			i += 4
		}
	}
	return out
}
