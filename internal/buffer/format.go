package buffer

import (
	"github.com/daaku/swizzle"
)

// Format enumerates the wl_shm.format variants the core accepts for
// CPU-shared buffers: the 32-bit A/X R/G/B orderings and the two 16-bit
// 565 orderings.
type Format int

const (
	FormatARGB8888 Format = iota
	FormatXRGB8888
	FormatABGR8888
	FormatXBGR8888
	FormatRGB565
	FormatBGR565
)

func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGB565, FormatBGR565:
		return 2
	default:
		return 4
	}
}

func (f Format) Supported() bool {
	switch f {
	case FormatARGB8888, FormatXRGB8888, FormatABGR8888, FormatXBGR8888, FormatRGB565, FormatBGR565:
		return true
	default:
		return false
	}
}

// ToCanonicalRGBA converts one row-contiguous pixel buffer (width*height
// pixels, stride bytes per row) from its source Format into canonical
// RGBA8 sRGB, the single pixel format every texture carries once ingested.
//
// ARGB/ABGR byte-order permutation is done with github.com/daaku/swizzle,
// the teacher's dependency for exactly this job (it ships a BGRA helper
// that swaps the R/B lanes of a tightly packed 32-bit pixel buffer
// in-place). A stride-aware per-row copy precedes it whenever
// stride != width*4, since swizzle itself assumes a packed buffer.
func ToCanonicalRGBA(format Format, width, height, stride uint32, src []byte) ([]byte, error) {
	if width == 0 || height == 0 {
		return nil, errUnsupported("zero-dimension buffer")
	}
	if !format.Supported() {
		return nil, errUnsupported("unsupported pixel format")
	}

	switch format {
	case FormatRGB565, FormatBGR565:
		return convert16(format, width, height, stride, src)
	default:
		return convert32(format, width, height, stride, src)
	}
}

func convert32(format Format, width, height, stride uint32, src []byte) ([]byte, error) {
	rowBytes := width * 4
	if uint32(len(src)) < stride*height {
		return nil, errUnsupported("buffer shorter than stride*height")
	}

	dst := make([]byte, rowBytes*height)
	if stride == rowBytes {
		copy(dst, src[:rowBytes*height])
	} else {
		for y := uint32(0); y < height; y++ {
			srcRow := src[y*stride : y*stride+rowBytes]
			dstRow := dst[y*rowBytes : (y+1)*rowBytes]
			copy(dstRow, srcRow)
		}
	}

	switch format {
	case FormatARGB8888, FormatXRGB8888:
		// wl_shm's ARGB8888/XRGB8888 are little-endian 0xAARRGGBB words,
		// i.e. byte order B,G,R,A in memory — swap R and B to land on
		// canonical R,G,B,A.
		swizzle.BGRA(dst)
	case FormatABGR8888, FormatXBGR8888:
		// Already R,G,B,A byte order; no swizzle needed. Alpha is forced
		// opaque for the X-prefixed (no-alpha) variants below.
	}
	if format == FormatXRGB8888 || format == FormatXBGR8888 {
		forceOpaque(dst)
	}
	return dst, nil
}

func convert16(format Format, width, height, stride uint32, src []byte) ([]byte, error) {
	rowBytes := width * 2
	if uint32(len(src)) < stride*height {
		return nil, errUnsupported("buffer shorter than stride*height")
	}
	dst := make([]byte, width*height*4)
	for y := uint32(0); y < height; y++ {
		row := src[y*stride : y*stride+rowBytes]
		for x := uint32(0); x < width; x++ {
			lo, hi := row[x*2], row[x*2+1]
			v := uint16(lo) | uint16(hi)<<8
			var r, g, b uint8
			switch format {
			case FormatRGB565:
				r = expand5(uint8(v >> 11 & 0x1f))
				g = expand6(uint8(v >> 5 & 0x3f))
				b = expand5(uint8(v & 0x1f))
			case FormatBGR565:
				b = expand5(uint8(v >> 11 & 0x1f))
				g = expand6(uint8(v >> 5 & 0x3f))
				r = expand5(uint8(v & 0x1f))
			}
			i := (y*width + x) * 4
			dst[i], dst[i+1], dst[i+2], dst[i+3] = r, g, b, 255
		}
	}
	return dst, nil
}

func expand5(v uint8) uint8 { return (v << 3) | (v >> 2) }
func expand6(v uint8) uint8 { return (v << 2) | (v >> 4) }

func forceOpaque(rgba []byte) {
	for i := 3; i < len(rgba); i += 4 {
		rgba[i] = 255
	}
}

type formatError string

func (e formatError) Error() string { return string(e) }

func errUnsupported(msg string) error { return formatError(msg) }
