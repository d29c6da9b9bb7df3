package protocol

import "github.com/axiomwm/axiom/internal/buffer"

// wl_shm.format codes: the two low values (ARGB8888 = 0, XRGB8888 = 1)
// are special-cased small integers, everything else is a little-endian
// fourcc.
const (
	shmFormatARGB8888 = 0
	shmFormatXRGB8888 = 1
)

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var (
	shmFormatABGR8888 = fourcc('A', 'B', '2', '4')
	shmFormatXBGR8888 = fourcc('X', 'B', '2', '4')
	shmFormatRGB565   = fourcc('R', 'G', '1', '6')
	shmFormatBGR565   = fourcc('B', 'G', '1', '6')
)

// decodeShmFormat maps a wl_shm.format code to this compositor's
// canonical Format, or false if the code is unsupported.
func decodeShmFormat(code uint32) (buffer.Format, bool) {
	switch code {
	case shmFormatARGB8888:
		return buffer.FormatARGB8888, true
	case shmFormatXRGB8888:
		return buffer.FormatXRGB8888, true
	case shmFormatABGR8888:
		return buffer.FormatABGR8888, true
	case shmFormatXBGR8888:
		return buffer.FormatXBGR8888, true
	case shmFormatRGB565:
		return buffer.FormatRGB565, true
	case shmFormatBGR565:
		return buffer.FormatBGR565, true
	default:
		return 0, false
	}
}
