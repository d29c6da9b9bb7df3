package wgpu

import (
	"math"
	"testing"
)

func TestUniformBytesPacksFieldsLittleEndian(t *testing.T) {
	p := drawParams{
		dstOriginX: 1, dstOriginY: 2,
		dstSizeX: 3, dstSizeY: 4,
		outputSizeX: 5, outputSizeY: 6,
		srcSizeX: 7, srcSizeY: 8,
		opacity: 0.5,
	}
	got := uniformBytes(p)
	if len(got) != 64 {
		t.Fatalf("uniformBytes length = %d, want 64 (std140 uniform block size)", len(got))
	}

	want := []float32{1, 2, 3, 4, 5, 6, 7, 8, 0.5}
	for i, w := range want {
		bits := uint32(got[i*4]) | uint32(got[i*4+1])<<8 | uint32(got[i*4+2])<<16 | uint32(got[i*4+3])<<24
		if math.Float32frombits(bits) != w {
			t.Fatalf("field %d: got %v, want %v", i, math.Float32frombits(bits), w)
		}
	}
}

func TestUniformBytesTailIsZeroed(t *testing.T) {
	got := uniformBytes(drawParams{})
	for i := 9 * 4; i < len(got); i++ {
		if got[i] != 0 {
			t.Fatalf("expected padding byte %d to be zero, got %d", i, got[i])
		}
	}
}
