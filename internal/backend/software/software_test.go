package software

import (
	"testing"

	"github.com/axiomwm/axiom/internal/geom"
)

func TestRowSliceNarrowsToDamagedRows(t *testing.T) {
	stride := 4 * 4 // width 4, 4 bytes/pixel
	pixels := make([]byte, stride*10)
	for i := range pixels {
		pixels[i] = byte(i % 256)
	}
	damage := &geom.Rect{X: 0, Y: 2, W: 4, H: 3}
	got := rowSlice(pixels, stride, damage)
	want := pixels[2*stride : 5*stride]
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestRowSliceFallsBackOnOutOfRange(t *testing.T) {
	pixels := make([]byte, 16)
	damage := &geom.Rect{X: 0, Y: 100, W: 4, H: 4}
	got := rowSlice(pixels, 16, damage)
	if len(got) != len(pixels) {
		t.Fatal("expected fallback to the full buffer when damage rect is out of range")
	}
}
