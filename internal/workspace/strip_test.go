package workspace

import (
	"testing"

	"github.com/axiomwm/axiom/internal/ids"
)

func newTestStrip() *Strip {
	return NewStrip(&ids.Generator{}, 1920, 12, 800, 240, 1920, 1e-3, 220.0, 28.0)
}

func TestMapWindowCreatesColumnAndFocuses(t *testing.T) {
	s := newTestStrip()
	surf := ids.SurfaceID(1)
	col := s.MapWindow(surf, 0, PlacementAppendRight)

	got, ok := s.ColumnOf(surf)
	if !ok || got != col {
		t.Fatal("expected mapped surface to be found in its column")
	}
	fc, ok := s.FocusedColumn()
	if !ok || fc != col {
		t.Fatal("expected newly mapped column to become focused")
	}
}

func TestEveryMappedSurfaceHasExactlyOneColumn(t *testing.T) {
	s := newTestStrip()
	surfaces := []ids.SurfaceID{1, 2, 3}
	for _, surf := range surfaces {
		s.MapWindow(surf, 0, PlacementAppendRight)
	}
	for _, surf := range surfaces {
		count := 0
		for _, col := range s.Columns() {
			if col.contains(surf) {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("surface %v found in %d columns, want 1", surf, count)
		}
	}
}

func TestUnmapFocusedColumnShiftsFocus(t *testing.T) {
	s := newTestStrip()
	s.MapWindow(1, 0, PlacementAppendRight)
	s.MapWindow(2, 0, PlacementAppendRight)
	// focus is now on column holding surface 2 (appended after focused).
	s.UnmapWindow(2)
	fc, ok := s.FocusedColumn()
	if !ok {
		t.Fatal("expected a focused column to remain")
	}
	if !fc.contains(1) {
		t.Fatal("expected focus to shift to the remaining column")
	}
}

func TestUnmapLastWindowResetsScroll(t *testing.T) {
	s := newTestStrip()
	s.MapWindow(1, 0, PlacementAppendRight)
	s.ScrollTo(3)
	s.UnmapWindow(1)
	if s.scrollPosition != 0 || s.targetScroll != 0 {
		t.Fatalf("expected scroll reset to 0 on empty strip, got pos=%v target=%v", s.scrollPosition, s.targetScroll)
	}
	if _, ok := s.FocusedColumn(); ok {
		t.Fatal("expected no focused column on empty strip")
	}
}

func TestTickSettlesWithinEpsilon(t *testing.T) {
	s := newTestStrip()
	s.MapWindow(1, 0, PlacementAppendRight)
	s.MapWindow(2, 0, PlacementAppendRight)
	s.ScrollTo(1)

	settled := false
	for i := 0; i < 1000; i++ {
		if !s.Tick(1.0 / 60.0) {
			settled = true
			break
		}
	}
	if !settled {
		t.Fatal("expected spring animation to settle within 1000 ticks")
	}
	if absf(s.scrollPosition-1.0) > 1e-2 {
		t.Fatalf("expected scroll_position near target 1.0, got %v", s.scrollPosition)
	}
}

func TestLayoutMarksOffscreenColumns(t *testing.T) {
	s := newTestStrip()
	s.MapWindow(1, 0, PlacementAppendRight)
	s.MapWindow(2, 0, PlacementAppendRight)
	s.MapWindow(3, 0, PlacementAppendRight)
	// scroll far enough that the first column leaves the viewport
	s.scrollPosition = 10
	placements := s.Layout(1080)
	anyOffscreen := false
	for _, p := range placements {
		if p.OffScreen {
			anyOffscreen = true
		}
	}
	if !anyOffscreen {
		t.Fatal("expected some column to be marked off-screen after a large scroll")
	}
}
