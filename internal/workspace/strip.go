// Package workspace implements the scrollable-strip layout: an ordered
// sequence of Columns addressed by a continuous scroll position, with a
// spring-driven scroll animation and focus-follows-column semantics.
package workspace

import (
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

// PlacementPolicy controls where a newly mapped window's column goes.
type PlacementPolicy int

const (
	PlacementAppendRight PlacementPolicy = iota
	PlacementJoinFocusedSplit
)

// Strip holds the deque of Columns and the continuous scroll state.
type Strip struct {
	gen *ids.Generator

	columns []*Column
	focus   int // index into columns; -1 if empty

	scrollPosition float64 // in column-width units
	targetScroll   float64
	velocity       float64

	viewportWidth int
	gap           int
	defaultWidth  int
	minWidth      int
	maxWidth      int

	settleEpsilon     float64
	springStiffness   float64
	springDamping     float64
	columnWidthUnit   float64 // pixels per one unit of scroll_position
	inMotion          bool
}

func NewStrip(gen *ids.Generator, viewportWidth, gap, defaultWidth, minWidth, maxWidth int, settleEpsilon, stiffness, damping float64) *Strip {
	return &Strip{
		gen:             gen,
		focus:           -1,
		viewportWidth:   viewportWidth,
		gap:             gap,
		defaultWidth:    defaultWidth,
		minWidth:        minWidth,
		maxWidth:        maxWidth,
		settleEpsilon:   settleEpsilon,
		springStiffness: stiffness,
		springDamping:   damping,
		columnWidthUnit: float64(defaultWidth + gap),
	}
}

func (s *Strip) clampWidth(w int) int {
	if w < s.minWidth {
		return s.minWidth
	}
	if w > s.maxWidth {
		return s.maxWidth
	}
	return w
}

// MapWindow places a newly mapped surface into a column per policy,
// returning the column it landed in.
func (s *Strip) MapWindow(surf ids.SurfaceID, preferredWidth int, policy PlacementPolicy) *Column {
	w := preferredWidth
	if w == 0 {
		w = s.defaultWidth
	}
	w = s.clampWidth(w)

	if policy == PlacementJoinFocusedSplit && s.focus >= 0 {
		col := s.columns[s.focus]
		col.Members = append(col.Members, surf)
		col.Layout = LayoutSplitVertical
		return col
	}

	col := &Column{ID: ids.ColumnID(s.gen.NextColumn()), Members: []ids.SurfaceID{surf}, Width: w}
	insertAt := len(s.columns)
	if s.focus >= 0 {
		insertAt = s.focus + 1
	}
	s.columns = append(s.columns, nil)
	copy(s.columns[insertAt+1:], s.columns[insertAt:])
	s.columns[insertAt] = col
	s.focus = insertAt
	return col
}

// UnmapWindow removes a surface from whichever column holds it, dropping
// the column if it becomes empty. Per edge-case handling: if the removed
// column was focused, focus shifts to the column now at its position, or
// the new last column if none exists; an emptied strip resets scroll to 0.
func (s *Strip) UnmapWindow(surf ids.SurfaceID) {
	for i, col := range s.columns {
		if !col.contains(surf) {
			continue
		}
		col.removeMember(surf)
		if len(col.Members) == 0 {
			s.columns = append(s.columns[:i], s.columns[i+1:]...)
			if len(s.columns) == 0 {
				s.focus = -1
				s.scrollPosition = 0
				s.targetScroll = 0
				s.velocity = 0
				return
			}
			if s.focus >= len(s.columns) {
				s.focus = len(s.columns) - 1
			}
		}
		return
	}
}

// ColumnOf reports which column, if any, currently holds surf —
// testable property: every mapped surface is in exactly one column.
func (s *Strip) ColumnOf(surf ids.SurfaceID) (*Column, bool) {
	for _, col := range s.columns {
		if col.contains(surf) {
			return col, true
		}
	}
	return nil, false
}

func (s *Strip) FocusedColumn() (*Column, bool) {
	if s.focus < 0 || s.focus >= len(s.columns) {
		return nil, false
	}
	return s.columns[s.focus], true
}

func (s *Strip) FocusIndex() int { return s.focus }

// FocusColumn updates the focused index and requests a scroll to bring
// it on-screen.
func (s *Strip) FocusColumn(index int) {
	if index < 0 || index >= len(s.columns) {
		return
	}
	s.focus = index
	s.ScrollTo(index)
}

// MoveFocusedColumn swaps the focused column with its neighbor at
// delta (+1 or -1) and re-layouts.
func (s *Strip) MoveFocusedColumn(delta int) {
	if s.focus < 0 {
		return
	}
	other := s.focus + delta
	if other < 0 || other >= len(s.columns) {
		return
	}
	s.columns[s.focus], s.columns[other] = s.columns[other], s.columns[s.focus]
	s.focus = other
}

// ScrollTo sets target_scroll; the next Tick calls drive scroll_position
// toward it. Repeated calls during flight simply update the target —
// velocity carries over, matching "accumulates if repeated presses
// arrive during flight".
func (s *Strip) ScrollTo(columnIndex int) {
	s.targetScroll = float64(columnIndex)
	s.inMotion = true
}

// Tick advances the spring integrator by dt and reports whether the
// whole viewport should be marked dirty (true while still in motion).
func (s *Strip) Tick(dt float64) (stillMoving bool) {
	if !s.inMotion {
		return false
	}
	accel := s.springStiffness*(s.targetScroll-s.scrollPosition) - s.springDamping*s.velocity
	s.velocity += accel * dt
	s.scrollPosition += s.velocity * dt

	if absf(s.scrollPosition-s.targetScroll) < s.settleEpsilon && absf(s.velocity) < s.settleEpsilon {
		s.scrollPosition = s.targetScroll
		s.velocity = 0
		s.inMotion = false
		return false
	}
	return true
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Layout computes each column's screen-space rect given the current
// scroll position. Columns whose rect doesn't intersect the viewport are
// reported as off-screen so callers can skip rendering/upload work for
// them.
type Placement struct {
	Column    *Column
	Rect      geom.Rect
	OffScreen bool
}

func (s *Strip) Layout(outputHeight int) []Placement {
	out := make([]Placement, 0, len(s.columns))
	cumulative := 0
	offsetPx := s.scrollPosition * s.columnWidthUnit
	for _, col := range s.columns {
		x := cumulative - int(offsetPx)
		rect := geom.Rect{X: int32(x), Y: 0, W: uint32(col.Width), H: uint32(outputHeight)}
		viewport := geom.Rect{X: 0, Y: 0, W: uint32(s.viewportWidth), H: uint32(outputHeight)}
		out = append(out, Placement{Column: col, Rect: rect, OffScreen: !rect.Intersects(viewport)})
		cumulative += col.Width + s.gap
	}
	return out
}

func (s *Strip) Columns() []*Column { return s.columns }
