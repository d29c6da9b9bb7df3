// Package stack implements the global Z-order across all mapped
// surfaces: a bottom-to-top sequence with an auxiliary position index for
// O(1) lookup.
package stack

import "github.com/axiomwm/axiom/internal/ids"

// Stack is a bottom-to-top ordered sequence of surface ids with a
// parallel index. Invariant: index[stack[i]] == i for every i; no
// duplicates; removal of a missing id is a no-op.
type Stack struct {
	order []ids.SurfaceID
	index map[ids.SurfaceID]int
}

func New() *Stack {
	return &Stack{index: make(map[ids.SurfaceID]int)}
}

// Push appends to the top; fails silently on duplicate.
func (s *Stack) Push(id ids.SurfaceID) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = len(s.order)
	s.order = append(s.order, id)
}

// Remove deletes id and rebuilds the index for every entry after it.
func (s *Stack) Remove(id ids.SurfaceID) {
	pos, ok := s.index[id]
	if !ok {
		return
	}
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.order); i++ {
		s.index[s.order[i]] = i
	}
}

func (s *Stack) RaiseToTop(id ids.SurfaceID) {
	if _, ok := s.index[id]; !ok {
		return
	}
	s.Remove(id)
	s.Push(id)
}

func (s *Stack) LowerToBottom(id ids.SurfaceID) {
	if _, ok := s.index[id]; !ok {
		return
	}
	s.Remove(id)
	s.order = append([]ids.SurfaceID{id}, s.order...)
	for i, sid := range s.order {
		s.index[sid] = i
	}
}

// RaiseAbove places a immediately above b.
func (s *Stack) RaiseAbove(a, b ids.SurfaceID) {
	if _, ok := s.index[a]; !ok {
		return
	}
	if _, ok := s.index[b]; !ok {
		return
	}
	s.Remove(a)
	pos := s.index[b]
	s.order = append(s.order, 0)
	copy(s.order[pos+2:], s.order[pos+1:])
	s.order[pos+1] = a
	for i := pos + 1; i < len(s.order); i++ {
		s.index[s.order[i]] = i
	}
}

// WindowsAbove returns the slice of ids above id, bottom-to-top.
func (s *Stack) WindowsAbove(id ids.SurfaceID) []ids.SurfaceID {
	pos, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.order[pos+1:]
}

// WindowsBelow returns the slice of ids below id, bottom-to-top.
func (s *Stack) WindowsBelow(id ids.SurfaceID) []ids.SurfaceID {
	pos, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.order[:pos]
}

func (s *Stack) PositionOf(id ids.SurfaceID) (int, bool) {
	pos, ok := s.index[id]
	return pos, ok
}

// Order returns the full bottom-to-top sequence, for renderer iteration.
func (s *Stack) Order() []ids.SurfaceID { return s.order }

func (s *Stack) Len() int { return len(s.order) }

// checkInvariant reports whether the index agrees with the sequence;
// exercised by tests, not called on any hot path.
func (s *Stack) checkInvariant() bool {
	if len(s.order) != len(s.index) {
		return false
	}
	for i, id := range s.order {
		if s.index[id] != i {
			return false
		}
	}
	return true
}
