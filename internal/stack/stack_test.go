package stack

import (
	"reflect"
	"testing"

	"github.com/axiomwm/axiom/internal/ids"
)

func TestPushRemoveRoundTrip(t *testing.T) {
	s := New()
	s.Push(1)
	s.Push(2)
	before := append([]ids.SurfaceID{}, s.Order()...)

	s.Push(3)
	s.Remove(3)

	if !reflect.DeepEqual(before, s.Order()) {
		t.Fatalf("push/remove round trip changed order: before=%v after=%v", before, s.Order())
	}
	if !s.checkInvariant() {
		t.Fatal("index/sequence invariant violated")
	}
}

func TestRaiseToTopIdempotent(t *testing.T) {
	s := New()
	s.Push(1)
	s.Push(2)
	s.Push(3)

	s.RaiseToTop(1)
	once := append([]ids.SurfaceID{}, s.Order()...)
	s.RaiseToTop(1)
	twice := s.Order()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("raise_to_top not idempotent: once=%v twice=%v", once, twice)
	}
}

func TestIndexAgreesWithSequenceAfterEveryOp(t *testing.T) {
	s := New()
	s.Push(1)
	s.Push(2)
	s.Push(3)
	s.RaiseAbove(1, 2)
	if !s.checkInvariant() {
		t.Fatal("invariant violated after RaiseAbove")
	}
	s.LowerToBottom(3)
	if !s.checkInvariant() {
		t.Fatal("invariant violated after LowerToBottom")
	}
	s.Remove(2)
	if !s.checkInvariant() {
		t.Fatal("invariant violated after Remove")
	}
}

func TestRemoveMissingIsNoOp(t *testing.T) {
	s := New()
	s.Push(1)
	before := append([]ids.SurfaceID{}, s.Order()...)
	s.Remove(999)
	if !reflect.DeepEqual(before, s.Order()) {
		t.Fatal("removing a missing id should be a no-op")
	}
}

func TestWindowsAboveAndBelow(t *testing.T) {
	s := New()
	s.Push(1)
	s.Push(2)
	s.Push(3)
	if got := s.WindowsAbove(1); !reflect.DeepEqual(got, []ids.SurfaceID{2, 3}) {
		t.Fatalf("windows_above(1) = %v", got)
	}
	if got := s.WindowsBelow(3); !reflect.DeepEqual(got, []ids.SurfaceID{1, 2}) {
		t.Fatalf("windows_below(3) = %v", got)
	}
}

func TestPushDuplicateFailsSilently(t *testing.T) {
	s := New()
	s.Push(1)
	s.Push(1)
	if s.Len() != 1 {
		t.Fatalf("expected duplicate push to be a no-op, len=%d", s.Len())
	}
}
