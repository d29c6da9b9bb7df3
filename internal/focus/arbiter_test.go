package focus

import (
	"testing"

	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/ids"
)

type recorder struct {
	events []recordedEvent
}

type recordedEvent struct {
	obj   ids.ObjectID
	event any
}

func (r *recorder) Emit(obj ids.ObjectID, event any) {
	r.events = append(r.events, recordedEvent{obj, event})
}

// TestCrossClientIsolationOnFocusTransition is seed scenario S2 at the
// Focus Arbiter level: focus moves from client A's surface to client B's
// surface, and only the owning client's keyboard ever sees an event
// naming its own surface.
func TestCrossClientIsolationOnFocusTransition(t *testing.T) {
	gen := &ids.Generator{}
	reg := client.NewRegistry(gen)
	rec := &recorder{}

	clientA := reg.Connect()
	clientB := reg.Connect()

	surfA := ids.SurfaceID(gen.NextSurface())
	surfB := ids.SurfaceID(gen.NextSurface())
	kbdAObj, _ := reg.Register(clientA, client.ResourceKeyboard)
	kbdBObj, _ := reg.Register(clientB, client.ResourceKeyboard)
	surfAObj, _ := reg.Register(clientA, client.ResourceSurface)
	surfBObj, _ := reg.Register(clientB, client.ResourceSurface)

	pool := []client.Resource{
		{Object: kbdAObj, Client: clientA, Kind: client.ResourceKeyboard},
		{Object: kbdBObj, Client: clientB, Kind: client.ResourceKeyboard},
	}

	arb := NewArbiter(reg, false)
	arb.SetKeyboardFocus(Target{Surface: surfA, Object: surfAObj}, pool, rec)
	arb.SetKeyboardFocus(Target{Surface: surfB, Object: surfBObj}, pool, rec)

	var leavesOnA, entersOnB int
	for _, e := range rec.events {
		switch ev := e.event.(type) {
		case LeaveEvent:
			if e.obj == kbdAObj && ev.Surface == surfA {
				leavesOnA++
			}
			if e.obj == kbdBObj {
				t.Fatalf("leave for client A's surface must never reach client B's keyboard")
			}
		case EnterEvent:
			if e.obj == kbdBObj && ev.Surface == surfB {
				entersOnB++
			}
			if e.obj == kbdAObj && ev.Surface == surfB {
				t.Fatalf("enter for client B's surface must never reach client A's keyboard")
			}
		}
	}
	if leavesOnA != 1 {
		t.Fatalf("expected exactly one leave on client A's keyboard, got %d", leavesOnA)
	}
	if entersOnB != 1 {
		t.Fatalf("expected exactly one enter on client B's keyboard, got %d", entersOnB)
	}
}

func TestStickyFocusSuppressesFollowColumnFocus(t *testing.T) {
	gen := &ids.Generator{}
	reg := client.NewRegistry(gen)
	rec := &recorder{}
	clientA := reg.Connect()
	surfA := ids.SurfaceID(gen.NextSurface())
	surfAObj, _ := reg.Register(clientA, client.ResourceSurface)

	arb := NewArbiter(reg, true)
	arb.FollowColumnFocus(Target{Surface: surfA, Object: surfAObj}, nil, rec)
	if arb.KeyboardFocus().isSet() {
		t.Fatal("sticky focus should prevent FollowColumnFocus from changing keyboard focus")
	}
}

func TestSameTargetIsNoOp(t *testing.T) {
	gen := &ids.Generator{}
	reg := client.NewRegistry(gen)
	rec := &recorder{}
	clientA := reg.Connect()
	surfA := ids.SurfaceID(gen.NextSurface())
	surfAObj, _ := reg.Register(clientA, client.ResourceSurface)

	arb := NewArbiter(reg, false)
	target := Target{Surface: surfA, Object: surfAObj}
	arb.SetKeyboardFocus(target, nil, rec)
	before := len(rec.events)
	arb.SetKeyboardFocus(target, nil, rec)
	if len(rec.events) != before {
		t.Fatal("re-setting the same focus target should not emit events")
	}
}

// TestSetSelectionReachesOnlyKeyboardFocusedClient is the data-device
// analogue of cross-client isolation: the clipboard owner's mime types
// must reach the client holding keyboard focus and no other.
func TestSetSelectionReachesOnlyKeyboardFocusedClient(t *testing.T) {
	gen := &ids.Generator{}
	reg := client.NewRegistry(gen)
	rec := &recorder{}

	clientA := reg.Connect()
	clientB := reg.Connect()
	surfA := ids.SurfaceID(gen.NextSurface())
	surfAObj, _ := reg.Register(clientA, client.ResourceSurface)
	ddA, _ := reg.Register(clientA, client.ResourceDataDevice)
	ddB, _ := reg.Register(clientB, client.ResourceDataDevice)

	pool := []client.Resource{
		{Object: ddA, Client: clientA, Kind: client.ResourceDataDevice},
		{Object: ddB, Client: clientB, Kind: client.ResourceDataDevice},
	}

	arb := NewArbiter(reg, false)
	arb.SetKeyboardFocus(Target{Surface: surfA, Object: surfAObj}, pool, rec)
	arb.SetSelection(Selection{Source: clientB, MimeTypes: []string{"text/plain"}}, pool, rec)

	var offers, selections int
	for _, e := range rec.events {
		switch ev := e.event.(type) {
		case DataOfferEvent:
			if e.obj != ddA {
				t.Fatal("data offer must only reach the keyboard-focused client")
			}
			offers++
		case SelectionEvent:
			if e.obj != ddA {
				t.Fatal("selection event must only reach the keyboard-focused client")
			}
			if len(ev.MimeTypes) != 1 || ev.MimeTypes[0] != "text/plain" {
				t.Fatalf("unexpected mime types: %v", ev.MimeTypes)
			}
			selections++
		}
	}
	if offers != 1 || selections != 1 {
		t.Fatalf("expected exactly one offer and one selection event, got %d/%d", offers, selections)
	}
}

func TestStartDragEntersPointerFocusedSurface(t *testing.T) {
	gen := &ids.Generator{}
	reg := client.NewRegistry(gen)
	rec := &recorder{}

	clientA := reg.Connect()
	surfA := ids.SurfaceID(gen.NextSurface())
	surfAObj, _ := reg.Register(clientA, client.ResourceSurface)
	ddA, _ := reg.Register(clientA, client.ResourceDataDevice)
	pool := []client.Resource{{Object: ddA, Client: clientA, Kind: client.ResourceDataDevice}}

	arb := NewArbiter(reg, false)
	arb.SetPointerFocus(Target{Surface: surfA, Object: surfAObj}, pool, rec)
	arb.StartDrag([]string{"text/uri-list"}, 10, 20, pool, rec)

	var entered bool
	for _, e := range rec.events {
		if ev, ok := e.event.(DragEvent); ok {
			if ev.Surface != surfA || ev.X != 10 || ev.Y != 20 {
				t.Fatalf("unexpected drag event: %+v", ev)
			}
			entered = true
		}
	}
	if !entered {
		t.Fatal("expected a DragEvent delivered to the pointer-focused client")
	}

	arb.EndDrag(pool, rec)
	var left bool
	for _, e := range rec.events {
		if _, ok := e.event.(DragLeaveEvent); ok {
			left = true
		}
	}
	if !left {
		t.Fatal("expected a DragLeaveEvent on EndDrag")
	}
}
