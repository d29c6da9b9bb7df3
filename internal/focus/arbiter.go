// Package focus determines keyboard and pointer focus from input events
// and layout, and emits focus-enter/focus-leave through the Client
// Registry's isolation-aware emitter so a focus change never reaches the
// wrong client.
package focus

import (
	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/ids"
)

// Target names a surface and the protocol object (a keyboard or pointer
// resource) the enter/leave pair is carried on.
type Target struct {
	Surface ids.SurfaceID
	Object  ids.ObjectID
}

func (t Target) isSet() bool { return t.Surface != 0 }

// EnterEvent and LeaveEvent are the wire events emitted on focus changes;
// callers decode Surface into whatever protocol-specific payload the
// bound keyboard/pointer interface expects.
type EnterEvent struct{ Surface ids.SurfaceID }
type LeaveEvent struct{ Surface ids.SurfaceID }

// Selection is the current clipboard owner's offered mime types. It is
// compositor-wide: wl_data_device_manager has exactly one clipboard
// selection shared by all seats.
type Selection struct {
	Source    ids.ClientID
	MimeTypes []string
}

func (s Selection) isSet() bool { return s.Source != 0 }

// DataOfferEvent is wl_data_device.data_offer: a new wl_data_offer naming
// the mime types available, sent before the selection/enter event it
// accompanies.
type DataOfferEvent struct {
	MimeTypes []string
}

// SelectionEvent is wl_data_device.selection: the clipboard owner changed
// (or was cleared, when MimeTypes is empty) and now applies to the
// receiving client's data device.
type SelectionEvent struct {
	MimeTypes []string
}

// DragEvent is wl_data_device.enter for a drag-and-drop operation
// entering a surface, carrying the offered mime types and the pointer
// position the drag icon should track.
type DragEvent struct {
	Surface   ids.SurfaceID
	X, Y      float64
	MimeTypes []string
}

// DragLeaveEvent is wl_data_device.leave: the drag left the surface it
// had most recently entered.
type DragLeaveEvent struct{}

// Arbiter owns the compositor's current keyboard and pointer focus, plus
// the clipboard selection and any in-flight drag-and-drop operation.
type Arbiter struct {
	registry *client.Registry

	// StickyFocus, when true, decouples keyboard focus from column
	// focus: FollowColumnFocus becomes a no-op and focus only moves via
	// explicit SetKeyboardFocus calls.
	StickyFocus bool

	keyboard Target
	pointer  Target

	selection Selection
	dragging  Target
}

func NewArbiter(registry *client.Registry, sticky bool) *Arbiter {
	return &Arbiter{registry: registry, StickyFocus: sticky}
}

func (a *Arbiter) KeyboardFocus() Target { return a.keyboard }
func (a *Arbiter) PointerFocus() Target  { return a.pointer }

// SetKeyboardFocus moves keyboard focus to target, emitting exactly one
// leave (on the previous target's owning client's keyboard resources) and
// exactly one enter (on the new target's), and never cross-emitting
// between the two clients.
func (a *Arbiter) SetKeyboardFocus(target Target, pool []client.Resource, emitter client.Emitter) {
	a.transition(&a.keyboard, target, pool, emitter)
}

// SetPointerFocus is the pointer-focus analogue of SetKeyboardFocus,
// invoked whenever cursor position is recomputed against window layout.
func (a *Arbiter) SetPointerFocus(target Target, pool []client.Resource, emitter client.Emitter) {
	a.transition(&a.pointer, target, pool, emitter)
}

// FollowColumnFocus sets keyboard focus to a focused column's top
// toplevel on layout changes — a no-op under StickyFocus.
func (a *Arbiter) FollowColumnFocus(target Target, pool []client.Resource, emitter client.Emitter) {
	if a.StickyFocus {
		return
	}
	a.SetKeyboardFocus(target, pool, emitter)
}

func (a *Arbiter) transition(cur *Target, target Target, pool []client.Resource, emitter client.Emitter) {
	if cur.Surface == target.Surface && cur.Object == target.Object {
		return
	}
	if cur.isSet() {
		a.registry.EmitToClient(cur.Surface, cur.Object, pool, emitter, LeaveEvent{Surface: cur.Surface})
	}
	*cur = target
	if target.isSet() {
		a.registry.EmitToClient(target.Surface, target.Object, pool, emitter, EnterEvent{Surface: target.Surface})
	}
}

// ClearIfSurface drops keyboard/pointer focus that names a destroyed or
// unmapped surface, emitting the corresponding leave.
func (a *Arbiter) ClearIfSurface(surf ids.SurfaceID, pool []client.Resource, emitter client.Emitter) {
	if a.keyboard.Surface == surf {
		a.transition(&a.keyboard, Target{}, pool, emitter)
	}
	if a.pointer.Surface == surf {
		a.transition(&a.pointer, Target{}, pool, emitter)
	}
}

// Selection returns the current clipboard owner, or the zero Selection if
// none has claimed it yet.
func (a *Arbiter) Selection() Selection { return a.selection }

// SetSelection makes source the new clipboard owner and announces it to
// whichever client currently holds keyboard focus — the only client a
// real wl_data_device.set_selection's effects are ever visible to until
// that focus changes. Calling it with a zero Selection clears the
// clipboard.
func (a *Arbiter) SetSelection(source Selection, pool []client.Resource, emitter client.Emitter) {
	a.selection = source
	if !a.keyboard.isSet() {
		return
	}
	if source.isSet() {
		a.registry.EmitToClient(a.keyboard.Surface, a.keyboard.Object, pool, emitter, DataOfferEvent{MimeTypes: source.MimeTypes})
	}
	a.registry.EmitToClient(a.keyboard.Surface, a.keyboard.Object, pool, emitter, SelectionEvent{MimeTypes: source.MimeTypes})
}

// StartDrag begins a drag-and-drop operation originating from origin,
// delivering wl_data_device.enter to whatever surface currently holds
// pointer focus: a real compositor would instead track grab motion across
// surfaces as the pointer moves, but with no input backend in this tree
// to source raw motion events from, entry is driven by pointer-focus
// changes the same way keyboard focus already is.
func (a *Arbiter) StartDrag(mimeTypes []string, x, y float64, pool []client.Resource, emitter client.Emitter) {
	a.dragging = a.pointer
	if !a.pointer.isSet() {
		return
	}
	a.registry.EmitToClient(a.pointer.Surface, a.pointer.Object, pool, emitter, DragEvent{
		Surface: a.pointer.Surface, X: x, Y: y, MimeTypes: mimeTypes,
	})
}

// EndDrag delivers wl_data_device.leave to the surface the drag most
// recently entered and clears the in-flight drag state.
func (a *Arbiter) EndDrag(pool []client.Resource, emitter client.Emitter) {
	if a.dragging.isSet() {
		a.registry.EmitToClient(a.dragging.Surface, a.dragging.Object, pool, emitter, DragLeaveEvent{})
	}
	a.dragging = Target{}
}
