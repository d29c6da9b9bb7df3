package protocol

import (
	"github.com/axiomwm/axiom/internal/buffer"
	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/focus"
	"github.com/axiomwm/axiom/internal/ids"
	"github.com/axiomwm/axiom/internal/render"
	"github.com/axiomwm/axiom/internal/wire"
)

// MessageWriter is the transport surface a connEmitter needs: just
// enough of *wire.Conn to send a fully built message, so tests can
// substitute a recording fake instead of a real socket.
type MessageWriter interface {
	WriteMessage(*wire.Message) error
}

// connEmitter turns a Core-initiated event into the wire message for one
// specific connection. It never decides whether an event is allowed to
// reach this connection — ConnRegistry.Emit and client.Registry's
// isolation checks already settled that before connEmitter ever sees it.
type connEmitter struct {
	clientID ids.ClientID
	writer   MessageWriter
}

func newConnEmitter(clientID ids.ClientID, writer MessageWriter) *connEmitter {
	return &connEmitter{clientID: clientID, writer: writer}
}

func (e *connEmitter) emit(local uint32, kind client.ResourceKind, event any) {
	var msg *wire.Message
	switch ev := event.(type) {
	case buffer.ReleaseEvent:
		msg = wire.NewEncoder().Build(local, EvWlBufferRelease)

	case render.FrameCallbackEvent:
		msg = wire.NewEncoder().Uint32(ev.TimestampMS).Build(local, EvWlCallbackDone)

	case render.PresentationFeedbackEvent:
		msg = wire.NewEncoder().
			Uint32(uint32(ev.PresentedAt.Unix())).
			Uint32(uint32(ev.PresentedAt.Nanosecond())).
			Uint32(uint32(ev.Refresh.Nanoseconds())).
			Uint32(uint32(ev.Seq)).
			Build(local, EvWpPresentationFeedbackPresented)

	case focus.EnterEvent:
		enc := wire.NewEncoder().Uint32(uint32(ev.Surface))
		if kind != client.ResourcePointer {
			// wl_keyboard.enter also carries the currently-held keys; this
			// compositor doesn't track held keys across a focus change yet.
			enc = enc.Array(nil)
		}
		msg = enc.Build(local, enterOpcodeFor(kind))

	case focus.LeaveEvent:
		msg = wire.NewEncoder().Uint32(uint32(ev.Surface)).Build(local, leaveOpcodeFor(kind))

	case focus.DataOfferEvent:
		msg = wire.NewEncoder().Uint32(uint32(len(ev.MimeTypes))).Build(local, EvWlDataDeviceDataOffer)

	case focus.SelectionEvent:
		msg = wire.NewEncoder().Uint32(uint32(len(ev.MimeTypes))).Build(local, EvWlDataDeviceSelection)

	case focus.DragEvent:
		msg = wire.NewEncoder().Uint32(uint32(ev.Surface)).Fixed(ev.X).Fixed(ev.Y).Build(local, EvWlDataDeviceEnter)

	case focus.DragLeaveEvent:
		msg = wire.NewEncoder().Build(local, EvWlDataDeviceLeave)

	case globalEvent:
		msg = wire.NewEncoder().Uint32(ev.Name).String(ev.Interface).Uint32(ev.Version).Build(local, EvWlRegistryGlobal)

	case wlCallbackDoneEvent:
		msg = wire.NewEncoder().Uint32(0).Build(local, EvWlCallbackDone)

	case xdgSurfaceConfigureEvent:
		msg = wire.NewEncoder().Uint32(ev.Serial).Build(local, EvXdgSurfaceConfigure)

	case xdgToplevelConfigureEvent:
		msg = wire.NewEncoder().Int32(ev.Width).Int32(ev.Height).Array(nil).Build(local, EvXdgToplevelConfigure)

	default:
		return
	}
	_ = e.writer.WriteMessage(msg)
}

func enterOpcodeFor(kind client.ResourceKind) uint16 {
	if kind == client.ResourcePointer {
		return EvWlPointerEnter
	}
	return EvWlKeyboardEnter
}

func leaveOpcodeFor(kind client.ResourceKind) uint16 {
	if kind == client.ResourcePointer {
		return EvWlPointerLeave
	}
	return EvWlKeyboardLeave
}
