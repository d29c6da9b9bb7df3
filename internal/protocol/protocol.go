// Package protocol binds decoded wire.Message traffic to Core's request
// methods and turns Core-initiated events back into wire messages. It is
// the opcode table an interface description XML would otherwise generate:
// one request-opcode switch per bound interface, plus the inverse
// encoding for the handful of event types Core ever needs to deliver
// asynchronously (buffer release, frame callbacks, presentation
// feedback, focus/selection/drag enter-leave).
//
// Every object the table creates gets both a connection-local id (the
// wire.Message.Header.Sender a client will address it by) and a
// compositor-global ids.ObjectID (what client.Registry and Core key by
// internally); Dispatcher is the per-connection translation between the
// two.
package protocol

// Request opcodes, matching the upstream Wayland and wayland-protocols
// XML definitions for the interfaces this compositor implements.
const (
	OpWlDisplaySync        = 0
	OpWlDisplayGetRegistry = 1

	OpWlRegistryBind = 0

	OpWlCompositorCreateSurface  = 0
	OpWlCompositorCreateRegion   = 1

	OpWlShmCreatePool = 0

	OpWlShmPoolCreateBuffer = 0
	OpWlShmPoolDestroy      = 1
	OpWlShmPoolResize       = 2

	OpWlBufferDestroy = 0

	OpWlSurfaceDestroy        = 0
	OpWlSurfaceAttach         = 1
	OpWlSurfaceDamage         = 2
	OpWlSurfaceFrame          = 3
	OpWlSurfaceSetOpaqueRegion = 4
	OpWlSurfaceSetInputRegion = 5
	OpWlSurfaceCommit         = 6
	OpWlSurfaceSetBufferScale = 8
	OpWlSurfaceDamageBuffer   = 9

	OpWlSeatGetPointer  = 0
	OpWlSeatGetKeyboard = 1
	OpWlSeatGetTouch    = 2

	OpXdgWmBaseDestroy        = 0
	OpXdgWmBaseCreatePositioner = 1
	OpXdgWmBaseGetXdgSurface  = 2
	OpXdgWmBasePong          = 3

	OpXdgSurfaceDestroy           = 0
	OpXdgSurfaceGetToplevel       = 1
	OpXdgSurfaceGetPopup          = 2
	OpXdgSurfaceSetWindowGeometry = 3
	OpXdgSurfaceAckConfigure      = 4

	OpXdgToplevelDestroy  = 0
	OpXdgToplevelSetTitle = 2

	OpXdgPopupDestroy = 0
	OpXdgPopupGrab    = 1

	OpWlSubcompositorGetSubsurface = 1

	OpWlDataDeviceManagerGetDataDevice = 1

	OpWlDataDeviceSetSelection = 1
	OpWlDataDeviceStartDrag    = 0

	OpWpViewporterGetViewport = 1

	OpWpViewportSetSource      = 1
	OpWpViewportSetDestination = 2

	OpWpPresentationFeedback = 1
)

// Event opcodes this compositor ever needs to emit.
const (
	EvWlRegistryGlobal          = 0
	EvWlCallbackDone            = 0
	EvWlBufferRelease           = 0
	EvWlSurfaceEnter            = 0
	EvWlKeyboardEnter           = 1
	EvWlKeyboardLeave           = 2
	EvWlPointerEnter            = 0
	EvWlPointerLeave            = 1
	EvXdgSurfaceConfigure       = 0
	EvXdgToplevelConfigure      = 0
	EvWlDataDeviceDataOffer     = 0
	EvWlDataDeviceEnter         = 1
	EvWlDataDeviceLeave         = 2
	EvWlDataDeviceSelection     = 5
	EvWpPresentationFeedbackPresented = 1
)

// globalInterfaces is every interface name advertised on wl_registry,
// bound by name + version via wl_registry.bind.
var globalInterfaces = []string{
	"wl_compositor",
	"wl_shm",
	"wl_seat",
	"wl_output",
	"xdg_wm_base",
	"wl_subcompositor",
	"wl_data_device_manager",
	"wp_viewporter",
	"wp_presentation",
}
