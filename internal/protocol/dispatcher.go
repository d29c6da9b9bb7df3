package protocol

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/compositor"
	"github.com/axiomwm/axiom/internal/focus"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
	"github.com/axiomwm/axiom/internal/log"
	"github.com/axiomwm/axiom/internal/surface"
	"github.com/axiomwm/axiom/internal/wire"
)

// displayObject is the wire-level object id every connection starts with,
// implicitly bound before any request arrives.
const displayObject uint32 = 1

// globalEvent is wl_registry.global, advertised for every interface this
// compositor implements as soon as a client gets its registry.
type globalEvent struct {
	Name      uint32
	Interface string
	Version   uint32
}

// shmPool is one wl_shm_pool's mmap'd backing memory.
type shmPool struct {
	data []byte
}

var mmapFunc = func(fd int, size int) ([]byte, error) {
	return unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

// objInfo is what a Dispatcher remembers about one connection-local
// object id: which interface it is, and whichever domain id (surface,
// buffer, pool) it stands in for.
type objInfo struct {
	iface   string
	global  ids.ObjectID
	surface ids.SurfaceID
	buf     ids.BufferID
	pool    *shmPool
	offset  int
	size    int
}

// Dispatcher turns one connection's decoded requests into Core calls and
// routes Core's events back out over the same connection. One Dispatcher
// exists per connected client.
type Dispatcher struct {
	core     *compositor.Core
	clients  *client.Registry
	clientID ids.ClientID
	shared   *ConnRegistry
	emitter  *connEmitter

	objects map[uint32]*objInfo
	pool    []client.Resource
}

// NewDispatcher wires a fresh connection into core, registering it with
// the client registry and the cross-connection emitter that routes Core's
// self-initiated events (buffer release, frame callbacks, focus changes)
// back to whichever connection actually owns the target object.
func NewDispatcher(core *compositor.Core, clients *client.Registry, writer MessageWriter, shared *ConnRegistry) *Dispatcher {
	clientID := clients.Connect()
	return &Dispatcher{
		core:     core,
		clients:  clients,
		clientID: clientID,
		shared:   shared,
		emitter:  newConnEmitter(clientID, writer),
		objects:  map[uint32]*objInfo{displayObject: {iface: "wl_display"}},
	}
}

// ClientID reports the identity this dispatcher's connection was
// registered under, e.g. for Disconnect on connection teardown.
func (d *Dispatcher) ClientID() ids.ClientID { return d.clientID }

// Disconnect cascades connection teardown through the client registry.
func (d *Dispatcher) Disconnect() {
	d.clients.Disconnect(d.clientID)
}

// Dispatch decodes and applies one inbound request.
func (d *Dispatcher) Dispatch(msg *wire.Message) error {
	info, ok := d.objects[msg.Header.Sender]
	if !ok {
		return fmt.Errorf("protocol: request on unknown object %d", msg.Header.Sender)
	}
	dec := wire.NewDecoder(msg.Args, msg.Fds)
	switch info.iface {
	case "wl_display":
		return d.handleDisplay(msg.Header.Opcode, dec)
	case "wl_registry":
		return d.handleRegistry(msg.Header.Opcode, dec)
	case "wl_compositor":
		return d.handleCompositor(msg.Header.Opcode, dec)
	case "wl_shm":
		return d.handleShm(msg.Header.Opcode, dec)
	case "wl_shm_pool":
		return d.handleShmPool(msg.Header.Sender, info, msg.Header.Opcode, dec)
	case "wl_buffer":
		return d.handleBuffer(msg.Header.Sender, msg.Header.Opcode)
	case "wl_surface":
		return d.handleSurface(msg.Header.Sender, info, msg.Header.Opcode, dec)
	case "wl_seat":
		return d.handleSeat(msg.Header.Opcode, dec)
	case "wl_pointer", "wl_keyboard", "wl_touch":
		return nil // destroy is the only client request and needs no Core effect
	case "xdg_wm_base":
		return d.handleXdgWmBase(msg.Header.Opcode, dec)
	case "xdg_surface":
		return d.handleXdgSurface(msg.Header.Sender, info, msg.Header.Opcode, dec)
	case "xdg_toplevel":
		return d.handleXdgToplevel(info, msg.Header.Opcode, dec)
	case "xdg_popup":
		return d.handleXdgPopup(info, msg.Header.Opcode, dec)
	case "wl_subcompositor":
		return d.handleSubcompositor(msg.Header.Opcode, dec)
	case "wl_data_device_manager":
		return d.handleDataDeviceManager(msg.Header.Opcode, dec)
	case "wl_data_device":
		return d.handleDataDevice(msg.Header.Opcode, dec)
	case "wp_viewporter":
		return d.handleViewporter(msg.Header.Opcode, dec)
	case "wp_viewport":
		return d.handleViewport(info, msg.Header.Opcode, dec)
	case "wp_presentation":
		return d.handlePresentation(msg.Header.Opcode, dec)
	default:
		log.Debug("protocol: no handler for interface", "interface", info.iface)
		return nil
	}
}

func (d *Dispatcher) registerLocal(local uint32, info *objInfo) {
	d.objects[local] = info
}

func (d *Dispatcher) handleDisplay(opcode uint16, dec *wire.Decoder) error {
	switch opcode {
	case OpWlDisplaySync:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		d.registerLocal(newID, &objInfo{iface: "wl_callback"})
		d.emitter.emit(newID, client.ResourceOther, wlCallbackDoneEvent{})
		return nil
	case OpWlDisplayGetRegistry:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		d.registerLocal(newID, &objInfo{iface: "wl_registry"})
		for i, name := range globalInterfaces {
			d.emitter.emit(newID, client.ResourceOther, globalEvent{Name: uint32(i + 1), Interface: name, Version: 1})
		}
		return nil
	default:
		return nil
	}
}

func (d *Dispatcher) handleRegistry(opcode uint16, dec *wire.Decoder) error {
	if opcode != OpWlRegistryBind {
		return nil
	}
	_, err := dec.Uint32() // name
	if err != nil {
		return err
	}
	iface, err := dec.String()
	if err != nil {
		return err
	}
	_, err = dec.Uint32() // version
	if err != nil {
		return err
	}
	newID, err := dec.NewID()
	if err != nil {
		return err
	}
	d.registerLocal(newID, &objInfo{iface: iface})
	return nil
}

func (d *Dispatcher) handleCompositor(opcode uint16, dec *wire.Decoder) error {
	switch opcode {
	case OpWlCompositorCreateSurface:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		s := d.core.Surfaces.CreateSurface(d.clientID)
		obj, err := d.clients.Register(d.clientID, client.ResourceSurface)
		if err != nil {
			return err
		}
		d.core.BindSurfaceObject(s.ID, obj)
		d.registerLocal(newID, &objInfo{iface: "wl_surface", surface: s.ID, global: obj})
		return nil
	case OpWlCompositorCreateRegion:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		d.registerLocal(newID, &objInfo{iface: "wl_region"})
		return nil
	}
	return nil
}

func (d *Dispatcher) handleShm(opcode uint16, dec *wire.Decoder) error {
	if opcode != OpWlShmCreatePool {
		return nil
	}
	newID, err := dec.NewID()
	if err != nil {
		return err
	}
	fd, err := dec.Fd()
	if err != nil {
		return err
	}
	size, err := dec.Int32()
	if err != nil {
		return err
	}
	data, err := mmapFunc(fd, int(size))
	if err != nil {
		return fmt.Errorf("protocol: mmap shm pool: %w", err)
	}
	d.registerLocal(newID, &objInfo{iface: "wl_shm_pool", pool: &shmPool{data: data}})
	return nil
}

func (d *Dispatcher) handleShmPool(local uint32, poolInfo *objInfo, opcode uint16, dec *wire.Decoder) error {
	switch opcode {
	case OpWlShmPoolCreateBuffer:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		offset, err := dec.Int32()
		if err != nil {
			return err
		}
		width, err := dec.Int32()
		if err != nil {
			return err
		}
		height, err := dec.Int32()
		if err != nil {
			return err
		}
		stride, err := dec.Int32()
		if err != nil {
			return err
		}
		formatCode, err := dec.Uint32()
		if err != nil {
			return err
		}
		format, ok := decodeShmFormat(formatCode)
		if !ok {
			return fmt.Errorf("protocol: unsupported shm format %#x", formatCode)
		}
		buf, err := d.core.Buffers.RegisterCPUBuffer(d.clientID, format, uint32(width), uint32(height), uint32(stride))
		if err != nil {
			return err
		}
		global, err := d.clients.Register(d.clientID, client.ResourceOther)
		if err != nil {
			return err
		}
		d.shared.bind(global, newID, client.ResourceOther, d.emitter)
		d.core.BindBufferObject(buf.ID, client.Resource{Object: global, Client: d.clientID, Kind: client.ResourceOther})
		d.registerLocal(newID, &objInfo{
			iface: "wl_buffer", buf: buf.ID, global: global,
			pool: poolInfo.pool, offset: int(offset), size: int(height) * int(stride),
		})
		return nil
	case OpWlShmPoolDestroy:
		delete(d.objects, local)
		return nil
	case OpWlShmPoolResize:
		// Growing a pool in place would need the original fd remapped at
		// the new size (mremap); this pool only keeps the mmap'd bytes,
		// so a grow is accepted but buffers created past the original
		// extent won't find backing data until the client resizes again
		// through a fresh create_pool.
		if _, err := dec.Int32(); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// bufferPixels returns the raw bytes a buffer's owning pool holds, for
// BuildUpload to convert. A buffer whose pool was destroyed or never
// grew to cover its offset reports no data.
func (d *Dispatcher) bufferPixels(bufLocal uint32) []byte {
	info, ok := d.objects[bufLocal]
	if !ok || info.iface != "wl_buffer" || info.pool == nil {
		return nil
	}
	if info.offset+info.size > len(info.pool.data) {
		return nil
	}
	return info.pool.data[info.offset : info.offset+info.size]
}

func (d *Dispatcher) handleBuffer(local uint32, opcode uint16) error {
	if opcode == OpWlBufferDestroy {
		if info, ok := d.objects[local]; ok && info.global != 0 {
			d.shared.unbind(info.global)
		}
		delete(d.objects, local)
	}
	return nil
}

func (d *Dispatcher) handleSurface(local uint32, info *objInfo, opcode uint16, dec *wire.Decoder) error {
	surf := info.surface
	switch opcode {
	case OpWlSurfaceDestroy:
		d.core.UnmapSurface(surf, d.pool, d.shared)
		d.core.Surfaces.Destroy(surf)
		delete(d.objects, local)
		return nil

	case OpWlSurfaceAttach:
		bufLocal, err := dec.Object()
		if err != nil {
			return err
		}
		if _, err := dec.Int32(); err != nil { // x
			return err
		}
		if _, err := dec.Int32(); err != nil { // y
			return err
		}
		bufInfo, ok := d.objects[bufLocal]
		if !ok {
			info.buf = 0
			return d.core.Surfaces.MutateState(surf, func(s *surface.State) { s.Buffer = 0 })
		}
		info.buf = bufInfo.buf
		d.core.AttachBuffer(surf, bufInfo.buf, d.shared)
		return d.core.Surfaces.MutateState(surf, func(s *surface.State) { s.Buffer = bufInfo.buf })

	case OpWlSurfaceDamage, OpWlSurfaceDamageBuffer:
		x, err := dec.Int32()
		if err != nil {
			return err
		}
		y, err := dec.Int32()
		if err != nil {
			return err
		}
		w, err := dec.Int32()
		if err != nil {
			return err
		}
		h, err := dec.Int32()
		if err != nil {
			return err
		}
		rect := geom.Rect{X: x, Y: y, W: uint32(w), H: uint32(h)}
		return d.core.Surfaces.MutateState(surf, func(s *surface.State) {
			s.Damage = append(s.Damage, rect)
			s.DamageBuffer = opcode == OpWlSurfaceDamageBuffer
		})

	case OpWlSurfaceFrame:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		d.registerLocal(newID, &objInfo{iface: "wl_callback"})
		global, err := d.clients.Register(d.clientID, client.ResourceOther)
		if err != nil {
			return err
		}
		d.shared.bind(global, newID, client.ResourceOther, d.emitter)
		d.core.RegisterFrameCallback(surf, client.Resource{Object: global, Client: d.clientID, Kind: client.ResourceOther})
		return nil

	case OpWlSurfaceSetOpaqueRegion:
		if _, err := dec.Object(); err != nil {
			return err
		}
		return nil

	case OpWlSurfaceSetInputRegion:
		if _, err := dec.Object(); err != nil {
			return err
		}
		return nil

	case OpWlSurfaceSetBufferScale:
		scale, err := dec.Int32()
		if err != nil {
			return err
		}
		return d.core.Surfaces.MutateState(surf, func(s *surface.State) { s.Scale = scale })

	case OpWlSurfaceCommit:
		_, err := d.core.Commit(surf, d.bufferPixelsFor(info.buf), d.pool, d.shared)
		return err
	}
	return nil
}

// bufferPixelsFor resolves the raw bytes for the buffer pending on a
// surface (the last one attached through its wl_surface object), by
// scanning this connection's known wl_buffer objects for the match.
func (d *Dispatcher) bufferPixelsFor(pending ids.BufferID) []byte {
	if pending == 0 {
		return nil
	}
	for local, info := range d.objects {
		if info.iface == "wl_buffer" && info.buf == pending {
			return d.bufferPixels(local)
		}
	}
	return nil
}

func (d *Dispatcher) handleSeat(opcode uint16, dec *wire.Decoder) error {
	var kind client.ResourceKind
	var iface string
	switch opcode {
	case OpWlSeatGetPointer:
		kind, iface = client.ResourcePointer, "wl_pointer"
	case OpWlSeatGetKeyboard:
		kind, iface = client.ResourceKeyboard, "wl_keyboard"
	case OpWlSeatGetTouch:
		kind, iface = client.ResourceTouch, "wl_touch"
	default:
		return nil
	}
	newID, err := dec.NewID()
	if err != nil {
		return err
	}
	global, err := d.clients.Register(d.clientID, kind)
	if err != nil {
		return err
	}
	d.shared.bind(global, newID, kind, d.emitter)
	d.registerLocal(newID, &objInfo{iface: iface, global: global})
	d.pool = d.shared.Pool()
	return nil
}

func (d *Dispatcher) handleXdgWmBase(opcode uint16, dec *wire.Decoder) error {
	switch opcode {
	case OpXdgWmBaseGetXdgSurface:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		surfLocal, err := dec.Object()
		if err != nil {
			return err
		}
		surfInfo, ok := d.objects[surfLocal]
		if !ok {
			return fmt.Errorf("protocol: get_xdg_surface on unknown wl_surface")
		}
		d.registerLocal(newID, &objInfo{iface: "xdg_surface", surface: surfInfo.surface, global: surfInfo.global})
		return nil
	case OpXdgWmBaseCreatePositioner:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		d.registerLocal(newID, &objInfo{iface: "xdg_positioner"})
		return nil
	case OpXdgWmBasePong:
		_, err := dec.Uint32()
		return err
	}
	return nil
}

func (d *Dispatcher) handleXdgSurface(local uint32, info *objInfo, opcode uint16, dec *wire.Decoder) error {
	surf := info.surface
	switch opcode {
	case OpXdgSurfaceGetToplevel:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		if _, err := d.core.Surfaces.SetRole(surf, surface.RoleToplevel); err != nil {
			return err
		}
		d.registerLocal(newID, &objInfo{iface: "xdg_toplevel", surface: surf, global: info.global})
		cfg, err := d.core.Surfaces.SendConfigure(surf, time.Time{}, geom.Size{}, 0)
		if err == nil {
			d.emitter.emit(newID, client.ResourceOther, xdgToplevelConfigureEvent{Width: 0, Height: 0})
			d.emitter.emit(local, client.ResourceOther, xdgSurfaceConfigureEvent{Serial: cfg.Serial})
		}
		return nil
	case OpXdgSurfaceGetPopup:
		newID, err := dec.NewID()
		if err != nil {
			return err
		}
		parentLocal, err := dec.Object()
		if err != nil {
			return err
		}
		if _, err := dec.Object(); err != nil { // positioner
			return err
		}
		if _, err := d.core.Surfaces.SetRole(surf, surface.RolePopup); err != nil {
			return err
		}
		if parentInfo, ok := d.objects[parentLocal]; ok {
			_ = d.core.Surfaces.SetPopupParent(surf, parentInfo.surface)
		}
		d.registerLocal(newID, &objInfo{iface: "xdg_popup", surface: surf, global: info.global})
		return nil
	case OpXdgSurfaceAckConfigure:
		serial, err := dec.Uint32()
		if err != nil {
			return err
		}
		return d.core.Surfaces.AckConfigure(surf, serial)
	case OpXdgSurfaceSetWindowGeometry:
		// Window geometry clips the surface's visible extent relative to
		// its buffer; layout here always renders at the column's rect, so
		// this is accepted but not yet threaded into placement.
		for i := 0; i < 4; i++ {
			if _, err := dec.Int32(); err != nil {
				return err
			}
		}
		return nil
	case OpXdgSurfaceDestroy:
		delete(d.objects, local)
		return nil
	}
	return nil
}

func (d *Dispatcher) handleXdgToplevel(info *objInfo, opcode uint16, dec *wire.Decoder) error {
	switch opcode {
	case OpXdgToplevelSetTitle:
		if _, err := dec.String(); err != nil {
			return err
		}
		return nil
	case OpXdgToplevelDestroy:
		d.core.UnmapSurface(info.surface, d.pool, d.shared)
		return nil
	}
	return nil
}

func (d *Dispatcher) handleXdgPopup(info *objInfo, opcode uint16, dec *wire.Decoder) error {
	switch opcode {
	case OpXdgPopupGrab:
		if _, err := dec.Object(); err != nil { // seat
			return err
		}
		if _, err := dec.Uint32(); err != nil { // serial
			return err
		}
		return d.core.Surfaces.SetPopupGrab(info.surface, true)
	case OpXdgPopupDestroy:
		_ = d.core.Surfaces.SetPopupGrab(info.surface, false)
		d.core.UnmapSurface(info.surface, d.pool, d.shared)
		return nil
	}
	return nil
}

func (d *Dispatcher) handleSubcompositor(opcode uint16, dec *wire.Decoder) error {
	if opcode != OpWlSubcompositorGetSubsurface {
		return nil
	}
	newID, err := dec.NewID()
	if err != nil {
		return err
	}
	surfLocal, err := dec.Object()
	if err != nil {
		return err
	}
	parentLocal, err := dec.Object()
	if err != nil {
		return err
	}
	surfInfo, ok := d.objects[surfLocal]
	if !ok {
		return fmt.Errorf("protocol: get_subsurface on unknown wl_surface")
	}
	sub, err := d.core.Surfaces.SetRole(surfInfo.surface, surface.RoleSubsurface)
	if err != nil {
		return err
	}
	if parentInfo, ok := d.objects[parentLocal]; ok {
		sub.Role.Subsurface.Parent = parentInfo.surface
		_ = d.core.Surfaces.MutateState(parentInfo.surface, func(s *surface.State) {
			s.Children = append(s.Children, surfInfo.surface)
		})
	}
	d.registerLocal(newID, &objInfo{iface: "wl_subsurface", surface: surfInfo.surface})
	return nil
}

func (d *Dispatcher) handleDataDeviceManager(opcode uint16, dec *wire.Decoder) error {
	if opcode != OpWlDataDeviceManagerGetDataDevice {
		return nil
	}
	newID, err := dec.NewID()
	if err != nil {
		return err
	}
	if _, err := dec.Object(); err != nil { // seat
		return err
	}
	global, err := d.clients.Register(d.clientID, client.ResourceDataDevice)
	if err != nil {
		return err
	}
	d.shared.bind(global, newID, client.ResourceDataDevice, d.emitter)
	d.registerLocal(newID, &objInfo{iface: "wl_data_device", global: global})
	d.pool = d.shared.Pool()
	return nil
}

func (d *Dispatcher) handleDataDevice(opcode uint16, dec *wire.Decoder) error {
	switch opcode {
	case OpWlDataDeviceSetSelection:
		if _, err := dec.Object(); err != nil { // source, unused: mime types tracked by the source object in a full implementation
			return err
		}
		if _, err := dec.Uint32(); err != nil { // serial
			return err
		}
		d.core.Focus.SetSelection(focus.Selection{Source: d.clientID, MimeTypes: nil}, d.pool, d.shared)
		return nil
	case OpWlDataDeviceStartDrag:
		if _, err := dec.Object(); err != nil { // source
			return err
		}
		originLocal, err := dec.Object()
		if err != nil {
			return err
		}
		if _, err := dec.Object(); err != nil { // icon
			return err
		}
		if _, err := dec.Uint32(); err != nil { // serial
			return err
		}
		_ = originLocal
		d.core.Focus.StartDrag(nil, 0, 0, d.pool, d.shared)
		return nil
	}
	return nil
}

func (d *Dispatcher) handleViewporter(opcode uint16, dec *wire.Decoder) error {
	if opcode != OpWpViewporterGetViewport {
		return nil
	}
	newID, err := dec.NewID()
	if err != nil {
		return err
	}
	surfLocal, err := dec.Object()
	if err != nil {
		return err
	}
	surfInfo, ok := d.objects[surfLocal]
	if !ok {
		return fmt.Errorf("protocol: get_viewport on unknown wl_surface")
	}
	d.registerLocal(newID, &objInfo{iface: "wp_viewport", surface: surfInfo.surface})
	return nil
}

func (d *Dispatcher) handleViewport(info *objInfo, opcode uint16, dec *wire.Decoder) error {
	switch opcode {
	case OpWpViewportSetSource:
		x, err := dec.Fixed()
		if err != nil {
			return err
		}
		y, err := dec.Fixed()
		if err != nil {
			return err
		}
		w, err := dec.Fixed()
		if err != nil {
			return err
		}
		h, err := dec.Fixed()
		if err != nil {
			return err
		}
		rect := geom.Rect{X: int32(x), Y: int32(y), W: uint32(w), H: uint32(h)}
		return d.core.Surfaces.MutateState(info.surface, func(s *surface.State) { s.ViewportSrc = &rect })
	case OpWpViewportSetDestination:
		w, err := dec.Int32()
		if err != nil {
			return err
		}
		h, err := dec.Int32()
		if err != nil {
			return err
		}
		size := geom.Size{W: uint32(w), H: uint32(h)}
		return d.core.Surfaces.MutateState(info.surface, func(s *surface.State) { s.ViewportDst = &size })
	}
	return nil
}

func (d *Dispatcher) handlePresentation(opcode uint16, dec *wire.Decoder) error {
	if opcode != OpWpPresentationFeedback {
		return nil
	}
	surfLocal, err := dec.Object()
	if err != nil {
		return err
	}
	newID, err := dec.NewID()
	if err != nil {
		return err
	}
	surfInfo, ok := d.objects[surfLocal]
	if !ok {
		return fmt.Errorf("protocol: presentation feedback on unknown wl_surface")
	}
	d.registerLocal(newID, &objInfo{iface: "wp_presentation_feedback"})
	global, err := d.clients.Register(d.clientID, client.ResourceOther)
	if err != nil {
		return err
	}
	d.shared.bind(global, newID, client.ResourceOther, d.emitter)
	d.core.RegisterPresentationFeedback(surfInfo.surface, client.Resource{Object: global, Client: d.clientID, Kind: client.ResourceOther})
	return nil
}

// Local event payload types that have no natural home in another
// package: they're wire-shaped values the emitter encodes directly,
// not domain events Core itself reasons about.
type wlCallbackDoneEvent struct{}
type xdgSurfaceConfigureEvent struct{ Serial uint32 }
type xdgToplevelConfigureEvent struct{ Width, Height int32 }
