package protocol

import (
	"testing"

	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/compositor"
	"github.com/axiomwm/axiom/internal/config"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
	"github.com/axiomwm/axiom/internal/render"
	"github.com/axiomwm/axiom/internal/wire"
)

type fakeBackend struct {
	uploaded int
}

func (f *fakeBackend) PresentFrame(outputSize geom.Size, draws []render.Draw) error { return nil }
func (f *fakeBackend) UploadTexture(id ids.TextureID, pixels []byte, w, h uint32, damage *geom.Rect) error {
	f.uploaded++
	return nil
}
func (f *fakeBackend) DestroyTexture(id ids.TextureID) {}
func (f *fakeBackend) OnVsync(cb func())               {}

// fakeWriter records every message a Dispatcher writes back, keyed by
// receiver object id, so a test can assert an event reached the right
// connection-local object.
type fakeWriter struct {
	sent []*wire.Message
}

func (w *fakeWriter) WriteMessage(msg *wire.Message) error {
	w.sent = append(w.sent, msg)
	return nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.OutputWidth = 800
	cfg.OutputHeight = 600
	cfg.DefaultColumnWidth = 400
	cfg.MinColumnWidth = 100
	cfg.MaxColumnWidth = 800
	return cfg
}

func req(sender uint32, opcode uint16, enc *wire.Encoder) *wire.Message {
	return enc.Build(sender, opcode)
}

// TestDispatcherMapsToplevelThroughWireRequests drives the full client
// handshake purely through decoded wire messages — bind the globals, create
// a surface, build an shm-backed buffer, attach and commit it — and checks
// the surface ends up mapped and its pixels uploaded to the renderer.
func TestDispatcherMapsToplevelThroughWireRequests(t *testing.T) {
	fakeData := make([]byte, 4*4*4)
	orig := mmapFunc
	mmapFunc = func(fd int, size int) ([]byte, error) { return fakeData, nil }
	defer func() { mmapFunc = orig }()

	be := &fakeBackend{}
	core := compositor.New(testConfig(), be, false)
	shared := NewConnRegistry()
	core.SetEmitter(shared)

	w := &fakeWriter{}
	d := NewDispatcher(core, core.Clients, w, shared)

	// wl_display.get_registry -> local id 2
	if err := d.Dispatch(req(displayObject, OpWlDisplayGetRegistry, wire.NewEncoder().NewID(2))); err != nil {
		t.Fatalf("get_registry: %v", err)
	}

	// wl_registry.bind(wl_compositor) -> local id 3
	bindReq := wire.NewEncoder().Uint32(1).String("wl_compositor").Uint32(1).NewID(3)
	if err := d.Dispatch(req(2, OpWlRegistryBind, bindReq)); err != nil {
		t.Fatalf("bind wl_compositor: %v", err)
	}
	// wl_registry.bind(wl_shm) -> local id 4
	bindShm := wire.NewEncoder().Uint32(2).String("wl_shm").Uint32(1).NewID(4)
	if err := d.Dispatch(req(2, OpWlRegistryBind, bindShm)); err != nil {
		t.Fatalf("bind wl_shm: %v", err)
	}
	// wl_registry.bind(xdg_wm_base) -> local id 5
	bindXdg := wire.NewEncoder().Uint32(3).String("xdg_wm_base").Uint32(1).NewID(5)
	if err := d.Dispatch(req(2, OpWlRegistryBind, bindXdg)); err != nil {
		t.Fatalf("bind xdg_wm_base: %v", err)
	}

	// wl_compositor.create_surface -> local id 6
	if err := d.Dispatch(req(3, OpWlCompositorCreateSurface, wire.NewEncoder().NewID(6))); err != nil {
		t.Fatalf("create_surface: %v", err)
	}

	// xdg_wm_base.get_xdg_surface(surface=6) -> local id 7
	getXdgSurf := wire.NewEncoder().NewID(7).Object(6)
	if err := d.Dispatch(req(5, OpXdgWmBaseGetXdgSurface, getXdgSurf)); err != nil {
		t.Fatalf("get_xdg_surface: %v", err)
	}

	// xdg_surface.get_toplevel -> local id 8; this also fires the initial
	// configure.
	if err := d.Dispatch(req(7, OpXdgSurfaceGetToplevel, wire.NewEncoder().NewID(8))); err != nil {
		t.Fatalf("get_toplevel: %v", err)
	}

	surfInfo := d.objects[6]
	if surfInfo == nil || surfInfo.surface == 0 {
		t.Fatal("expected wl_surface local id 6 to carry a mapped surface id")
	}
	s, ok := core.Surfaces.Get(surfInfo.surface)
	if !ok {
		t.Fatal("expected surface to be registered with the manager")
	}
	cfgSerial := s.Role.Toplevel.LastSentConfigureSerial
	if cfgSerial == 0 {
		t.Fatal("expected get_toplevel to have sent a configure")
	}

	// xdg_surface.ack_configure(serial)
	ack := wire.NewEncoder().Uint32(cfgSerial)
	if err := d.Dispatch(req(7, OpXdgSurfaceAckConfigure, ack)); err != nil {
		t.Fatalf("ack_configure: %v", err)
	}

	// wl_shm.create_pool(fd, size) -> local id 9
	createPool := wire.NewEncoder().NewID(9).Fd(0).Int32(int32(len(fakeData)))
	if err := d.Dispatch(req(4, OpWlShmCreatePool, createPool)); err != nil {
		t.Fatalf("create_pool: %v", err)
	}

	// wl_shm_pool.create_buffer(offset, w, h, stride, format) -> local id 10
	createBuf := wire.NewEncoder().NewID(10).Int32(0).Int32(4).Int32(4).Int32(16).Uint32(1)
	if err := d.Dispatch(req(9, OpWlShmPoolCreateBuffer, createBuf)); err != nil {
		t.Fatalf("create_buffer: %v", err)
	}

	// wl_surface.attach(buffer=10, x=0, y=0)
	attach := wire.NewEncoder().Object(10).Int32(0).Int32(0)
	if err := d.Dispatch(req(6, OpWlSurfaceAttach, attach)); err != nil {
		t.Fatalf("attach: %v", err)
	}

	// wl_surface.damage(0,0,4,4)
	damage := wire.NewEncoder().Int32(0).Int32(0).Int32(4).Int32(4)
	if err := d.Dispatch(req(6, OpWlSurfaceDamage, damage)); err != nil {
		t.Fatalf("damage: %v", err)
	}

	// wl_surface.commit
	if err := d.Dispatch(req(6, OpWlSurfaceCommit, wire.NewEncoder())); err != nil {
		t.Fatalf("commit: %v", err)
	}

	s, _ = core.Surfaces.Get(surfInfo.surface)
	if !s.Role.Toplevel.IsMapped {
		t.Fatal("expected toplevel to be mapped after attach+commit")
	}
	if be.uploaded != 1 {
		t.Fatalf("expected exactly one texture upload, got %d", be.uploaded)
	}
	if _, ok := core.Strip.ColumnOf(surfInfo.surface); !ok {
		t.Fatal("expected mapped surface to land in a workspace column")
	}
}

// TestDispatcherReleasesReplacedBuffer confirms the protocol layer's
// attach path actually reaches Core's buffer-release bookkeeping: a
// second attach that replaces a still-bound first buffer must emit
// wl_buffer.release to the first buffer's own wire object.
func TestDispatcherReleasesReplacedBuffer(t *testing.T) {
	fakeData := make([]byte, 4*4*4)
	orig := mmapFunc
	mmapFunc = func(fd int, size int) ([]byte, error) { return fakeData, nil }
	defer func() { mmapFunc = orig }()

	be := &fakeBackend{}
	core := compositor.New(testConfig(), be, false)
	shared := NewConnRegistry()
	core.SetEmitter(shared)
	w := &fakeWriter{}
	d := NewDispatcher(core, core.Clients, w, shared)

	mustDispatch := func(sender uint32, opcode uint16, enc *wire.Encoder) {
		t.Helper()
		if err := d.Dispatch(req(sender, opcode, enc)); err != nil {
			t.Fatalf("dispatch opcode %d on %d: %v", opcode, sender, err)
		}
	}

	mustDispatch(displayObject, OpWlDisplayGetRegistry, wire.NewEncoder().NewID(2))
	mustDispatch(2, OpWlRegistryBind, wire.NewEncoder().Uint32(1).String("wl_compositor").Uint32(1).NewID(3))
	mustDispatch(2, OpWlRegistryBind, wire.NewEncoder().Uint32(2).String("wl_shm").Uint32(1).NewID(4))
	mustDispatch(3, OpWlCompositorCreateSurface, wire.NewEncoder().NewID(6))
	mustDispatch(4, OpWlShmCreatePool, wire.NewEncoder().NewID(9).Fd(0).Int32(int32(len(fakeData))))
	mustDispatch(9, OpWlShmPoolCreateBuffer, wire.NewEncoder().NewID(10).Int32(0).Int32(4).Int32(4).Int32(16).Uint32(1))
	mustDispatch(9, OpWlShmPoolCreateBuffer, wire.NewEncoder().NewID(11).Int32(0).Int32(4).Int32(4).Int32(16).Uint32(1))

	mustDispatch(6, OpWlSurfaceAttach, wire.NewEncoder().Object(10).Int32(0).Int32(0))
	mustDispatch(6, OpWlSurfaceAttach, wire.NewEncoder().Object(11).Int32(0).Int32(0))

	found := false
	for _, msg := range w.sent {
		if msg.Header.Sender == 10 && msg.Header.Opcode == EvWlBufferRelease {
			found = true
		}
	}
	if !found {
		t.Fatal("expected wl_buffer.release on the replaced buffer's own object id")
	}
}

var _ client.Emitter = (*ConnRegistry)(nil)
