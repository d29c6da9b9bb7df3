package compositor

import (
	"testing"
	"time"

	"github.com/axiomwm/axiom/internal/buffer"
	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/config"
	"github.com/axiomwm/axiom/internal/focus"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
	"github.com/axiomwm/axiom/internal/render"
	"github.com/axiomwm/axiom/internal/surface"
)

type fakeBackend struct {
	presented int
	uploaded  int
	destroyed []ids.TextureID
}

func (f *fakeBackend) PresentFrame(outputSize geom.Size, draws []render.Draw) error {
	f.presented++
	return nil
}
func (f *fakeBackend) UploadTexture(id ids.TextureID, pixels []byte, w, h uint32, damage *geom.Rect) error {
	f.uploaded++
	return nil
}
func (f *fakeBackend) DestroyTexture(id ids.TextureID) { f.destroyed = append(f.destroyed, id) }
func (f *fakeBackend) OnVsync(cb func())               {}

type recorder struct {
	received []ids.ObjectID
}

func (r *recorder) Emit(obj ids.ObjectID, event any) {
	r.received = append(r.received, obj)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.OutputWidth = 1000
	cfg.OutputHeight = 1000
	cfg.DefaultColumnWidth = 400
	cfg.MinColumnWidth = 100
	cfg.MaxColumnWidth = 1000
	return cfg
}

// mapToplevel drives one client's surface through create/role/configure/
// ack/attach/commit, the handshake every mapped window goes through, and
// returns the ids a test needs to keep driving it.
func mapToplevel(t *testing.T, c *Core, clientID ids.ClientID, obj ids.ObjectID, w, h uint32) (ids.SurfaceID, surface.CommitResult) {
	t.Helper()
	s := c.Surfaces.CreateSurface(clientID)
	if _, err := c.Surfaces.SetRole(s.ID, surface.RoleToplevel); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	c.BindSurfaceObject(s.ID, obj)

	cfgSerial, err := c.Surfaces.SendConfigure(s.ID, time.Unix(0, 0), geom.Size{W: w, H: h}, 0)
	if err != nil {
		t.Fatalf("SendConfigure: %v", err)
	}
	if err := c.Surfaces.AckConfigure(s.ID, cfgSerial.Serial); err != nil {
		t.Fatalf("AckConfigure: %v", err)
	}

	reg, rerr := attachBuffer(c, clientID, w, h)
	if rerr != nil {
		t.Fatalf("attach buffer: %v", rerr)
	}
	if err := c.Surfaces.MutateState(s.ID, func(st *surface.State) {
		st.Buffer = reg
		st.Damage = []geom.Rect{{X: 0, Y: 0, W: w, H: h}}
	}); err != nil {
		t.Fatalf("MutateState: %v", err)
	}
	rec := &recorder{}
	c.AttachBuffer(s.ID, reg, rec)

	pixels := make([]byte, int(w)*int(h)*4)
	res, err := c.Commit(s.ID, pixels, nil, rec)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return s.ID, res
}

func attachBuffer(c *Core, clientID ids.ClientID, w, h uint32) (ids.BufferID, error) {
	b, err := c.Buffers.RegisterCPUBuffer(clientID, buffer.FormatXRGB8888, w, h, w*4)
	if err != nil {
		return 0, err
	}
	return b.ID, nil
}

func TestCommitMapsWindowAndPlacesInStrip(t *testing.T) {
	be := &fakeBackend{}
	c := New(testConfig(), be, false)

	reg := c.Clients
	cl := reg.Connect()
	obj, err := reg.Register(cl, client.ResourceSurface)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	surf, res := mapToplevel(t, c, cl, obj, 400, 300)
	if !res.JustMapped {
		t.Fatal("expected first commit with an attached buffer to report JustMapped")
	}
	if be.uploaded != 1 {
		t.Fatalf("expected exactly one texture upload, got %d", be.uploaded)
	}
	if col, ok := c.Strip.ColumnOf(surf); !ok || col == nil {
		t.Fatal("expected mapped surface to land in a workspace column")
	}
	order := c.Stack.Order()
	if len(order) != 1 || order[0] != surf {
		t.Fatalf("expected stack order [%d], got %v", surf, order)
	}
}

func TestTickRendersAfterDamagingCommit(t *testing.T) {
	be := &fakeBackend{}
	c := New(testConfig(), be, false)

	reg := c.Clients
	cl := reg.Connect()
	obj, _ := reg.Register(cl, client.ResourceSurface)
	mapToplevel(t, c, cl, obj, 400, 300)

	if !c.Tick(time.Unix(1, 0)) {
		t.Fatal("expected Tick to report a rendered frame after a mapping commit")
	}
	if be.presented == 0 {
		t.Fatal("expected PresentFrame to have been called")
	}

	if c.Tick(time.Unix(1, int64(time.Second/60))) {
		t.Fatal("expected a second back-to-back Tick with no new damage to render nothing")
	}
}

func TestUnmapSurfaceClearsFocusAndStacking(t *testing.T) {
	be := &fakeBackend{}
	c := New(testConfig(), be, false)

	reg := c.Clients
	cl := reg.Connect()
	obj, _ := reg.Register(cl, client.ResourceSurface)
	surf, _ := mapToplevel(t, c, cl, obj, 400, 300)

	kbd, _ := reg.Register(cl, client.ResourceKeyboard)
	pool := []client.Resource{{Object: kbd, Client: cl, Kind: client.ResourceKeyboard}}
	rec := &recorder{}
	c.Focus.SetKeyboardFocus(focus.Target{Surface: surf, Object: c.surfaceObject[surf]}, pool, rec)
	if c.Focus.KeyboardFocus().Surface != surf {
		t.Fatal("expected keyboard focus set on the mapped surface")
	}

	c.UnmapSurface(surf, pool, rec)

	if c.Focus.KeyboardFocus().Surface == surf {
		t.Fatal("expected focus cleared on unmap")
	}
	if _, ok := c.Strip.ColumnOf(surf); ok {
		t.Fatal("expected surface removed from workspace strip on unmap")
	}
	if _, ok := c.Stack.PositionOf(surf); ok {
		t.Fatal("expected surface removed from window stack on unmap")
	}
	if len(be.destroyed) != 1 || be.destroyed[0] != ids.TextureID(surf) {
		t.Fatalf("expected texture destroyed for unmapped surface, got %v", be.destroyed)
	}
}

func TestAttachBufferReleasesPreviouslyHeldBuffer(t *testing.T) {
	be := &fakeBackend{}
	c := New(testConfig(), be, false)

	reg := c.Clients
	cl := reg.Connect()
	obj, _ := reg.Register(cl, client.ResourceSurface)
	surf, _ := mapToplevel(t, c, cl, obj, 400, 300)

	firstBuf, _ := c.Buffers.RegisterCPUBuffer(cl, buffer.FormatXRGB8888, 400, 300, 1600)
	c.AttachBuffer(surf, firstBuf.ID, &recorder{})

	bufObj, _ := reg.Register(cl, client.ResourceOther)
	c.BindBufferObject(firstBuf.ID, client.Resource{Object: bufObj, Client: cl, Kind: client.ResourceOther})

	secondBuf, _ := c.Buffers.RegisterCPUBuffer(cl, buffer.FormatXRGB8888, 400, 300, 1600)
	rec := &recorder{}
	prev := c.AttachBuffer(surf, secondBuf.ID, rec)

	if prev != firstBuf.ID {
		t.Fatalf("expected replaced buffer %v returned, got %v", firstBuf.ID, prev)
	}
	if len(rec.received) != 1 || rec.received[0] != bufObj {
		t.Fatalf("expected exactly one release event addressed to the old buffer object, got %v", rec.received)
	}
}

func TestUnmapSurfaceReleasesHeldBuffer(t *testing.T) {
	be := &fakeBackend{}
	c := New(testConfig(), be, false)

	reg := c.Clients
	cl := reg.Connect()
	obj, _ := reg.Register(cl, client.ResourceSurface)
	surf, _ := mapToplevel(t, c, cl, obj, 400, 300)

	buf, _ := c.Buffers.RegisterCPUBuffer(cl, buffer.FormatXRGB8888, 400, 300, 1600)
	c.AttachBuffer(surf, buf.ID, &recorder{})
	bufObj, _ := reg.Register(cl, client.ResourceOther)
	c.BindBufferObject(buf.ID, client.Resource{Object: bufObj, Client: cl, Kind: client.ResourceOther})

	rec := &recorder{}
	c.UnmapSurface(surf, nil, rec)

	if len(rec.received) != 1 || rec.received[0] != bufObj {
		t.Fatalf("expected release event to the held buffer's object on unmap, got %v", rec.received)
	}
	if released := c.Buffers.ReleaseForSurface(surf); released != 0 {
		t.Fatalf("expected no buffer still held after unmap, got %v", released)
	}
}

func TestExpireConfiguresForceUnmapsHungSurface(t *testing.T) {
	be := &fakeBackend{}
	cfg := testConfig()
	cfg.ConfigureTimeout = time.Millisecond
	c := New(cfg, be, false)

	reg := c.Clients
	cl := reg.Connect()
	obj, _ := reg.Register(cl, client.ResourceSurface)

	s := c.Surfaces.CreateSurface(cl)
	if _, err := c.Surfaces.SetRole(s.ID, surface.RoleToplevel); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	c.BindSurfaceObject(s.ID, obj)
	if _, err := c.Surfaces.SendConfigure(s.ID, time.Unix(0, 0), geom.Size{W: 200, H: 200}, 0); err != nil {
		t.Fatalf("SendConfigure: %v", err)
	}

	rec := &recorder{}
	c.ExpireConfigures(time.Unix(0, 0).Add(time.Second), nil, rec)

	if _, ok := c.Surfaces.Get(s.ID); !ok {
		t.Fatal("expected surface to still exist after force-unmap (only its lifecycle resets)")
	}
}
