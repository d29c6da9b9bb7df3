// Package buffer accepts client-attached buffers, converts CPU-shared
// pixel data to canonical RGBA8 sRGB, scales for viewporter destinations,
// and tracks the release obligation the compositor owes the client.
package buffer

import (
	"github.com/axiomwm/axiom/internal/axiomerr"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

type Kind int

const (
	KindCPUShared Kind = iota
	KindGPUSharedFD
)

// Buffer is a client-owned buffer attached to some surface.
type Buffer struct {
	ID     ids.BufferID
	Client ids.ClientID
	Kind   Kind
	Format Format
	Width  uint32
	Height uint32
	Stride uint32

	// GPUHandle is an opaque backend-side handle (e.g. a dmabuf fd) for
	// KindGPUSharedFD buffers; nil for CPU-shared ones.
	GPUHandle any
}

// ReleaseEvent is wl_buffer.release: the compositor is done reading a
// buffer's contents and the client is free to reuse or destroy it.
type ReleaseEvent struct{}

// Upload is one entry in the renderer's pending texture-update queue. It
// must never be produced on the protocol thread's critical section for
// anything but a cheap enqueue — GPU writes happen in the renderer.
type Upload struct {
	Surface ids.SurfaceID
	Buffer  ids.BufferID
	Pixels  []byte // canonical RGBA8 sRGB; nil for GPU-shared (backend imports GPUHandle)
	Width   uint32
	Height  uint32
	Damage  *geom.Rect // nil = full-image upload
}

// Ingest tracks every live buffer and the release obligation the
// compositor owes its client.
type Ingest struct {
	gen     *ids.Generator
	buffers map[ids.BufferID]*Buffer
	// heldBy maps a buffer to the surface currently holding a borrow on
	// it: the compositor holds a borrow from attach until it sends release,
	// while the buffer itself remains client-owned throughout.
	heldBy map[ids.BufferID]ids.SurfaceID
	// attachedTo is the inverse: which buffer a surface currently holds,
	// so attaching a new one can trigger release of the old one.
	attachedTo map[ids.SurfaceID]ids.BufferID
}

func NewIngest(gen *ids.Generator) *Ingest {
	return &Ingest{
		gen:        gen,
		buffers:    make(map[ids.BufferID]*Buffer),
		heldBy:     make(map[ids.BufferID]ids.SurfaceID),
		attachedTo: make(map[ids.SurfaceID]ids.BufferID),
	}
}

// RegisterCPUBuffer validates and registers a new CPU-shared buffer.
// Invalid buffers (unsupported format, zero dimension) are a protocol
// error on the owning surface.
func (ing *Ingest) RegisterCPUBuffer(client ids.ClientID, format Format, width, height, stride uint32) (*Buffer, error) {
	if width == 0 || height == 0 {
		return nil, axiomerr.New(axiomerr.BufferUnreadable, client, 0, "zero-dimension buffer")
	}
	if !format.Supported() {
		return nil, axiomerr.New(axiomerr.BufferUnreadable, client, 0, "unsupported shm format")
	}
	b := &Buffer{
		ID:     ids.BufferID(ing.gen.Next()),
		Client: client,
		Kind:   KindCPUShared,
		Format: format,
		Width:  width,
		Height: height,
		Stride: stride,
	}
	ing.buffers[b.ID] = b
	return b, nil
}

// RegisterGPUBuffer registers a GPU-shareable (dmabuf-style) buffer,
// imported by the backend with no CPU copy.
func (ing *Ingest) RegisterGPUBuffer(client ids.ClientID, width, height uint32, handle any) (*Buffer, error) {
	if width == 0 || height == 0 {
		return nil, axiomerr.New(axiomerr.BufferUnreadable, client, 0, "zero-dimension buffer")
	}
	b := &Buffer{
		ID:        ids.BufferID(ing.gen.Next()),
		Client:    client,
		Kind:      KindGPUSharedFD,
		Width:     width,
		Height:    height,
		GPUHandle: handle,
	}
	ing.buffers[b.ID] = b
	return b, nil
}

func (ing *Ingest) Get(id ids.BufferID) (*Buffer, bool) {
	b, ok := ing.buffers[id]
	return b, ok
}

// Attach records that surface now borrows buf, and returns the
// previously-held buffer id (0 if none) that the caller must emit a
// release event for. Buffers are also released without a replacing
// attach when their surface unmaps (see ReleaseForSurface).
func (ing *Ingest) Attach(surface ids.SurfaceID, buf ids.BufferID) (previouslyHeld ids.BufferID) {
	previouslyHeld = ing.attachedTo[surface]
	if previouslyHeld != 0 {
		delete(ing.heldBy, previouslyHeld)
	}
	ing.attachedTo[surface] = buf
	ing.heldBy[buf] = surface
	return previouslyHeld
}

// Release drops the compositor's borrow on buf. Safe to call more than
// once; only the first call (per attach) should trigger a release event,
// which the caller is responsible for emitting via the Client Registry.
func (ing *Ingest) Release(buf ids.BufferID) {
	if surf, ok := ing.heldBy[buf]; ok {
		delete(ing.heldBy, buf)
		if ing.attachedTo[surf] == buf {
			delete(ing.attachedTo, surf)
		}
	}
}

// ReleaseForSurface releases whatever buffer a surface currently holds,
// e.g. on unmap.
func (ing *Ingest) ReleaseForSurface(surface ids.SurfaceID) (released ids.BufferID) {
	buf := ing.attachedTo[surface]
	if buf == 0 {
		return 0
	}
	ing.Release(buf)
	return buf
}

// BuildUpload converts a CPU-shared buffer's raw bytes to canonical RGBA8
// and packages it as a pending texture Upload; GPU-shared buffers pass
// through with Pixels == nil so the backend imports the handle directly.
// viewportDst is the surface's wp_viewport destination size, or the zero
// Size if no viewport is set; when it differs from the buffer's own
// dimensions the canonical image is scaled to it before enqueuing.
func (ing *Ingest) BuildUpload(surface ids.SurfaceID, buf *Buffer, raw []byte, damage *geom.Rect, viewportDst geom.Size) (Upload, error) {
	switch buf.Kind {
	case KindCPUShared:
		rgba, err := ToCanonicalRGBA(buf.Format, buf.Width, buf.Height, buf.Stride, raw)
		if err != nil {
			return Upload{}, axiomerr.Wrap(axiomerr.BufferUnreadable, buf.Client, surface, "format conversion failed", err)
		}
		width, height := buf.Width, buf.Height
		if viewportDst.W != 0 && viewportDst.H != 0 {
			rgba = ScaleViewport(rgba, width, height, viewportDst.W, viewportDst.H)
			width, height = viewportDst.W, viewportDst.H
		}
		return Upload{Surface: surface, Buffer: buf.ID, Pixels: rgba, Width: width, Height: height, Damage: damage}, nil
	case KindGPUSharedFD:
		return Upload{Surface: surface, Buffer: buf.ID, Width: buf.Width, Height: buf.Height, Damage: damage}, nil
	default:
		return Upload{}, axiomerr.New(axiomerr.BufferUnreadable, buf.Client, surface, "unknown buffer kind")
	}
}
