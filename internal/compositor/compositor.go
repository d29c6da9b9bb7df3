// Package compositor wires every subsystem — client registry, surface
// lifecycle, buffer ingest, damage tracking, workspace layout, window
// stack, focus arbitration, and the render scheduler — into the single
// goroutine that owns protocol state. It is the only place that calls
// more than one subsystem per operation; everything downstream of it
// stays a narrow, independently testable package.
package compositor

import (
	"time"

	"github.com/axiomwm/axiom/internal/axiomerr"
	"github.com/axiomwm/axiom/internal/buffer"
	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/config"
	"github.com/axiomwm/axiom/internal/damage"
	"github.com/axiomwm/axiom/internal/focus"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
	"github.com/axiomwm/axiom/internal/log"
	"github.com/axiomwm/axiom/internal/render"
	"github.com/axiomwm/axiom/internal/stack"
	"github.com/axiomwm/axiom/internal/surface"
	"github.com/axiomwm/axiom/internal/workspace"
)

// Core owns every piece of compositor state reachable from a protocol
// request. All of its methods are meant to be called from a single
// goroutine; nothing here takes a lock because nothing here is meant to
// be shared across goroutines.
type Core struct {
	cfg config.Config
	gen *ids.Generator

	Clients   *client.Registry
	Surfaces  *surface.Manager
	Buffers   *buffer.Ingest
	Damage    *damage.Tracker
	Strip     *workspace.Strip
	Stack     *stack.Stack
	Focus     *focus.Arbiter
	Renderer  *render.Renderer
	Scheduler *render.Scheduler
	Workers   *render.Pool

	// surfaceObject tracks, for each mapped surface, the object id events
	// naming it should be addressed to (its wl_surface resource).
	surfaceObject map[ids.SurfaceID]ids.ObjectID
	// bufferObject tracks the wl_buffer resource for every live buffer id,
	// so a release obligation can be emitted to the right object.
	bufferObject map[ids.BufferID]client.Resource

	// Feedback queues wl_surface.frame callbacks and wp_presentation
	// requests until the scheduler actually presents a frame.
	Feedback *render.FeedbackQueue
	emitter  client.Emitter
	now      time.Time
}

// New assembles a Core from a config, ready to accept client connections
// and drive frames once a render backend is attached.
func New(cfg config.Config, backend render.Backend, stickyFocus bool) *Core {
	gen := &ids.Generator{}
	registry := client.NewRegistry(gen)

	c := &Core{
		cfg:           cfg,
		gen:           gen,
		Clients:       registry,
		Surfaces:      surface.NewManager(gen, cfg.ConfigureTimeout),
		Buffers:       buffer.NewIngest(gen),
		Damage:        damage.NewTracker(cfg.MaxDamageRegions),
		Strip: workspace.NewStrip(gen, cfg.OutputWidth, cfg.ColumnGap, cfg.DefaultColumnWidth,
			cfg.MinColumnWidth, cfg.MaxColumnWidth, cfg.ScrollSettleEpsilon,
			cfg.ScrollSpringStiffness, cfg.ScrollSpringDamping),
		Stack:         stack.New(),
		Focus:         focus.NewArbiter(registry, stickyFocus),
		Renderer:      render.NewRenderer(backend),
		Scheduler:     render.NewScheduler(cfg.FrameInterval()),
		Workers:       render.NewPool(4, 32),
		surfaceObject: make(map[ids.SurfaceID]ids.ObjectID),
		bufferObject:  make(map[ids.BufferID]client.Resource),
		Feedback:      render.NewFeedbackQueue(),
	}
	c.Scheduler.HasDamage = c.Damage.HasDamage
	c.Scheduler.RenderOnce = c.renderOnce
	c.Scheduler.AdvanceAnimation = c.advanceAnimation
	c.Scheduler.OnPresented = c.onPresented
	return c
}

// SetEmitter records the connection-backed Emitter used to deliver
// self-initiated events (buffer release, frame callbacks, presentation
// feedback) that aren't a direct response to a single protocol request.
func (c *Core) SetEmitter(emitter client.Emitter) {
	c.emitter = emitter
}

// RegisterFrameCallback queues a wl_callback.done for surf's next
// presented frame.
func (c *Core) RegisterFrameCallback(surf ids.SurfaceID, target client.Resource) {
	c.Feedback.RegisterFrameCallback(surf, target)
}

// RegisterPresentationFeedback queues a wp_presentation_feedback.presented
// for surf's next presented frame.
func (c *Core) RegisterPresentationFeedback(surf ids.SurfaceID, target client.Resource) {
	c.Feedback.RegisterPresentationFeedback(surf, target)
}

func (c *Core) onPresented() {
	if c.emitter == nil {
		return
	}
	c.Feedback.Fire(c.now, c.cfg.FrameInterval(), func(surf ids.SurfaceID, target client.Resource, event any) {
		if err := c.Clients.EmitDirect(surf, c.surfaceObject[surf], target, c.emitter, event); err != nil {
			log.Warn("feedback emit failed", "surface", surf, "error", err)
		}
	})
}

// BindSurfaceObject records which client object events addressed to a
// surface should target; the client registry's EmitToClient/EmitDirect
// calls are the only path anything in the compositor uses to reach it.
func (c *Core) BindSurfaceObject(surf ids.SurfaceID, obj ids.ObjectID) {
	c.surfaceObject[surf] = obj
}

// BindBufferObject records which client resource (its wl_buffer) a buffer
// release event must be addressed to.
func (c *Core) BindBufferObject(buf ids.BufferID, res client.Resource) {
	c.bufferObject[buf] = res
}

// AttachBuffer ingests a newly attached buffer and, if the surface already
// held a different one, immediately releases it back to the client: a
// buffer the compositor no longer reads from must not sit unreleased.
func (c *Core) AttachBuffer(surf ids.SurfaceID, buf ids.BufferID, emitter client.Emitter) ids.BufferID {
	prev := c.Buffers.Attach(surf, buf)
	if prev != 0 {
		c.releaseBuffer(surf, prev, emitter)
	}
	return prev
}

// releaseBuffer drops the compositor's borrow on buf and, if it has a
// known wl_buffer resource, emits wl_buffer.release to its owning client.
func (c *Core) releaseBuffer(surf ids.SurfaceID, buf ids.BufferID, emitter client.Emitter) {
	c.Buffers.Release(buf)
	res, ok := c.bufferObject[buf]
	if !ok || emitter == nil {
		return
	}
	surfObj := c.surfaceObject[surf]
	if err := c.Clients.EmitDirect(surf, surfObj, res, emitter, buffer.ReleaseEvent{}); err != nil {
		log.Warn("buffer release emit failed", "surface", surf, "buffer", buf, "error", err)
	}
}

// Commit applies a surface's pending state, threading the resulting
// buffer/damage/mapping side effects through buffer ingest, damage
// tracking, workspace placement, the window stack, and focus follow.
// rawPixels is the attached buffer's backing memory (mmap'd wl_shm pool
// content, or nil for a GPU-shared buffer); callers that track buffer
// readers pass whatever the protocol layer has mapped for this commit.
func (c *Core) Commit(surf ids.SurfaceID, rawPixels []byte, pool []client.Resource, emitter client.Emitter) (surface.CommitResult, error) {
	res, err := c.Surfaces.Commit(surf)
	if err != nil {
		return res, err
	}

	c.Damage.AddRegions(surf, res.Damage, res.BufferAttached)
	if res.FullDamage {
		c.Damage.MarkFullDamage(surf)
	}

	if res.BufferAttached {
		if buf, ok := c.Buffers.Get(res.Buffer); ok {
			var damagePtr *geom.Rect
			if len(res.Damage) > 0 {
				damagePtr = &res.Damage[0]
			}
			var viewportDst geom.Size
			if res.State.ViewportDst != nil {
				viewportDst = *res.State.ViewportDst
			}
			upload, uerr := c.Buffers.BuildUpload(surf, buf, rawPixels, damagePtr, viewportDst)
			if uerr != nil {
				log.Warn("buffer upload rejected", "surface", surf, "error", uerr)
			} else if rerr := c.Renderer.DrainUploads([]buffer.Upload{upload}); rerr != nil {
				log.Warn("texture upload failed", "surface", surf, "error", rerr)
			}
		}
	}

	if res.JustMapped {
		col := c.Strip.MapWindow(surf, c.cfg.DefaultColumnWidth, workspace.PlacementAppendRight)
		c.Stack.Push(surf)
		if col != nil {
			c.followFocusTo(surf, pool, emitter)
		}
	}

	if res.JustUnmapped {
		c.unmapSurface(surf, pool, emitter)
	}

	return res, nil
}

func (c *Core) followFocusTo(surf ids.SurfaceID, pool []client.Resource, emitter client.Emitter) {
	obj := c.surfaceObject[surf]
	target := focus.Target{Surface: surf, Object: obj}
	c.Focus.FollowColumnFocus(target, pool, emitter)
}

// UnmapSurface tears down a surface's layout, stacking, damage, and
// focus state. Safe to call directly (e.g. on destroy) as well as from
// Commit's unmap path.
func (c *Core) UnmapSurface(surf ids.SurfaceID, pool []client.Resource, emitter client.Emitter) {
	c.unmapSurface(surf, pool, emitter)
}

func (c *Core) unmapSurface(surf ids.SurfaceID, pool []client.Resource, emitter client.Emitter) {
	c.Strip.UnmapWindow(surf)
	c.Stack.Remove(surf)
	if vacated, had := c.Damage.MarkVacated(surf); had {
		c.Damage.AddRegions(surf, []geom.Rect{vacated}, false)
		c.Damage.MarkFullDamage(surf)
	}
	c.Damage.RemoveSurface(surf)
	c.Renderer.DestroyTexture(surf)
	c.Focus.ClearIfSurface(surf, pool, emitter)
	if held := c.Buffers.ReleaseForSurface(surf); held != 0 {
		c.releaseBuffer(surf, held, emitter)
		delete(c.bufferObject, held)
	}
	delete(c.surfaceObject, surf)
}

// SetPointerFocus moves pointer focus to target and, if it lands outside
// the currently grabbed popup's chain, dismisses that popup chain first —
// xdg_popup's outside-click-dismisses behavior, driven here by a pointer
// focus change rather than a raw click since nothing upstream of Core
// sources one.
func (c *Core) SetPointerFocus(target focus.Target, pool []client.Resource, emitter client.Emitter) {
	if root, grabbed := c.Surfaces.GrabbedPopupRoot(); grabbed && !c.Surfaces.InPopupChain(root, target.Surface) {
		c.DismissPopup(root, pool, emitter)
	}
	c.Focus.SetPointerFocus(target, pool, emitter)
}

// DismissPopup tears down a popup and every popup beneath it in its
// parent/child chain, cascading the same unmap side effects Commit's
// unmap path applies to each.
func (c *Core) DismissPopup(root ids.SurfaceID, pool []client.Resource, emitter client.Emitter) {
	for _, surf := range c.Surfaces.DismissPopupChain(root) {
		c.unmapSurface(surf, pool, emitter)
	}
}

// ExpireConfigures force-unmaps any surface that sat past its ack
// deadline, cascading the same teardown Commit's unmap path uses.
func (c *Core) ExpireConfigures(now time.Time, pool []client.Resource, emitter client.Emitter) {
	for _, surf := range c.Surfaces.ExpiredSurfaces(now) {
		c.Surfaces.ForceUnmap(surf)
		c.unmapSurface(surf, pool, emitter)
	}
}

func (c *Core) advanceAnimation(dt time.Duration) bool {
	return c.Strip.Tick(dt.Seconds())
}

// renderOnce computes the current frame's window placements and issues
// it to the renderer; called by the scheduler only when damage or
// in-flight scroll motion actually warrants a frame.
func (c *Core) renderOnce() error {
	placements := c.Strip.Layout(c.cfg.OutputHeight)
	positions := make(map[ids.SurfaceID]geom.Rect, len(placements))
	windows := make(map[ids.SurfaceID]render.WindowInfo, len(placements))

	for _, p := range placements {
		if p.OffScreen || p.Column == nil {
			continue
		}
		for _, surf := range p.Column.Members {
			positions[surf] = p.Rect
			opaque := false
			if s, ok := c.Surfaces.Get(surf); ok {
				if op := s.Current().OpaqueRegion; op != nil {
					opaque = op.W >= p.Rect.W && op.H >= p.Rect.H
				}
			}
			windows[surf] = render.WindowInfo{Surface: surf, Rect: p.Rect, FullyOpaque: opaque, Opacity: 1.0}
		}
	}

	frameDamage := damage.ComputeFrameDamage(c.Damage, positions, true)
	outputSize := geom.Size{W: uint32(c.cfg.OutputWidth), H: uint32(c.cfg.OutputHeight)}

	err := c.Renderer.RenderFrame(c.Stack.Order(), windows, frameDamage, outputSize)
	c.Damage.EndFrame(positions)
	if err != nil {
		return axiomerr.Wrap(axiomerr.GpuSubmissionError, 0, 0, "render frame", err)
	}
	return nil
}

// Tick drives one scheduler iteration, used by the event loop's frame
// timer. ExpireConfigures should be called by the caller first so
// force-unmaps land before layout runs.
func (c *Core) Tick(now time.Time) bool {
	c.now = now
	return c.Scheduler.Tick(now)
}

// Shutdown releases the worker pool and render backend resources.
func (c *Core) Shutdown() {
	c.Workers.Close()
}
