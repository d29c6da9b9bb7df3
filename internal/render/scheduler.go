package render

import (
	"time"

	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

// Scheduler drives the frame tick: advance animation, poll configure
// timeouts, check damage, invoke the Renderer or sleep until the next
// event.
type Scheduler struct {
	interval time.Duration

	// AdvanceAnimation runs one workspace animation tick and reports
	// whether the scene is still in motion (and therefore dirty).
	AdvanceAnimation func(dt time.Duration) (stillMoving bool)
	// PollTimeouts force-unmaps any surface whose configure deadline has
	// passed as of now.
	PollTimeouts func(now time.Time)
	// HasDamage reports whether any surface has pending damage.
	HasDamage func() bool
	// RenderOnce performs one full render pass; called only when there is
	// damage or the scene is in motion.
	RenderOnce func() error
	// OnPresented runs after a successful render: release safe buffer
	// borrows and deliver pending frame callbacks.
	OnPresented func()

	lastTick time.Time
}

func NewScheduler(frameInterval time.Duration) *Scheduler {
	return &Scheduler{interval: frameInterval}
}

// Tick runs a single scheduler iteration at time now. It returns true if
// a frame was rendered.
func (s *Scheduler) Tick(now time.Time) bool {
	dt := s.interval
	if !s.lastTick.IsZero() {
		dt = now.Sub(s.lastTick)
	}
	s.lastTick = now

	if s.PollTimeouts != nil {
		s.PollTimeouts(now)
	}

	moving := false
	if s.AdvanceAnimation != nil {
		moving = s.AdvanceAnimation(dt)
	}

	damaged := s.HasDamage != nil && s.HasDamage()
	if !moving && !damaged {
		return false
	}

	if s.RenderOnce != nil {
		if err := s.RenderOnce(); err != nil {
			return false
		}
	}
	if s.OnPresented != nil {
		s.OnPresented()
	}
	return true
}

// FrameTarget bundles the per-frame render inputs the scheduler's
// RenderOnce closure typically captures, for callers assembling one.
type FrameTarget struct {
	Order         []ids.SurfaceID
	Windows       map[ids.SurfaceID]WindowInfo
	DamageRegions []geom.Rect
	OutputSize    geom.Size
}
