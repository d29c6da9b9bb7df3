package render

import (
	"time"

	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/ids"
)

// FrameCallbackEvent is wl_callback.done for a wl_surface.frame request:
// fired the next time that surface's frame is actually presented.
type FrameCallbackEvent struct {
	TimestampMS uint32
}

// PresentationFeedbackEvent is wp_presentation_feedback.presented,
// delivered once a frame a client asked to be told about has reached the
// display, carrying the timing data wp_presentation promises.
type PresentationFeedbackEvent struct {
	PresentedAt time.Time
	Refresh     time.Duration
	Seq         uint64
}

type pendingCallback struct {
	surface ids.SurfaceID
	target  client.Resource
}

// FeedbackQueue tracks wl_surface.frame callbacks and wp_presentation
// feedback requests registered against a not-yet-presented frame. Both
// request kinds share the same "fires on next actual present" semantics,
// so one queue drains them together from Scheduler.OnPresented.
type FeedbackQueue struct {
	seq       uint64
	callbacks []pendingCallback
	feedbacks []pendingCallback
}

func NewFeedbackQueue() *FeedbackQueue {
	return &FeedbackQueue{}
}

// RegisterFrameCallback queues a wl_callback.done for the next presented
// frame, regardless of whether that frame actually repaints surface —
// matching wl_surface.frame, which fires on any output repaint.
func (q *FeedbackQueue) RegisterFrameCallback(surface ids.SurfaceID, target client.Resource) {
	q.callbacks = append(q.callbacks, pendingCallback{surface: surface, target: target})
}

// RegisterPresentationFeedback queues a wp_presentation_feedback.presented
// for the next presented frame.
func (q *FeedbackQueue) RegisterPresentationFeedback(surface ids.SurfaceID, target client.Resource) {
	q.feedbacks = append(q.feedbacks, pendingCallback{surface: surface, target: target})
}

// Pending reports whether any callback or feedback request is queued.
func (q *FeedbackQueue) Pending() bool {
	return len(q.callbacks) > 0 || len(q.feedbacks) > 0
}

// Fire delivers every queued callback and feedback request through emit
// and resets the queue for the next frame. now and refresh come from the
// caller's render clock, not a monotonic syscall, so this stays testable.
func (q *FeedbackQueue) Fire(now time.Time, refresh time.Duration, emit func(surface ids.SurfaceID, target client.Resource, event any)) {
	q.seq++
	msec := uint32(now.UnixMilli())
	for _, cb := range q.callbacks {
		emit(cb.surface, cb.target, FrameCallbackEvent{TimestampMS: msec})
	}
	q.callbacks = q.callbacks[:0]
	for _, fb := range q.feedbacks {
		emit(fb.surface, fb.target, PresentationFeedbackEvent{PresentedAt: now, Refresh: refresh, Seq: q.seq})
	}
	q.feedbacks = q.feedbacks[:0]
}
