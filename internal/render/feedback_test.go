package render

import (
	"testing"
	"time"

	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/ids"
)

func TestFeedbackQueueFiresFrameCallbackOnce(t *testing.T) {
	q := NewFeedbackQueue()
	target := client.Resource{Object: 42, Client: 1}
	q.RegisterFrameCallback(ids.SurfaceID(7), target)

	var got []any
	q.Fire(time.Unix(100, 0), time.Second/60, func(surf ids.SurfaceID, tgt client.Resource, event any) {
		got = append(got, event)
	})

	if len(got) != 1 {
		t.Fatalf("expected exactly one delivered event, got %d", len(got))
	}
	if _, ok := got[0].(FrameCallbackEvent); !ok {
		t.Fatalf("expected a FrameCallbackEvent, got %T", got[0])
	}
	if q.Pending() {
		t.Fatal("expected queue drained after Fire")
	}
}

func TestFeedbackQueuePresentationCarriesTimingData(t *testing.T) {
	q := NewFeedbackQueue()
	target := client.Resource{Object: 9, Client: 1}
	q.RegisterPresentationFeedback(ids.SurfaceID(3), target)

	now := time.Unix(200, 0)
	refresh := time.Second / 60
	var got PresentationFeedbackEvent
	q.Fire(now, refresh, func(surf ids.SurfaceID, tgt client.Resource, event any) {
		got = event.(PresentationFeedbackEvent)
	})

	if !got.PresentedAt.Equal(now) {
		t.Fatalf("expected PresentedAt %v, got %v", now, got.PresentedAt)
	}
	if got.Refresh != refresh {
		t.Fatalf("expected refresh %v, got %v", refresh, got.Refresh)
	}
	if got.Seq != 1 {
		t.Fatalf("expected first fire to use seq 1, got %d", got.Seq)
	}
}
