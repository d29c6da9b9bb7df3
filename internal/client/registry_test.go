package client

import (
	"testing"

	"github.com/axiomwm/axiom/internal/ids"
)

type recorder struct {
	received []ids.ObjectID
}

func (r *recorder) Emit(obj ids.ObjectID, event any) {
	r.received = append(r.received, obj)
}

func TestClientOfAndSameClient(t *testing.T) {
	reg := NewRegistry(&ids.Generator{})
	a := reg.Connect()
	b := reg.Connect()

	sa, err := reg.Register(a, ResourceSurface)
	if err != nil {
		t.Fatal(err)
	}
	sb, err := reg.Register(b, ResourceSurface)
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := reg.ClientOf(sa); !ok || got != a {
		t.Fatalf("ClientOf(sa) = %v, %v; want %v, true", got, ok, a)
	}
	if reg.SameClient(sa, sb) {
		t.Fatal("SameClient(sa, sb) = true; want false")
	}
	if !reg.SameClient(sa, sa) {
		t.Fatal("SameClient(sa, sa) = false; want true")
	}
}

// TestEmitToClientIsolation is the registry-level slice of seed scenario S2:
// events routed through EmitToClient never cross client boundaries.
func TestEmitToClientIsolation(t *testing.T) {
	reg := NewRegistry(&ids.Generator{})
	a := reg.Connect()
	b := reg.Connect()

	sa, _ := reg.Register(a, ResourceSurface)
	sb, _ := reg.Register(b, ResourceSurface)
	ka, _ := reg.Register(a, ResourceKeyboard)
	kb, _ := reg.Register(b, ResourceKeyboard)

	pool := []Resource{
		{Object: ka, Client: a, Kind: ResourceKeyboard},
		{Object: kb, Client: b, Kind: ResourceKeyboard},
	}

	recA := &recorder{}
	reg.EmitToClient(ids.SurfaceID(sa), sa, pool, recA, "enter")
	if len(recA.received) != 1 || recA.received[0] != ka {
		t.Fatalf("enter on Sa reached %v; want exactly [ka]", recA.received)
	}

	recB := &recorder{}
	reg.EmitToClient(ids.SurfaceID(sb), sb, pool, recB, "enter")
	if len(recB.received) != 1 || recB.received[0] != kb {
		t.Fatalf("enter on Sb reached %v; want exactly [kb]", recB.received)
	}
}

func TestDisconnectCascades(t *testing.T) {
	reg := NewRegistry(&ids.Generator{})
	a := reg.Connect()
	sa, _ := reg.Register(a, ResourceSurface)

	reg.Disconnect(a)

	if _, ok := reg.ClientOf(sa); ok {
		t.Fatal("object survived client disconnect")
	}
	if _, ok := reg.Client(a); ok {
		t.Fatal("client survived its own disconnect")
	}
}

func TestEmitDirectBlocksCrossClient(t *testing.T) {
	reg := NewRegistry(&ids.Generator{})
	a := reg.Connect()
	b := reg.Connect()
	sa, _ := reg.Register(a, ResourceSurface)
	kb, _ := reg.Register(b, ResourceKeyboard)

	rec := &recorder{}
	err := reg.EmitDirect(ids.SurfaceID(sa), sa, Resource{Object: kb, Client: b}, rec, "enter")
	if err == nil {
		t.Fatal("expected protocol violation for cross-client EmitDirect")
	}
	if len(rec.received) != 0 {
		t.Fatal("event leaked across clients")
	}
}
