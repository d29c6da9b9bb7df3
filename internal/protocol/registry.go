package protocol

import (
	"github.com/axiomwm/axiom/internal/client"
	"github.com/axiomwm/axiom/internal/ids"
)

// boundTarget is where a global object id's events should land: which
// connection's emitter, the connection-local id the client knows it by,
// and the resource kind (keyboard vs pointer events share a Go event
// type but different wire opcodes).
type boundTarget struct {
	emitter *connEmitter
	local   uint32
	kind    client.ResourceKind
}

// ConnRegistry is the single client.Emitter shared by every connection's
// Dispatcher. Global object ids are unique compositor-wide (ids.Generator
// is shared), so one registry can route an EmitDirect/EmitToClient call
// to whichever physical connection actually owns the target object,
// without Core ever having to know about connections itself.
type ConnRegistry struct {
	targets   map[ids.ObjectID]boundTarget
	resources []client.Resource
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{targets: make(map[ids.ObjectID]boundTarget)}
}

func (r *ConnRegistry) bind(obj ids.ObjectID, local uint32, kind client.ResourceKind, emitter *connEmitter) {
	r.targets[obj] = boundTarget{emitter: emitter, local: local, kind: kind}
	switch kind {
	case client.ResourceKeyboard, client.ResourcePointer, client.ResourceTouch, client.ResourceDataDevice:
		r.resources = append(r.resources, client.Resource{Object: obj, Client: emitter.clientID, Kind: kind})
	}
}

func (r *ConnRegistry) unbind(obj ids.ObjectID) {
	delete(r.targets, obj)
	for i, res := range r.resources {
		if res.Object == obj {
			r.resources = append(r.resources[:i], r.resources[i+1:]...)
			return
		}
	}
}

// Emit implements client.Emitter by looking up which connection owns obj
// and handing the event to that connection's encoder.
func (r *ConnRegistry) Emit(obj ids.ObjectID, event any) {
	t, ok := r.targets[obj]
	if !ok {
		return
	}
	t.emitter.emit(t.local, t.kind, event)
}

// Pool returns every registered seat/data-device resource across every
// connection, for callers that need to fan a focus/selection/drag event
// out across clients.
func (r *ConnRegistry) Pool() []client.Resource {
	return r.resources
}
