// Package client holds the connected-client table, per-client object
// ownership, and the single choke-point through which any event
// referencing a surface may be sent.
//
// Every emitter elsewhere in the compositor that names a surface routes
// through Registry.EmitToClient (pool fan-out) or Registry.EmitDirect
// (one known object) instead of writing to a connection directly; both
// check client ownership, so the cross-client send class of bug cannot
// occur anywhere but here.
package client

import (
	"sync"

	"github.com/axiomwm/axiom/internal/axiomerr"
	"github.com/axiomwm/axiom/internal/ids"
)

// ResourceKind identifies what an object id in a client's table refers to.
type ResourceKind int

const (
	ResourceSurface ResourceKind = iota
	ResourceKeyboard
	ResourcePointer
	ResourceTouch
	ResourceOutput
	ResourceDataDevice
	ResourceOther
)

// Resource is anything owned by a client that the compositor can later
// target with an emit: a surface, a wl_seat input object, a data device.
type Resource struct {
	Object ids.ObjectID
	Client ids.ClientID
	Kind   ResourceKind
}

// Client is a connected peer: its identity, its object id space, and its
// protocol version map (per-interface bound version, keyed by interface
// name, used to gate which requests/events are legal to send).
type Client struct {
	ID       ids.ClientID
	Objects  map[ids.ObjectID]Resource
	Versions map[string]uint32

	mu sync.RWMutex
}

func newClient(id ids.ClientID) *Client {
	return &Client{
		ID:       id,
		Objects:  make(map[ids.ObjectID]Resource),
		Versions: make(map[string]uint32),
	}
}

func (c *Client) addObject(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Objects[r.Object] = r
}

func (c *Client) removeObject(obj ids.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Objects, obj)
}

// Registry tracks connected clients and their owned objects. It is owned
// exclusively by the event loop; no mutex is needed across clients because
// the loop is single-threaded.
type Registry struct {
	clients map[ids.ClientID]*Client
	// owner maps every live object id, across all clients, back to its
	// owning client — this is what makes client_of O(1).
	owner map[ids.ObjectID]ids.ClientID
	ids   *ids.Generator
}

func NewRegistry(gen *ids.Generator) *Registry {
	return &Registry{
		clients: make(map[ids.ClientID]*Client),
		owner:   make(map[ids.ObjectID]ids.ClientID),
		ids:     gen,
	}
}

// Connect registers a newly connected client and returns its identity.
func (r *Registry) Connect() ids.ClientID {
	id := r.ids.NextClient()
	r.clients[id] = newClient(id)
	return id
}

// Disconnect cascade-destroys every resource the client owned. The caller
// (compositor event loop) is responsible for unwinding surfaces/buffers
// that reference those objects before or after this call; Disconnect only
// clears the registry's own bookkeeping.
func (r *Registry) Disconnect(id ids.ClientID) {
	c, ok := r.clients[id]
	if !ok {
		return
	}
	for obj := range c.Objects {
		delete(r.owner, obj)
	}
	delete(r.clients, id)
}

func (r *Registry) Client(id ids.ClientID) (*Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// Register records a new object id as owned by client id. The returned
// ObjectID is the fresh, globally unique handle; callers key their own
// per-kind tables (surfaces, buffers, ...) by it.
func (r *Registry) Register(client ids.ClientID, kind ResourceKind) (ids.ObjectID, error) {
	c, ok := r.clients[client]
	if !ok {
		return 0, axiomerr.New(axiomerr.ProtocolViolation, client, 0, "register on unknown client")
	}
	obj := r.ids.NextObject()
	c.addObject(Resource{Object: obj, Client: client, Kind: kind})
	r.owner[obj] = client
	return obj, nil
}

// Unregister releases an object id, e.g. on resource destroy.
func (r *Registry) Unregister(obj ids.ObjectID) {
	client, ok := r.owner[obj]
	if !ok {
		return
	}
	if c, ok := r.clients[client]; ok {
		c.removeObject(obj)
	}
	delete(r.owner, obj)
}

// ClientOf returns the owning client of an object, or false if the object
// is unknown (already destroyed, or never registered).
func (r *Registry) ClientOf(obj ids.ObjectID) (ids.ClientID, bool) {
	c, ok := r.owner[obj]
	return c, ok
}

// SameClient reports whether two objects are owned by the same client.
// Two unknown objects are never considered the same client.
func (r *Registry) SameClient(a, b ids.ObjectID) bool {
	ca, ok := r.ClientOf(a)
	if !ok {
		return false
	}
	cb, ok := r.ClientOf(b)
	if !ok {
		return false
	}
	return ca == cb
}

// Emitter is anything that can receive a wire event. In the full
// compositor this is backed by a client connection; tests substitute a
// recording fake.
type Emitter interface {
	Emit(obj ids.ObjectID, event any)
}

// EmitToClient is the sanctioned path for sending an event that names a
// target surface to a pool of candidate resources (e.g. seat input
// objects). It silently skips any resource not owned by the same client
// as target — this filtering happens at the source, never at the
// transport. EmitDirect is the single-object counterpart.
func (r *Registry) EmitToClient(target ids.SurfaceID, targetObj ids.ObjectID, pool []Resource, emitter Emitter, event any) {
	owner, ok := r.ClientOf(targetObj)
	if !ok {
		return
	}
	for _, res := range pool {
		if res.Client != owner {
			continue
		}
		emitter.Emit(res.Object, event)
	}
}

// EmitDirect sends an event to a single known-owned resource, still
// gated by a client-affinity check against the surface that motivated it.
func (r *Registry) EmitDirect(surface ids.SurfaceID, surfaceObj ids.ObjectID, target Resource, emitter Emitter, event any) error {
	owner, ok := r.ClientOf(surfaceObj)
	if !ok {
		return axiomerr.New(axiomerr.ProtocolViolation, 0, surface, "emit referencing unknown surface object")
	}
	if target.Client != owner {
		return axiomerr.New(axiomerr.ProtocolViolation, target.Client, surface, "cross-client emit blocked")
	}
	emitter.Emit(target.Object, event)
	return nil
}
