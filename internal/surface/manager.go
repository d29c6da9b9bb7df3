// Package surface handles surface creation, role assignment, the
// double-buffered pending/current state, and the per-role
// configure/ack/commit lifecycle machine.
package surface

import (
	"time"

	"github.com/axiomwm/axiom/internal/axiomerr"
	"github.com/axiomwm/axiom/internal/configure"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

// Surface is the central per-client rendering entity.
type Surface struct {
	ID     ids.SurfaceID
	Client ids.ClientID
	Role   Role
	Life   Lifecycle

	state *DoubleBuffer[State]

	destroyed bool
}

func (s *Surface) Current() State { return s.state.Current() }

// Manager owns every live Surface, keyed by its stable id.
type Manager struct {
	ids     *ids.Generator
	surf    map[ids.SurfaceID]*Surface
	timeout time.Duration

	// serials is the single globally monotonic serial counter shared by
	// every Sequencer this Manager creates.
	serials *configure.SerialSource

	// grabbedPopup is the innermost popup currently holding an input
	// grab, or 0 if no popup chain is grabbed. xdg_popup only allows one
	// grabbed chain at a time; starting a new grab implicitly ends any
	// previous one.
	grabbedPopup ids.SurfaceID
}

func NewManager(gen *ids.Generator, configureTimeout time.Duration) *Manager {
	return &Manager{
		ids:     gen,
		surf:    make(map[ids.SurfaceID]*Surface),
		timeout: configureTimeout,
		serials: configure.NewSerialSource(),
	}
}

// CreateSurface registers a new, role-less surface for a client.
func (m *Manager) CreateSurface(client ids.ClientID) *Surface {
	id := m.ids.NextSurface()
	s := &Surface{
		ID:     ids.SurfaceID(id),
		Client: client,
		Role:   Role{Kind: RoleNone},
		Life:   LifecycleCreated,
		state:  NewDoubleBuffer(defaultState()),
	}
	m.surf[s.ID] = s
	return s
}

func (m *Manager) Get(id ids.SurfaceID) (*Surface, bool) {
	s, ok := m.surf[id]
	return s, ok
}

// SetRole attaches a role to a surface. A surface has at most one role
// for its lifetime; a second SetRole call always fails, even with the
// same kind.
func (m *Manager) SetRole(id ids.SurfaceID, kind RoleKind) (*Surface, error) {
	s, ok := m.surf[id]
	if !ok {
		return nil, axiomerr.New(axiomerr.ProtocolViolation, 0, id, "set_role on unknown surface")
	}
	if s.Role.Kind != RoleNone {
		return nil, axiomerr.New(axiomerr.ProtocolViolation, s.Client, id, "surface already has a role")
	}
	seq := configure.NewSequencer(id, m.serials, m.timeout)
	switch kind {
	case RoleToplevel:
		s.Role = Role{Kind: RoleToplevel, Toplevel: newToplevel(seq)}
	case RolePopup:
		s.Role = Role{Kind: RolePopup, Popup: &Popup{Seq: seq}}
	case RoleLayerSurface:
		s.Role = Role{Kind: RoleLayerSurface, Layer: newLayerSurface(seq)}
	case RoleSubsurface:
		s.Role = Role{Kind: RoleSubsurface, Subsurface: &Subsurface{}}
	case RoleCursor:
		s.Role = Role{Kind: RoleCursor, Cursor: &Cursor{}}
	default:
		return nil, axiomerr.New(axiomerr.ProtocolViolation, s.Client, id, "unknown role kind")
	}
	return s, nil
}

// MutateState applies fn to the surface's pending state, for request
// handlers (attach, damage, set_input_region, ...).
func (m *Manager) MutateState(id ids.SurfaceID, fn func(*State)) error {
	s, ok := m.surf[id]
	if !ok {
		return axiomerr.New(axiomerr.ProtocolViolation, 0, id, "mutate on unknown surface")
	}
	s.state.Mutate(fn)
	return nil
}

// SendConfigure issues a configure for a configurable role and moves its
// lifecycle to ConfigurePending.
func (m *Manager) SendConfigure(id ids.SurfaceID, now time.Time, size geom.Size, states configure.States) (configure.Configure, error) {
	s, ok := m.surf[id]
	if !ok {
		return configure.Configure{}, axiomerr.New(axiomerr.ProtocolViolation, 0, id, "configure on unknown surface")
	}
	seq := s.Role.sequencer()
	if seq == nil {
		return configure.Configure{}, axiomerr.New(axiomerr.ProtocolViolation, s.Client, id, "role is not configurable")
	}
	if !s.Life.canTransitionTo(LifecycleConfigurePending) {
		return configure.Configure{}, axiomerr.New(axiomerr.ProtocolViolation, s.Client, id, "illegal configure from state "+s.Life.String())
	}
	c := seq.SendConfigure(now, size, states)
	s.Life = LifecycleConfigurePending
	if s.Role.Kind == RoleToplevel {
		s.Role.Toplevel.LastSentConfigureSerial = c.Serial
		s.Role.Toplevel.PendingGeometry().Size = size
		s.Role.Toplevel.PendingGeometry().States = states
	}
	return c, nil
}

// AckConfigure validates and applies a client's ack: valid only in
// ConfigurePending or AckPending, and must reference a serial the
// Sequencer actually sent.
func (m *Manager) AckConfigure(id ids.SurfaceID, serial uint32) error {
	s, ok := m.surf[id]
	if !ok {
		return axiomerr.New(axiomerr.ProtocolViolation, 0, id, "ack on unknown surface")
	}
	if s.Life != LifecycleConfigurePending && s.Life != LifecycleAckPending {
		return axiomerr.New(axiomerr.ProtocolViolation, s.Client, id, "ack outside Configure/AckPending")
	}
	seq := s.Role.sequencer()
	if seq == nil {
		return axiomerr.New(axiomerr.ProtocolViolation, s.Client, id, "role is not configurable")
	}
	acked, err := seq.AckConfigure(serial)
	if err != nil {
		// Mismatched serial: force-unmap rather than leave the surface in
		// an inconsistent acked state.
		m.forceUnmap(s)
		return err
	}
	s.Life = LifecycleAckPending
	if s.Role.Kind == RoleToplevel {
		s.Role.Toplevel.LastAckedSerial = acked.Serial
	}
	return nil
}

// CommitResult reports the side effects of a Commit to the rest of the
// compositor: buffer ingest, damage tracking, workspace layout, and the
// window stack.
type CommitResult struct {
	Surface        ids.SurfaceID
	JustMapped     bool
	JustUnmapped   bool
	BufferAttached bool
	Buffer         ids.BufferID
	Damage         []geom.Rect
	DamageBuffer   bool
	FullDamage     bool
	State          State
}

// Commit applies pending state to current atomically and, for
// configurable roles in AckPending with a buffer attached, transitions to
// Configured and reports mapping side effects.
func (m *Manager) Commit(id ids.SurfaceID) (CommitResult, error) {
	s, ok := m.surf[id]
	if !ok {
		return CommitResult{}, axiomerr.New(axiomerr.ProtocolViolation, 0, id, "commit on unknown surface")
	}

	// Subsurface sync mode is not honoured: a commit on a subsurface
	// applies here immediately whatever its Sync flag says, and a parent's
	// commit does not re-apply or cascade to its subsurfaces.

	pending := s.state.PendingView()
	firstMap := !wasEverMapped(s)

	s.state.Commit(identityState(pending))

	res := CommitResult{
		Surface:        id,
		BufferAttached: pending.Buffer != 0,
		Buffer:         pending.Buffer,
		Damage:         pending.Damage,
		DamageBuffer:   pending.DamageBuffer,
		State:          pending,
	}

	if s.Role.Configurable() {
		if s.Life == LifecycleAckPending && pending.Buffer != 0 {
			s.Life = LifecycleConfigured
			if s.Role.Kind == RoleToplevel {
				s.Role.Toplevel.commitGeometry()
				if !s.Role.Toplevel.IsMapped {
					s.Role.Toplevel.IsMapped = true
					res.JustMapped = true
				}
			}
			if s.Role.Kind == RoleLayerSurface {
				s.Role.Layer.commitGeometry()
			}
		}
	} else {
		// Subsurface/cursor roles have no configure gate; a buffer
		// attach plus commit maps them directly.
		if firstMap && pending.Buffer != 0 {
			res.JustMapped = true
		}
	}

	if res.JustMapped {
		res.FullDamage = true
	}

	return res, nil
}

func wasEverMapped(s *Surface) bool {
	switch s.Role.Kind {
	case RoleToplevel:
		return s.Role.Toplevel.IsMapped
	default:
		return s.Life == LifecycleConfigured
	}
}

// forceUnmap is the shared path for both ack-mismatch and configure
// timeout: a surface that cannot complete its handshake is unmapped
// rather than left hung.
func (m *Manager) forceUnmap(s *Surface) {
	s.Life = LifecycleUnmapped
	if seq := s.Role.sequencer(); seq != nil {
		seq.Reset()
	}
	if s.Role.Kind == RoleToplevel {
		s.Role.Toplevel.IsMapped = false
	}
}

// ForceUnmap is the scheduler's entry point for expiring a surface whose
// configure deadline has passed.
func (m *Manager) ForceUnmap(id ids.SurfaceID) {
	if s, ok := m.surf[id]; ok {
		m.forceUnmap(s)
	}
}

// ExpiredSurfaces returns every surface whose Sequencer has an expired
// configure as of now, for the scheduler to force-unmap on its tick.
func (m *Manager) ExpiredSurfaces(now time.Time) []ids.SurfaceID {
	var out []ids.SurfaceID
	for id, s := range m.surf {
		if s.Life != LifecycleConfigurePending && s.Life != LifecycleAckPending {
			continue
		}
		seq := s.Role.sequencer()
		if seq != nil && seq.Expired(now) {
			out = append(out, id)
		}
	}
	return out
}

// SetPopupParent records parent as id's xdg_popup anchor and, when parent
// is itself a popup, registers id as one of its children so a dismiss of
// parent cascades to id too.
func (m *Manager) SetPopupParent(id, parent ids.SurfaceID) error {
	s, ok := m.surf[id]
	if !ok || s.Role.Kind != RolePopup {
		return axiomerr.New(axiomerr.ProtocolViolation, 0, id, "set_popup_parent on non-popup surface")
	}
	s.Role.Popup.Parent = parent
	if ps, ok := m.surf[parent]; ok && ps.Role.Kind == RolePopup {
		ps.Role.Popup.Children = append(ps.Role.Popup.Children, id)
	}
	return nil
}

// SetPopupGrab marks id as holding (or releasing) the popup input grab.
// Taking a new grab implicitly ends whatever chain held it before, since
// xdg_popup never allows two grabbed chains at once.
func (m *Manager) SetPopupGrab(id ids.SurfaceID, grabbed bool) error {
	s, ok := m.surf[id]
	if !ok || s.Role.Kind != RolePopup {
		return axiomerr.New(axiomerr.ProtocolViolation, 0, id, "grab on non-popup surface")
	}
	s.Role.Popup.Grabbed = grabbed
	if grabbed {
		m.grabbedPopup = id
	} else if m.grabbedPopup == id {
		m.grabbedPopup = 0
	}
	return nil
}

// GrabbedPopupRoot returns the surface currently holding the popup input
// grab, if any.
func (m *Manager) GrabbedPopupRoot() (ids.SurfaceID, bool) {
	if m.grabbedPopup == 0 {
		return 0, false
	}
	return m.grabbedPopup, true
}

// InPopupChain reports whether candidate is root itself or a descendant
// of root in the popup parent/child cascade.
func (m *Manager) InPopupChain(root, candidate ids.SurfaceID) bool {
	if root == candidate {
		return true
	}
	s, ok := m.surf[root]
	if !ok || s.Role.Kind != RolePopup {
		return false
	}
	for _, child := range s.Role.Popup.Children {
		if m.InPopupChain(child, candidate) {
			return true
		}
	}
	return false
}

// DismissPopupChain force-unmaps id and cascades to every popup
// underneath it in the parent/child chain, returning every surface that
// was dismissed so the caller can clear their focus/damage/stacking
// state. It reuses the existing Unmapped lifecycle state rather than
// introducing a separate one: a dismissed popup and a client-unmapped one
// leave the compositor in exactly the same shape.
func (m *Manager) DismissPopupChain(id ids.SurfaceID) []ids.SurfaceID {
	s, ok := m.surf[id]
	if !ok || s.Role.Kind != RolePopup {
		return nil
	}
	var dismissed []ids.SurfaceID
	for _, child := range s.Role.Popup.Children {
		dismissed = append(dismissed, m.DismissPopupChain(child)...)
	}
	m.forceUnmap(s)
	if m.grabbedPopup == id {
		m.grabbedPopup = 0
	}
	return append(dismissed, id)
}

// Destroy cascades: any subsurface/popup children are destroyed too.
func (m *Manager) Destroy(id ids.SurfaceID) {
	s, ok := m.surf[id]
	if !ok {
		return
	}
	s.destroyed = true
	delete(m.surf, id)
	if m.grabbedPopup == id {
		m.grabbedPopup = 0
	}
	for _, other := range m.surf {
		if other.Role.Kind == RoleSubsurface && other.Role.Subsurface.Parent == id {
			m.Destroy(other.ID)
		}
		if other.Role.Kind == RolePopup && other.Role.Popup.Parent == id {
			m.Destroy(other.ID)
		}
	}
}
