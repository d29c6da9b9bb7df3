package surface

import (
	"github.com/axiomwm/axiom/internal/configure"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

type RoleKind int

const (
	RoleNone RoleKind = iota
	RoleToplevel
	RolePopup
	RoleLayerSurface
	RoleSubsurface
	RoleCursor
)

func (k RoleKind) String() string {
	switch k {
	case RoleNone:
		return "none"
	case RoleToplevel:
		return "toplevel"
	case RolePopup:
		return "popup"
	case RoleLayerSurface:
		return "layer_surface"
	case RoleSubsurface:
		return "subsurface"
	case RoleCursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// ToplevelFlags mirrors xdg_toplevel.state: maximized, fullscreen,
// activated, resizing, and tiled-left/right/top/bottom.
type ToplevelFlags = configure.States

const (
	StateMaximized ToplevelFlags = 1 << iota
	StateFullscreen
	StateActivated
	StateResizing
	StateTiledLeft
	StateTiledRight
	StateTiledTop
	StateTiledBottom
)

// ToplevelGeometry is the double-buffered size/state pair a toplevel
// negotiates with the compositor via configure/ack.
type ToplevelGeometry struct {
	Size   geom.Size
	States ToplevelFlags
}

// Toplevel is the xdg_toplevel role data.
type Toplevel struct {
	Title, AppID            string
	Parent                  ids.SurfaceID
	ServerSideDecoration    bool
	Seq                     *configure.Sequencer
	LastSentConfigureSerial uint32
	LastAckedSerial         uint32
	IsMapped                bool

	geometry *DoubleBuffer[ToplevelGeometry]
}

func newToplevel(seq *configure.Sequencer) *Toplevel {
	return &Toplevel{
		Seq:      seq,
		geometry: NewDoubleBuffer(ToplevelGeometry{}),
	}
}

func (t *Toplevel) PendingGeometry() *ToplevelGeometry { return t.geometry.PendingPtr() }
func (t *Toplevel) CurrentGeometry() ToplevelGeometry  { return t.geometry.Current() }
func (t *Toplevel) commitGeometry() {
	cur := t.geometry.Current()
	t.geometry.Commit(cur) // identity: geometry persists until the next configure changes it
}

// Layer mirrors zwlr_layer_shell_v1's layer enum.
type Layer int

const (
	LayerBackground Layer = iota
	LayerBottom
	LayerTop
	LayerOverlay
)

// Anchor mirrors zwlr_layer_surface_v1's anchor bitmask.
type Anchor uint32

const (
	AnchorTop Anchor = 1 << iota
	AnchorBottom
	AnchorLeft
	AnchorRight
)

type LayerSurface struct {
	Namespace     string
	Layer         Layer
	Anchor        Anchor
	ExclusiveZone int32
	Seq           *configure.Sequencer

	geometry *DoubleBuffer[ToplevelGeometry]
}

func newLayerSurface(seq *configure.Sequencer) *LayerSurface {
	return &LayerSurface{Seq: seq, geometry: NewDoubleBuffer(ToplevelGeometry{})}
}

func (l *LayerSurface) PendingGeometry() *ToplevelGeometry { return l.geometry.PendingPtr() }
func (l *LayerSurface) CurrentGeometry() ToplevelGeometry  { return l.geometry.Current() }
func (l *LayerSurface) commitGeometry() {
	cur := l.geometry.Current()
	l.geometry.Commit(cur)
}

// Popup is the xdg_popup role data. Popups form a chain: each may be the
// parent of another popup; dismissing a popup cascades to its children.
type Popup struct {
	Parent   ids.SurfaceID
	Anchor   geom.Rect
	Grabbed  bool
	Children []ids.SurfaceID
	Seq      *configure.Sequencer
}

// Subsurface is the wl_subsurface role data.
type Subsurface struct {
	Parent ids.SurfaceID
	Offset geom.Point
	Sync   bool // true = synchronized mode; Manager.Commit does not defer on it
}

// Cursor is the wl_pointer cursor role: an offset (hotspot) with no
// configure sequencing.
type Cursor struct {
	Hotspot geom.Point
}

// Role is attached to a Surface at most once for its lifetime; attempting
// to change or reassign it fails.
type Role struct {
	Kind       RoleKind
	Toplevel   *Toplevel
	Popup      *Popup
	Layer      *LayerSurface
	Subsurface *Subsurface
	Cursor     *Cursor
}

// Configurable reports whether this role goes through the
// configure/ack/commit state machine.
func (r Role) Configurable() bool {
	switch r.Kind {
	case RoleToplevel, RolePopup, RoleLayerSurface:
		return true
	default:
		return false
	}
}

// sequencer returns the role's Configure Sequencer, if it has one.
func (r Role) sequencer() *configure.Sequencer {
	switch r.Kind {
	case RoleToplevel:
		return r.Toplevel.Seq
	case RoleLayerSurface:
		return r.Layer.Seq
	case RolePopup:
		return r.Popup.Seq
	default:
		return nil
	}
}
