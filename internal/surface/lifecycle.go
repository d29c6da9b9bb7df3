package surface

// Lifecycle is the per-role configure/ack/commit state machine:
//
//	Created → ConfigurePending(serial, deadline)
//	         ↑                ↓ ack
//	         │            AckPending(serial, deadline)
//	         │                ↓ commit-with-buffer
//	         │            Configured
//	         │                ↓ unmap / destroy
//	         └── Unmapped ────┘
type Lifecycle int

const (
	LifecycleCreated Lifecycle = iota
	LifecycleConfigurePending
	LifecycleAckPending
	LifecycleConfigured
	LifecycleUnmapped
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleCreated:
		return "created"
	case LifecycleConfigurePending:
		return "configure_pending"
	case LifecycleAckPending:
		return "ack_pending"
	case LifecycleConfigured:
		return "configured"
	case LifecycleUnmapped:
		return "unmapped"
	default:
		return "unknown"
	}
}

// legalTransitions encodes which edges of the diagram above are allowed.
var legalTransitions = map[Lifecycle]map[Lifecycle]bool{
	LifecycleCreated:          {LifecycleConfigurePending: true},
	LifecycleConfigurePending: {LifecycleAckPending: true, LifecycleUnmapped: true},
	LifecycleAckPending:       {LifecycleConfigurePending: true, LifecycleConfigured: true, LifecycleUnmapped: true},
	LifecycleConfigured:       {LifecycleConfigurePending: true, LifecycleUnmapped: true},
	LifecycleUnmapped:         {LifecycleConfigurePending: true},
}

func (l Lifecycle) canTransitionTo(next Lifecycle) bool {
	return legalTransitions[l][next]
}
