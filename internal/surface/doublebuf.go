package surface

// Pending marks a value as the not-yet-committed half of a double
// buffered field; Current marks the committed half. They carry no
// behavior of their own and no code in this repository wraps state in
// them; DoubleBuffer, which keeps its pending half unexported, is what
// enforces the invariant.
type Pending[T any] struct{ V T }
type Current[T any] struct{ V T }

// DoubleBuffer holds a pending and a current copy of T and guarantees
// that state can only move from pending to current as a single atomic
// Commit; there is no way to observe a half-applied commit.
type DoubleBuffer[T any] struct {
	pending T
	current T
}

func NewDoubleBuffer[T any](identity T) *DoubleBuffer[T] {
	return &DoubleBuffer[T]{pending: identity, current: identity}
}

// Mutate applies fn to the pending half. This is the only way protocol
// request handlers may touch surface state before a commit.
func (d *DoubleBuffer[T]) Mutate(fn func(*T)) {
	fn(&d.pending)
}

// Current returns a copy of the committed state. Safe to call from the
// renderer or any other reader — it can never observe a partial commit.
func (d *DoubleBuffer[T]) Current() T {
	return d.current
}

// Commit moves pending into current, then resets pending to identity.
// identity is supplied by the caller because "the neutral value after a
// commit" differs per field: a damage list resets to empty, but an
// opaque region or buffer scale persists across commits until the client
// changes it again — so identity is usually "current minus the
// accumulator fields", computed by the owning package, not the zero
// value of T.
func (d *DoubleBuffer[T]) Commit(identity T) {
	d.current = d.pending
	d.pending = identity
}

// PendingView returns a copy of pending state for validation that must
// happen before commit (e.g. configure-ack checks) without mutating it.
func (d *DoubleBuffer[T]) PendingView() T {
	return d.pending
}

// PendingPtr exposes the pending half directly for callers that need to
// build it up across several requests before a commit (e.g. a toplevel's
// negotiated size, set once per configure cycle rather than via a single
// Mutate call).
func (d *DoubleBuffer[T]) PendingPtr() *T {
	return &d.pending
}
