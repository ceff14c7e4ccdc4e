// Package cont implements the Continuation Registry: a global list of saved
// execution contexts (fibers/threads snapshotted outside the host's normal
// thread list) used only so the eviction scan can enumerate every live
// stack root.
package cont

import (
	"sync"

	"github.com/mjitcore/mjitcore/cmn/xatomic"
	"github.com/mjitcore/mjitcore/host"
)

// Continuation is a record referencing a host execution context.
type Continuation struct {
	EC host.ExecContext

	prev, next *Continuation
}

// Registry is the global doubly-linked list of live continuations. Order is
// irrelevant, so entries are simply prepended.
//
// The teacher's engine-lock discipline is reused verbatim here: every
// mutation takes the same lock the rest of the coordinator holds, passed in
// at construction time rather than owned locally, so a continuation can
// never be added/removed concurrently with an eviction scan walking the
// list.
type Registry struct {
	mu     *sync.Mutex
	head   *Continuation
	length xatomic.Int64
}

// New creates a registry sharing the coordinator's engine lock.
func New(mu *sync.Mutex) *Registry {
	return &Registry{mu: mu}
}

// Len reports the number of live continuations.
func (r *Registry) Len() int64 { return r.length.Load() }

// New prepends a new continuation record wrapping ec.
func (r *Registry) New(ec host.ExecContext) *Continuation {
	c := &Continuation{EC: ec}
	r.mu.Lock()
	c.next = r.head
	if r.head != nil {
		r.head.prev = c
	}
	r.head = c
	r.mu.Unlock()
	r.length.Inc()
	return c
}

// Free unlinks and discards c.
func (r *Registry) Free(c *Continuation) {
	r.mu.Lock()
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		r.head = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	}
	c.prev, c.next = nil, nil
	r.mu.Unlock()
	r.length.Dec()
}

// Each calls fn for every live continuation. Caller must hold the engine
// lock (eviction's liveness scan runs under it already).
func (r *Registry) Each(fn func(ec host.ExecContext)) {
	for c := r.head; c != nil; c = c.next {
		fn(c.EC)
	}
}

// FinishAll frees every remaining continuation at teardown.
func (r *Registry) FinishAll() {
	r.mu.Lock()
	r.head = nil
	r.mu.Unlock()
	r.length.Store(0)
}
