// Package unit implements the coordination core's data model: one Unit per
// admitted iseq, and the three intrusive doubly-linked lists (queue, active,
// compact) units move through.
//
// Grounded on the teacher's xact lifecycle shape (ghjramos-aistore
// xact/xs/tcb.go, tcobjs.go): a small struct wrapping host-owned state plus
// bookkeeping fields, atomic counters for anything read across goroutines,
// and cmn/debug assertions at the invariant-sensitive points.
package unit

import (
	"github.com/mjitcore/mjitcore/cmn/debug"
	"github.com/mjitcore/mjitcore/cmn/xatomic"
	"github.com/mjitcore/mjitcore/host"
)

// Handle is the opaque loaded-artifact handle a Unit owns once compiled.
// The compiler backend is the only party that knows how to create or
// release one.
type Handle interface {
	// Release unloads/frees the artifact. Called exactly once, either by
	// eviction or by Finish's compact-list teardown.
	Release()
}

// Unit is the coordinator's handle on a single JIT compilation attempt for
// one iseq.
type Unit struct {
	ID uint64

	// Iseq is a weak reference: it may be nil'd by FreeIseq while the unit
	// persists in a list.
	iseq *host.Iseq

	// Handle is non-nil exactly while the unit is in the active list, and may
	// be non-nil in the compact list.
	Handle Handle

	// usedCodeP is the transient liveness flag set by the eviction scan. The
	// scan fans out across goroutines (see package evict), so this needs to
	// be genuinely concurrency-safe rather than merely engine-lock-protected.
	usedCodeP xatomic.Bool

	// list membership bookkeeping.
	node *Node

	// OnFree, if set, runs once from Free while the iseq backref is still
	// valid, before it is cleared. Lets a caller that keeps auxiliary
	// fast-path state keyed by iseq identity (e.g. a dedup pre-check) learn
	// exactly when this unit's claim on its iseq ends.
	OnFree func(iseq *host.Iseq)
}

// NewUnit allocates a unit for iseq with the given id and attaches it: the
// iseq backlinks to this unit, and there is exactly one unit per live iseq.
func NewUnit(id uint64, iseq *host.Iseq) *Unit {
	u := &Unit{ID: id, iseq: iseq}
	if iseq != nil {
		iseq.SetUnit(u)
	}
	return u
}

// Iseq returns the current (possibly nil) weak iseq backref.
func (u *Unit) Iseq() *host.Iseq { return u.iseq }

// FreeIseq clears the iseq backref -- called by the GC-side free_iseq hook
// when the iseq itself is collected while this unit is still queued or
// active.
func (u *Unit) FreeIseq() { u.iseq = nil }

// UsedCode reports the transient liveness flag.
func (u *Unit) UsedCode() bool { return u.usedCodeP.Load() }

// SetUsedCode sets the transient liveness flag (eviction-scan only).
func (u *Unit) SetUsedCode(v bool) { u.usedCodeP.Store(v) }

// Free releases the unit's artifact handle via the backend and drops the
// iseq backlink: it does not free the iseq itself, only this unit's claim
// on it.
func (u *Unit) Free() {
	if u.Handle != nil {
		u.Handle.Release()
		u.Handle = nil
	}
	if u.iseq != nil {
		if u.OnFree != nil {
			u.OnFree(u.iseq)
		}
		if held, ok := u.iseq.Unit().(*Unit); ok && held == u {
			u.iseq.SetUnit(nil)
		}
		u.iseq = nil
	}
}

// Node is one intrusive doubly-linked list node wrapping a Unit.
type Node struct {
	Unit       *Unit
	prev, next *Node
	list       *List
}

// NewNode creates a node for u and backlinks u to it.
func NewNode(u *Unit) *Node {
	n := &Node{Unit: u}
	u.node = n
	return n
}

// Kind names a list for logging/metrics/snapshotting.
type Kind int

const (
	Queue Kind = iota
	Active
	Compact
)

func (k Kind) String() string {
	switch k {
	case Queue:
		return "queue"
	case Active:
		return "active"
	case Compact:
		return "compact"
	default:
		return "unknown"
	}
}

// List is one of the three intrusive doubly-linked lists: queue (FIFO),
// active, compact. Length is tracked alongside the links so callers never
// need to walk the list to know its size.
//
// Not internally synchronized: every List in this module is only ever
// touched under the engine lock (mark's traversal is the one documented
// exception, and it snapshots before releasing the lock -- see gcsync).
type List struct {
	Kind       Kind
	head, tail *Node
	length     xatomic.Int64
}

func NewList(kind Kind) *List { return &List{Kind: kind} }

// Len returns the current length.
func (l *List) Len() int64 { return l.length.Load() }

// PushTail appends node to the tail (used for FIFO queue admission).
func (l *List) PushTail(n *Node) {
	debug.Assert(n.list == nil, "node already on a list")
	n.list = l
	n.prev = l.tail
	n.next = nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.length.Inc()
}

// PopHead removes and returns the head node, or nil if empty (FIFO dequeue).
func (l *List) PopHead() *Node {
	n := l.head
	if n == nil {
		return nil
	}
	l.Remove(n)
	return n
}

// Remove unlinks node from the list it is on.
func (l *List) Remove(n *Node) {
	debug.Assert(n.list == l, "node not on this list")
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next, n.list = nil, nil, nil
	l.length.Dec()
}

// MoveTo unlinks node from its current list (must be l) and appends it to dst.
func (l *List) MoveTo(n *Node, dst *List) {
	l.Remove(n)
	dst.PushTail(n)
}

// Each calls fn for every node in list order. fn must not mutate the list.
func (l *List) Each(fn func(n *Node)) {
	for n := l.head; n != nil; n = n.next {
		fn(n)
	}
}

// Head returns the first node, or nil.
func (l *List) Head() *Node { return l.head }

// Clear detaches and returns every node as a slice, leaving the list empty.
// Used by Finish's list teardown.
func (l *List) Clear() []*Node {
	var out []*Node
	for n := l.head; n != nil; {
		next := n.next
		n.prev, n.next, n.list = nil, nil, nil
		out = append(out, n)
		n = next
	}
	l.head, l.tail = nil, nil
	l.length.Store(0)
	return out
}
