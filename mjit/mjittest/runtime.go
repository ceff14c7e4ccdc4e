// Package mjittest provides small in-memory fakes for host.Runtime and
// backend.Worker, used by every test package in this module instead of a
// real bytecode interpreter or C toolchain.
package mjittest

import (
	"sync"

	"github.com/mjitcore/mjitcore/host"
)

// Thread is a fake host thread: a mutable, lockable stack of frames.
type Thread struct {
	mu     sync.Mutex
	frames []host.Frame
}

// NewThread creates a thread with the given initial call stack (outermost
// frame first).
func NewThread(frames ...host.Frame) *Thread {
	return &Thread{frames: append([]host.Frame(nil), frames...)}
}

// Frames implements host.ExecContext.
func (t *Thread) Frames() []host.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]host.Frame(nil), t.frames...)
}

// Push appends a frame calling iseq to the top of the stack.
func (t *Thread) Push(iseq *host.Iseq) {
	t.mu.Lock()
	t.frames = append(t.frames, host.Frame{Iseq: iseq})
	t.mu.Unlock()
}

// Pop removes the top frame.
func (t *Thread) Pop() {
	t.mu.Lock()
	if n := len(t.frames); n > 0 {
		t.frames = t.frames[:n-1]
	}
	t.mu.Unlock()
}

// Runtime is an in-memory host.Runtime: a fixed set of threads plus the
// handful of class-serial/path constants Init reads once.
type Runtime struct {
	mu      sync.Mutex
	threads []*Thread

	RootSerial     int64
	TopSelfSerial  int64
	ConstTable     []host.ConstEntry
	Prefix         string
	Archlib        string
	markRootCalled bool
	markRootFn     func()
}

// NewRuntime creates a fake runtime with no threads and default serials 1/2.
func NewRuntime() *Runtime {
	return &Runtime{RootSerial: 1, TopSelfSerial: 2}
}

// AddThread registers t so Threads() reports it.
func (r *Runtime) AddThread(t *Thread) {
	r.mu.Lock()
	r.threads = append(r.threads, t)
	r.mu.Unlock()
}

// Threads implements host.Runtime.
func (r *Runtime) Threads() []host.ExecContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]host.ExecContext, len(r.threads))
	for i, t := range r.threads {
		out[i] = t
	}
	return out
}

func (r *Runtime) RootObjectClassSerial() int64      { return r.RootSerial }
func (r *Runtime) TopSelfClassSerial() int64          { return r.TopSelfSerial }
func (r *Runtime) RootConstantTable() []host.ConstEntry { return r.ConstTable }
func (r *Runtime) PrefixPath() string                 { return r.Prefix }
func (r *Runtime) ArchlibPath() string                { return r.Archlib }

// RegisterMarkRoot implements host.Runtime, recording fn so tests can
// trigger it with InvokeMarkRoot.
func (r *Runtime) RegisterMarkRoot(fn func()) {
	r.mu.Lock()
	r.markRootFn = fn
	r.markRootCalled = true
	r.mu.Unlock()
}

// InvokeMarkRoot calls the registered mark-root callback, for tests that
// want to assert Init actually registered one.
func (r *Runtime) InvokeMarkRoot() {
	r.mu.Lock()
	fn := r.markRootFn
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// MarkRootRegistered reports whether RegisterMarkRoot was called.
func (r *Runtime) MarkRootRegistered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markRootCalled
}
