// Package gcsync implements the GC Rendezvous protocol: the mutual-exclusion
// handshake between the host's garbage collector and the single compiler
// worker, guaranteeing that GC and the compile region are never both active
// at once.
package gcsync

import "sync"

// Gate coordinates in_gc/in_jit mutual exclusion over a shared engine lock.
// It does not own the lock -- it is handed the same *sync.Mutex the rest of
// the coordinator (queue, lists, worker lifecycle) uses, one mutex with four
// condition variables all tied to it. Gate owns two of those four:
// client_wakeup and gc_wakeup.
type Gate struct {
	mu           *sync.Mutex
	gcWakeup     *sync.Cond // GC -> worker: GC cycle finished
	clientWakeup *sync.Cond // worker -> GC: compile step finished

	inGC  bool
	inJIT bool
}

// New creates a Gate sharing mu with the rest of the coordinator.
func New(mu *sync.Mutex) *Gate {
	return &Gate{mu: mu, gcWakeup: sync.NewCond(mu), clientWakeup: sync.NewCond(mu)}
}

// GCStart is gc_start_hook: block while the worker is mid-compile, then mark
// in_gc true. Called by the host GC at the start of its cycle. The caller
// must NOT be holding mu.
func (g *Gate) GCStart() {
	g.mu.Lock()
	for g.inJIT {
		g.clientWakeup.Wait()
	}
	g.inGC = true
	g.mu.Unlock()
}

// GCFinish is gc_finish_hook: clear in_gc and wake any worker waiting to
// start compiling.
func (g *Gate) GCFinish() {
	g.mu.Lock()
	g.inGC = false
	g.mu.Unlock()
	g.gcWakeup.Broadcast()
}

// WaitWhileGC blocks the calling (worker) goroutine while a GC cycle is in
// progress. Called by the worker before it starts compiling.
func (g *Gate) WaitWhileGC() {
	g.mu.Lock()
	for g.inGC {
		g.gcWakeup.Wait()
	}
	g.mu.Unlock()
}

// BeginCompile marks in_jit true. Called by the worker immediately before
// it hands off to the backend to emit/compile.
func (g *Gate) BeginCompile() {
	g.mu.Lock()
	g.inJIT = true
	g.mu.Unlock()
}

// EndCompile marks in_jit false and wakes anyone waiting in GCStart.
func (g *Gate) EndCompile() {
	g.mu.Lock()
	g.inJIT = false
	g.mu.Unlock()
	g.clientWakeup.Broadcast()
}

// InGC reports whether a GC cycle is currently recorded as in progress.
// Caller must hold mu (used by components already under the engine lock,
// e.g. unload_units's decision to defer).
func (g *Gate) InGC() bool { return g.inGC }

// InJIT reports whether the worker is currently inside the compile region.
// Caller must hold mu.
func (g *Gate) InJIT() bool { return g.inJIT }
