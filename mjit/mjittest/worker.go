package mjittest

import (
	"context"
	"sync"
	"time"

	"github.com/mjitcore/mjitcore/backend"
)

// Handle is a fake compiled-artifact handle that records whether it was
// released, for tests asserting eviction/teardown actually frees units.
type Handle struct {
	mu       sync.Mutex
	released bool
}

func (h *Handle) Release() {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Worker is a configurable fake backend.Worker. By default every Compile
// call succeeds instantly with a synthetic address; Delay and Fail can be
// set to simulate slow or permanently-failing backends.
type Worker struct {
	mu sync.Mutex

	Delay   time.Duration // sleep before resolving each Compile call
	Fail    bool          // every Compile call fails
	Hang    bool          // Compile blocks until ctx is cancelled, then fails
	nextAddr uintptr
	Compiled []backend.Job // records every job handed to Compile, in order
}

// NewWorker creates a worker with instant, always-succeeding compiles.
func NewWorker() *Worker { return &Worker{nextAddr: 0x1000} }

func (w *Worker) Compile(ctx context.Context, job backend.Job) backend.Result {
	w.mu.Lock()
	w.Compiled = append(w.Compiled, job)
	delay, fail, hang := w.Delay, w.Fail, w.Hang
	w.mu.Unlock()

	if hang {
		<-ctx.Done()
		return backend.Result{Err: ctx.Err()}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return backend.Result{Err: ctx.Err()}
		}
	}
	if fail {
		return backend.Result{Err: errCompileFailed}
	}

	w.mu.Lock()
	addr := w.nextAddr
	w.nextAddr += 0x10
	w.mu.Unlock()

	return backend.Result{Handle: &Handle{}, Addr: addr}
}

// CallCount reports how many jobs Compile has processed so far.
func (w *Worker) CallCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Compiled)
}

type compileFailedError struct{}

func (compileFailedError) Error() string { return "mjittest: simulated compile failure" }

var errCompileFailed = compileFailedError{}
