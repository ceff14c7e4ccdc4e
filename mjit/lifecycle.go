package mjit

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mjitcore/mjitcore/backend"
	"github.com/mjitcore/mjitcore/classes"
	"github.com/mjitcore/mjitcore/unit"
)

func sleep(d time.Duration) { time.Sleep(d) }

// Init bootstraps the coordinator: resolves the temp directory and
// header/PCH paths, seeds the class-serial set, and starts the
// single worker goroutine. On any failure the coordinator stays disabled and
// Init returns a wrapped sentinel error; partial state from a failed Init is
// never left reachable from AddIseqToProcess.
func (e *Engine) Init() error {
	tmp, err := backend.ResolveTempDir(e.opts.TempDir)
	if err != nil {
		return wrapf(ErrTempDirUnusable, "%v", err)
	}
	paths, err := backend.ResolveHeaderAndPCH(e.rt, tmp, e.opts.DevBuildDir, e.opts.PCHPrefix)
	if err != nil {
		return wrapf(ErrHeaderMissing, "%v", err)
	}
	e.paths = paths

	if !e.opts.SaveTemps {
		backend.SweepStalePCH(tmp, e.opts.PCHPrefix)
	}

	classes.Seed(e.classes, e.rt)
	// The class-serial set's backing map needs no manual root-marking in a
	// Go host (the map is an ordinary Go value, always reachable and always
	// scanned by the runtime GC); this call only exists to satisfy
	// host.Runtime's contract for hosts where it matters -- a generic
	// register-mark-root call for the class-serial set. The coordinator's
	// actual GC integration point is Mark, which the host calls directly
	// during its own root-marking pass.
	e.rt.RegisterMarkRoot(func() {})

	// PCH bootstrap itself is the backend's concern, out of scope here;
	// Engine only tracks the outcome it's told. A Worker that
	// implements an optional PCHBootstrapper gets the chance to run it
	// synchronously before the worker loop starts accepting jobs.
	if pb, ok := e.be.(PCHBootstrapper); ok {
		if err := pb.BootstrapPCH(context.Background(), e.paths); err != nil {
			e.pchStatus.Store(int32(backend.PCHFailed))
			e.mu.Lock()
			e.pchWakeup.Broadcast()
			e.mu.Unlock()
			return wrapf(ErrPCHFailed, "%v", err)
		}
	}
	e.pchStatus.Store(int32(backend.PCHReady))
	e.mu.Lock()
	e.pchWakeup.Broadcast()
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	eg, ctx := errgroup.WithContext(ctx)
	e.eg = eg
	eg.Go(func() error {
		e.runWorker(ctx)
		return nil
	})

	e.enabled.Store(true)
	e.logVerbose("mjit: initialized, temp dir", tmp)
	return nil
}

// PCHBootstrapper is an optional extension a backend.Worker may implement to
// receive a one-time synchronous callback at Init to generate the
// precompiled header. A Worker that doesn't implement it is assumed to need
// no separate bootstrap step.
type PCHBootstrapper interface {
	BootstrapPCH(ctx context.Context, paths backend.Paths) error
}

// runWorker is the single compiler worker's main loop: wait for work or a
// stop request, dequeue, respect the GC rendezvous, hand off to the
// backend, then resolve the jit_func cell.
func (e *Engine) runWorker(ctx context.Context) {
	for {
		e.mu.Lock()
		for (e.queue.Len() == 0 || e.paused) && !e.stopWorker {
			e.workerWakeup.Wait()
		}
		if e.queue.Len() == 0 && e.stopWorker {
			e.workerDone = true
			e.mu.Unlock()
			return
		}
		node := e.queue.PopHead()
		e.busy = true
		e.reportMetrics()
		e.mu.Unlock()
		if node == nil {
			e.mu.Lock()
			e.busy = false
			e.mu.Unlock()
			continue
		}

		e.compileOne(ctx, node)

		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}
}

func (e *Engine) compileOne(ctx context.Context, node *unit.Node) {
	e.gate.WaitWhileGC()
	e.gate.BeginCompile()
	iseq := node.Unit.Iseq()
	result := e.be.Compile(ctx, backend.Job{Unit: node.Unit, Iseq: iseq})
	e.gate.EndCompile()

	e.mu.Lock()
	defer e.mu.Unlock()

	iseq = node.Unit.Iseq() // re-read: may have been freed while compiling
	switch {
	case result.Err != nil || result.Handle == nil:
		if iseq != nil {
			iseq.Jit.Fail()
		}
		node.Unit.Free()
		e.logWarning("mjit: compile failed:", result.Err)
	case iseq == nil:
		// iseq was collected mid-compile; the compiled artifact is useless.
		node.Unit.Free()
	default:
		if !iseq.Jit.Complete(result.Addr) {
			// Lost a race against a timeout/failure resolving the cell first.
			node.Unit.Handle = result.Handle
			node.Unit.Free()
			break
		}
		node.Unit.Handle = result.Handle
		e.active.PushTail(node)
		if e.active.Len() > e.opts.MaxCacheSize {
			e.evictLocked()
		}
	}
	e.reportMetrics()
}

// Pause stops admitting new work to the worker and, if wait is true, blocks
// until the worker finishes whatever job it is currently running. Pause
// does not drain the queue or touch already-active units; Resume restores
// normal operation.
func (e *Engine) Pause(wait bool) error {
	if !e.Enabled() {
		return ErrDisabled
	}
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
	if wait {
		for {
			e.mu.Lock()
			idle := !e.busy
			e.mu.Unlock()
			if idle {
				break
			}
			sleep(e.opts.PollQuantum)
		}
	}
	return nil
}

// Resume restores normal submission processing after Pause.
func (e *Engine) Resume() error {
	if !e.Enabled() {
		return ErrDisabled
	}
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	e.mu.Lock()
	e.workerWakeup.Broadcast()
	e.mu.Unlock()
	return nil
}

// StopWorker requests the worker goroutine to exit after it drains the
// current queue, and blocks until it has, polling at the same quantum the
// worker loop uses. Safe to call once; a second call returns
// ErrAlreadyStopped.
func (e *Engine) StopWorker() error {
	e.mu.Lock()
	if e.stopWorker {
		e.mu.Unlock()
		return ErrAlreadyStopped
	}
	e.stopWorker = true
	e.mu.Unlock()

	for {
		e.mu.Lock()
		e.workerWakeup.Broadcast()
		done := e.workerDone
		e.mu.Unlock()
		if done {
			break
		}
		sleep(e.opts.PollQuantum)
	}
	return nil
}

// Finish tears the coordinator down: stop the worker if still running, free
// all three lists, finish all continuations, and permanently disable
// submissions.
func (e *Engine) Finish() {
	if !e.Enabled() {
		return
	}
	e.enabled.Store(false)

	// Wait on pch_wakeup while pch_status == NOT_READY. Our PCHBootstrapper
	// runs synchronously inside Init, so by the time Finish
	// can be reached pch_status has already resolved to ready or failed and
	// this loop never actually blocks; it stays here so an asynchronous
	// backend (one that flips pchStatus from its own goroutine) is still
	// honored without a second Finish implementation.
	e.mu.Lock()
	for backend.PCHState(e.pchStatus.Load()) == backend.PCHNotReady {
		e.pchWakeup.Wait()
	}
	e.mu.Unlock()

	// Cancel before draining: a worker stuck inside a backend.Compile call
	// that honors ctx (hung or slow) needs ctx.Done() to unblock it before
	// StopWorker's poll loop can ever observe workerDone.
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Lock()
	alreadyStopped := e.stopWorker
	e.mu.Unlock()
	if !alreadyStopped {
		_ = e.StopWorker()
	}
	if e.eg != nil {
		_ = e.eg.Wait()
	}

	e.mu.Lock()
	for _, n := range e.queue.Clear() {
		n.Unit.Free()
	}
	for _, n := range e.active.Clear() {
		n.Unit.Free()
	}
	for _, n := range e.compact.Clear() {
		n.Unit.Free()
	}
	e.mu.Unlock()

	e.conts.FinishAll()
	e.logVerbose("mjit: finished")
}

// ChildAfterFork is the post-fork hook in the forked child: the inherited
// worker goroutine/thread does not exist in the child's address space, so
// the child simply marks itself disabled rather than attempting to resume
// or rejoin it. The host is responsible for calling this immediately after
// fork(); mjitcore cannot hook pthread_atfork itself for a goroutine-ful
// process.
func (e *Engine) ChildAfterFork() {
	e.enabled.Store(false)
}
