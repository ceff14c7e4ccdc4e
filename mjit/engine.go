// Package mjit is the top-level coordination core: it owns the engine lock,
// the three unit lists, the continuation registry, the
// class-serial set, the GC rendezvous gate, and the single compiler worker
// goroutine, and exposes the operations an embedding interpreter calls:
// AddIseqToProcess, GetIseqFunc, Pause/Resume/StopWorker, Init/Finish,
// ChildAfterFork, and the Mark/GC hooks.
//
// Grounded on the teacher's xaction-registry shape (ghjramos-aistore
// xact/xs/tcb.go, tcobjs.go): one struct owning a lock plus a handful of
// collaborator types constructed once and reused for the object's lifetime,
// atomic flags for anything polled outside the lock, and a context.Context
// carried alongside the lock for cooperative goroutine shutdown.
package mjit

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mjitcore/mjitcore/backend"
	"github.com/mjitcore/mjitcore/classes"
	"github.com/mjitcore/mjitcore/cmn/nlog"
	"github.com/mjitcore/mjitcore/cmn/xatomic"
	"github.com/mjitcore/mjitcore/cont"
	"github.com/mjitcore/mjitcore/gcsync"
	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/unit"
)

// Engine is the coordination core. The zero value is not usable; construct
// with New.
type Engine struct {
	rt machineRuntime
	be backend.Worker

	opts Options
	paths backend.Paths

	// mu is the single engine lock; every collaborator below that needs it
	// is handed &mu at construction time rather than owning a lock of its
	// own.
	mu           sync.Mutex
	pchWakeup    *sync.Cond // worker -> mutator, PCH bootstrap finished
	workerWakeup *sync.Cond // mutator -> worker; also reused for pause/resume

	queue   *unit.List
	active  *unit.List
	compact *unit.List

	conts   *cont.Registry
	classes *classes.Set
	gate    *gcsync.Gate
	dedup   *unit.DedupFilter

	nextUnitID xatomic.Int64

	// enabled reflects whether submissions are currently accepted; cleared
	// permanently by a failed Init, a failed PCH bootstrap, or Finish, and
	// transiently by Pause.
	enabled     xatomic.Bool
	pchStatus   xatomic.Int32 // backend.PCHState
	stopWorker  bool          // guarded by mu
	workerDone  bool          // guarded by mu: worker goroutine has exited
	paused      bool          // guarded by mu
	busy        bool          // guarded by mu: worker is mid-compile

	evictions       xatomic.Int64
	compileTimeouts xatomic.Int64

	eg     *errgroup.Group
	cancel context.CancelFunc

	metrics MetricsSink
}

// MetricsSink is the narrow interface Engine reports into; stats.Metrics
// implements it. nil is valid and means "no metrics" -- the
// admin/observability surface is optional.
type MetricsSink interface {
	SetQueueLength(int64)
	SetActiveUnits(int64)
	SetCompactUnits(int64)
	AddEvictions(int64)
	AddCompileTimeouts(int64)
	SetClassSerials(int64)
	SetWorkerState(int32)
}

// machineRuntime is host.Runtime narrowed to what Engine itself calls
// directly (tempdir/header resolution also needs PrefixPath/ArchlibPath,
// declared separately in backend to avoid this package depending on backend
// for the full host.Runtime shape).
type machineRuntime = host.Runtime

// New constructs an Engine. It does no I/O and starts no goroutines --
// call Init to bring it up.
func New(rt host.Runtime, be backend.Worker, opts Options) *Engine {
	opts.normalize()
	e := &Engine{
		rt:   rt,
		be:   be,
		opts: opts,

		queue:   unit.NewList(unit.Queue),
		active:  unit.NewList(unit.Active),
		compact: unit.NewList(unit.Compact),
		dedup:   unit.NewDedupFilter(4096),
	}
	e.pchWakeup = sync.NewCond(&e.mu)
	e.workerWakeup = sync.NewCond(&e.mu)
	e.conts = cont.New(&e.mu)
	e.classes = classes.New(&e.mu)
	e.gate = gcsync.New(&e.mu)
	return e
}

// SetMetrics attaches an optional metrics sink. Must be called before Init.
func (e *Engine) SetMetrics(m MetricsSink) { e.metrics = m }

// Enabled reports whether the coordinator currently accepts submissions.
func (e *Engine) Enabled() bool { return e.enabled.Load() }

// PCHStatus reports the precompiled-header bootstrap state.
func (e *Engine) PCHStatus() backend.PCHState { return backend.PCHState(e.pchStatus.Load()) }

// Paths returns the temp-dir/header/PCH paths resolved at Init, for a
// backend.Worker that needs them outside the per-job Compile call.
func (e *Engine) Paths() backend.Paths { return e.paths }

// MinCalls returns the configured call-count threshold. The coordinator
// itself never counts calls -- instrumenting interpreter dispatch is out of
// scope -- so the host reads this once and does its own per-call
// increment-and-compare before calling AddIseqToProcess.
func (e *Engine) MinCalls() int { return e.opts.MinCalls }

// ClassSerials exposes the class-serial set directly: it is a thin enough
// surface that wrapping it on Engine would add nothing.
func (e *Engine) ClassSerials() *classes.Set { return e.classes }

// Continuations exposes the continuation registry directly.
func (e *Engine) Continuations() *cont.Registry { return e.conts }

func (e *Engine) nextID() uint64 { return uint64(e.nextUnitID.Inc()) }

func (e *Engine) reportMetrics() {
	if e.metrics == nil {
		return
	}
	e.metrics.SetQueueLength(e.queue.Len())
	e.metrics.SetActiveUnits(e.active.Len())
	e.metrics.SetCompactUnits(e.compact.Len())
	e.metrics.SetClassSerials(e.classes.Count())
	state := int32(1)
	if e.stopWorker || e.workerDone {
		state = 0
	}
	e.metrics.SetWorkerState(state)
}

// Snapshot returns a point-in-time copy of the coordinator's bookkeeping.
func (e *Engine) Snapshot() unit.Snapshot {
	e.mu.Lock()
	s := unit.Snapshot{
		QueueLen:     e.queue.Len(),
		ActiveLen:    e.active.Len(),
		CompactLen:   e.compact.Len(),
		MaxCacheSize: e.opts.MaxCacheSize,
		NextID:       uint64(e.nextUnitID.Load()),
		InGC:         e.gate.InGC(),
		InJIT:        e.gate.InJIT(),
	}
	e.mu.Unlock()
	s.Evictions = e.evictions.Load()
	s.CompileTimeouts = e.compileTimeouts.Load()
	s.ClassSerials = e.classes.Count()
	s.WorkerRunning = e.Enabled() && !e.workerHasStopped()
	return s
}

func (e *Engine) workerHasStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workerDone
}

func (e *Engine) logVerbose(args ...interface{}) {
	if e.opts.Verbose {
		nlog.Infoln(args...)
	}
}

func (e *Engine) logWarning(args ...interface{}) {
	if e.opts.Warnings {
		nlog.Warningln(args...)
	}
}
