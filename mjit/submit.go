package mjit

import (
	"github.com/mjitcore/mjitcore/backend"
	"github.com/mjitcore/mjitcore/evict"
	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/unit"
)

// AddIseqToProcess admits iseq for background compilation if, and only if,
// it has never been admitted before. No-op (not an error) if the coordinator
// is disabled, PCH bootstrap has failed, or iseq has already been admitted.
func (e *Engine) AddIseqToProcess(iseq *host.Iseq) {
	if iseq == nil || !e.Enabled() {
		return
	}
	if e.PCHStatus() == backend.PCHFailed {
		return
	}

	// Fast-reject pre-check: a filter miss proves this iseq was never
	// admitted, so skip straight past the authoritative backref check; a hit
	// still falls through to it below.
	if e.dedup.Probe(iseq.ID) {
		if iseq.Unit() != nil {
			return
		}
	}

	// The authoritative, race-proof admission check: this CAS is what
	// actually enforces P6, independent of the dedup filter above.
	if !iseq.Jit.MarkNotReady() {
		return
	}

	u := unit.NewUnit(e.nextID(), iseq)
	e.dedup.Remember(iseq.ID)
	u.OnFree = func(iseq *host.Iseq) { e.dedup.Forget(iseq.ID) }
	node := unit.NewNode(u)

	e.mu.Lock()
	e.queue.PushTail(node)
	needEvict := e.active.Len() >= e.opts.MaxCacheSize
	e.reportMetrics()
	e.mu.Unlock()

	if needEvict {
		e.evictNow()
	}

	e.mu.Lock()
	e.workerWakeup.Broadcast()
	e.mu.Unlock()

	e.logVerbose("mjit: admitted iseq", iseq.Name, "id", u.ID)
}

// evictNow runs the eviction algorithm under the engine lock and records the
// count for stats.
func (e *Engine) evictNow() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evictLocked()
}

func (e *Engine) evictLocked() {
	n := evict.UnloadUnitsFanout(e.active, e.rt.Threads(), e.conts, e.opts.MaxCacheSize, e.opts.MaxEvictFanout)
	if n > 0 {
		e.evictions.Add(n)
		e.logVerbose("mjit: evicted", n, "units")
	}
	e.reportMetrics()
	if e.metrics != nil {
		e.metrics.AddEvictions(n)
	}
}
