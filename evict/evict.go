// Package evict implements eviction: bringing the active list back down to
// max_cache_size minus a 10% hysteresis margin, never evicting a unit whose
// compiled code might be on a live stack.
//
// The liveness scan fans out across host threads and registered
// continuations with a bounded worker count via golang.org/x/sync/semaphore,
// so a host with many threads doesn't spawn unbounded goroutines during
// eviction.
package evict

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/mjitcore/mjitcore/cont"
	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/unit"
)

// DefaultMaxFanout bounds how many goroutines concurrently walk execution
// contexts' frame stacks during the liveness scan.
const DefaultMaxFanout = 32

// UnloadUnits evicts units from active until its length reaches
// max_cache_size - floor(initialLen/10), or no evictable unit remains.
// Caller must hold the engine lock for the whole call; returns the number of
// units evicted.
func UnloadUnits(active *unit.List, threads []host.ExecContext, conts *cont.Registry, maxCacheSize int64) int64 {
	return UnloadUnitsFanout(active, threads, conts, maxCacheSize, DefaultMaxFanout)
}

// UnloadUnitsFanout is UnloadUnits with an explicit fan-out bound, exposed
// for tests that want deterministic single-goroutine behavior (maxFanout=1).
func UnloadUnitsFanout(active *unit.List, threads []host.ExecContext, conts *cont.Registry, maxCacheSize, maxFanout int64) int64 {
	// Captured once, before the null-iseq sweep below may shrink active.Len()
	// further -- deliberate, not a bug to fix.
	initialLen := active.Len()
	target := maxCacheSize - initialLen/10

	var evicted int64

	// Step 1: unconditionally evict units whose iseq was reclaimed by GC.
	var dead []*unit.Node
	active.Each(func(n *unit.Node) {
		if n.Unit.Iseq() == nil {
			dead = append(dead, n)
		}
	})
	for _, n := range dead {
		active.Remove(n)
		n.Unit.Free()
		evicted++
	}

	// Step 2: clear used_code_p on survivors and index them by iseq for the
	// liveness scan.
	index := make(map[*host.Iseq]*unit.Unit)
	active.Each(func(n *unit.Node) {
		n.Unit.SetUsedCode(false)
		if iseq := n.Unit.Iseq(); iseq != nil {
			index[iseq] = n.Unit
		}
	})

	// Step 3: mark every unit reachable from a live stack frame.
	markLiveUnits(threads, conts, index, maxFanout)

	// Step 4: repeatedly evict the least-called not-in-use unit.
	for active.Len() > target {
		victim := pickVictim(active)
		if victim == nil {
			break // all remaining units are live -- P3: stop, never hang.
		}
		active.Remove(victim)
		victim.Unit.Free()
		evicted++
	}
	return evicted
}

func markLiveUnits(threads []host.ExecContext, conts *cont.Registry, index map[*host.Iseq]*unit.Unit, maxFanout int64) {
	if len(index) == 0 {
		return
	}
	if maxFanout < 1 {
		maxFanout = 1
	}

	var ecs []host.ExecContext
	ecs = append(ecs, threads...)
	if conts != nil {
		conts.Each(func(ec host.ExecContext) { ecs = append(ecs, ec) })
	}
	if len(ecs) == 0 {
		return
	}

	sem := semaphore.NewWeighted(maxFanout)
	ctx := context.Background()
	done := make(chan struct{}, len(ecs))
	for _, ec := range ecs {
		ec := ec
		_ = sem.Acquire(ctx, 1)
		go func() {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()
			markFrames(ec, index)
		}()
	}
	for range ecs {
		<-done
	}
}

// markFrames sets used_code_p for any unit whose iseq is found live on ec's
// stack. Each goroutine only ever flips a bool on a Unit it looked up from a
// read-only map built before fan-out, so no additional locking is needed
// here.
func markFrames(ec host.ExecContext, index map[*host.Iseq]*unit.Unit) {
	for _, f := range ec.Frames() {
		if f.Iseq == nil {
			continue
		}
		if u, ok := index[f.Iseq]; ok {
			u.SetUsedCode(true)
		}
	}
}

func pickVictim(active *unit.List) *unit.Node {
	var best *unit.Node
	var bestCalls int64
	active.Each(func(n *unit.Node) {
		if n.Unit.UsedCode() {
			return
		}
		var calls int64
		if iseq := n.Unit.Iseq(); iseq != nil {
			calls = iseq.TotalCalls.Load()
		}
		if best == nil || calls < bestCalls {
			best, bestCalls = n, calls
		}
	})
	return best
}
