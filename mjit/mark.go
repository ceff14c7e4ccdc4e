package mjit

import (
	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/unit"
)

// Mark is called by the host during its own root-marking pass so an iseq
// that is only reachable through a queued, not-yet-compiled unit is not
// collected out from under it. Units in active or compact are not marked
// here: by the time a unit reaches active its iseq has a live compiled
// entry point the host already keeps reachable through its own method
// tables, and compact units are awaiting teardown, not root-marking.
// markFn is the host's "keep this object alive" callback; Mark snapshots
// queue's iseqs under the engine lock, releases the lock, then invokes
// markFn for each snapshot entry -- calling into host code while holding
// the engine lock risks the host's mark callback re-entering the
// coordinator (e.g. via a nested GC hook) and deadlocking.
//
// A nil markFn is accepted and simply walks queue without calling
// anything, which is occasionally useful for tests asserting the snapshot
// shape without a real host mark callback.
func (e *Engine) Mark(markFn func(iseq *host.Iseq)) {
	e.mu.Lock()
	var iseqs []*host.Iseq
	e.queue.Each(func(n *unit.Node) {
		if iseq := n.Unit.Iseq(); iseq != nil {
			iseqs = append(iseqs, iseq)
		}
	})
	e.mu.Unlock()

	if markFn == nil {
		return
	}
	for _, iseq := range iseqs {
		markFn(iseq)
	}
}
