package mjit

import (
	"testing"

	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/mjit/mjittest"
)

// TestAddIseqToProcessWiresDedupForget is a white-box test (internal package)
// of the dedup-filter lifecycle: Probe must see the iseq right after
// admission, and stop seeing it once the admitted unit is freed, so a
// legitimately re-admitted iseq doesn't pay the cuckoo filter's permanent
// false-positive cost after eviction.
func TestAddIseqToProcessWiresDedupForget(t *testing.T) {
	rt := mjittest.NewRuntime()
	worker := mjittest.NewWorker()
	e := New(rt, worker, Options{MaxCacheSize: 10})
	e.enabled.Store(true) // bypass Init: this test only exercises submit+free

	iseq := &host.Iseq{ID: 123}
	e.AddIseqToProcess(iseq)

	if !e.dedup.Probe(iseq.ID) {
		t.Fatal("dedup filter should report the iseq as admitted right after AddIseqToProcess")
	}

	e.mu.Lock()
	node := e.queue.PopHead()
	e.mu.Unlock()
	if node == nil {
		t.Fatal("expected the submitted unit to be queued")
	}

	node.Unit.Free()

	if e.dedup.Probe(iseq.ID) {
		t.Fatal("Free() must forget the dedup entry so a later legitimate resubmission isn't permanently shadowed")
	}
}
