package evict_test

import (
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/mjitcore/mjitcore/cont"
	"github.com/mjitcore/mjitcore/evict"
	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/mjit/mjittest"
	"github.com/mjitcore/mjitcore/unit"
)

func pushActive(active *unit.List, iseq *host.Iseq) *unit.Node {
	u := unit.NewUnit(iseq.ID, iseq)
	n := unit.NewNode(u)
	active.PushTail(n)
	return n
}

var _ = Describe("UnloadUnits", func() {
	var (
		active *unit.List
		conts  *cont.Registry
		mu     sync.Mutex
	)

	BeforeEach(func() {
		active = unit.NewList(unit.Active)
		conts = cont.New(&mu)
	})

	It("evicts the least-called unit first when nothing is live", func() {
		a := &host.Iseq{ID: 1, Name: "a"}
		b := &host.Iseq{ID: 2, Name: "b"}
		c := &host.Iseq{ID: 3, Name: "c"}
		a.TotalCalls.Add(10)
		b.TotalCalls.Add(1)
		c.TotalCalls.Add(5)
		pushActive(active, a)
		pushActive(active, b)
		pushActive(active, c)

		evicted := evict.UnloadUnitsFanout(active, nil, conts, 2, 1)
		Expect(evicted).To(BeEquivalentTo(1))
		Expect(active.Len()).To(BeEquivalentTo(2))

		var remaining []uint64
		active.Each(func(n *unit.Node) { remaining = append(remaining, n.Unit.ID) })
		Expect(remaining).To(ConsistOf(uint64(1), uint64(3)))
	})

	It("breaks ties by list order, preferring the first-encountered unit", func() {
		a := &host.Iseq{ID: 1, Name: "a"}
		b := &host.Iseq{ID: 2, Name: "b"}
		pushActive(active, a) // equal total_calls (0), a was pushed first
		pushActive(active, b)

		evicted := evict.UnloadUnitsFanout(active, nil, conts, 1, 1)
		Expect(evicted).To(BeEquivalentTo(1))

		var remaining []uint64
		active.Each(func(n *unit.Node) { remaining = append(remaining, n.Unit.ID) })
		Expect(remaining).To(Equal([]uint64{2}))
	})

	It("never evicts a unit whose code is on a live stack, even under target pressure", func() {
		a := &host.Iseq{ID: 1, Name: "a"}
		b := &host.Iseq{ID: 2, Name: "b"}
		a.TotalCalls.Add(1)
		b.TotalCalls.Add(100)
		pushActive(active, a)
		pushActive(active, b)

		// Both units' iseqs are on the live stack, so neither is evictable,
		// even though active.Len() (2) exceeds the target (0) -- P3: stop
		// rather than evict a live unit or hang.
		thread := mjittest.NewThread(host.Frame{Iseq: a}, host.Frame{Iseq: b})

		evicted := evict.UnloadUnitsFanout(active, []host.ExecContext{thread}, conts, 1, 4)
		Expect(evicted).To(BeEquivalentTo(0), "every evictable unit is live on a stack")
		Expect(active.Len()).To(BeEquivalentTo(2))
	})

	It("counts continuations' stacks as live roots alongside threads", func() {
		a := &host.Iseq{ID: 1, Name: "a"}
		pushActive(active, a)
		thread := mjittest.NewThread(host.Frame{Iseq: a})
		conts.New(thread)

		evicted := evict.UnloadUnitsFanout(active, nil, conts, 0, 4)
		Expect(evicted).To(BeEquivalentTo(0))
	})

	It("unconditionally sweeps units whose iseq has already been collected", func() {
		orphan := unit.NewUnit(99, nil)
		active.PushTail(unit.NewNode(orphan))
		live := &host.Iseq{ID: 1, Name: "live"}
		pushActive(active, live)

		evicted := evict.UnloadUnitsFanout(active, nil, conts, 10, 1)
		Expect(evicted).To(BeEquivalentTo(1))
		Expect(active.Len()).To(BeEquivalentTo(1))
	})
})
