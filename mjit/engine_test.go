package mjit_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/mjit"
	"github.com/mjitcore/mjitcore/mjit/mjittest"
)

func newEngine(opts mjit.Options) (*mjit.Engine, *mjittest.Runtime, *mjittest.Worker, func()) {
	tmp, err := os.MkdirTemp("", "mjit-engine-test-")
	Expect(err).NotTo(HaveOccurred())
	Expect(mjittest.WriteFakeHeader(tmp)).To(Succeed())

	rt := mjittest.NewRuntime()
	rt.Archlib = tmp
	worker := mjittest.NewWorker()

	opts.TempDir = tmp
	eng := mjit.New(rt, worker, opts)
	return eng, rt, worker, func() { os.RemoveAll(tmp) }
}

var _ = Describe("Engine", func() {
	var cleanup func()

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	It("compiles a submitted iseq and resolves it to COMPILED", func() {
		eng, _, _, c := newEngine(mjit.Options{Wait: true, MaxCacheSize: 10})
		cleanup = c
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		iseq := &host.Iseq{ID: 1, Name: "hot_method"}
		eng.AddIseqToProcess(iseq)

		v := eng.GetIseqFunc(iseq)
		Expect(v.State).To(Equal(host.Compiled))
		Expect(v.Addr).NotTo(BeZero())
	})

	It("treats a duplicate submission as a no-op (P6)", func() {
		eng, _, worker, c := newEngine(mjit.Options{Wait: true, MaxCacheSize: 10})
		cleanup = c
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		iseq := &host.Iseq{ID: 1, Name: "hot_method"}
		eng.AddIseqToProcess(iseq)
		eng.AddIseqToProcess(iseq) // second submission of the same iseq
		eng.AddIseqToProcess(iseq) // and a third, for good measure

		_ = eng.GetIseqFunc(iseq)
		Expect(worker.CallCount()).To(Equal(1), "at most one unit is ever created per iseq")
	})

	It("reports NOT_ADDED for an iseq that was never submitted", func() {
		eng, _, _, c := newEngine(mjit.Options{Wait: true, MaxCacheSize: 10})
		cleanup = c
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		iseq := &host.Iseq{ID: 2, Name: "never_admitted"}
		v := eng.GetIseqFunc(iseq)
		Expect(v.State).To(Equal(host.NotAdded))
	})

	It("times out a synchronous waiter when the backend never completes", func() {
		eng, _, worker, c := newEngine(mjit.Options{
			Wait:        true,
			MaxCacheSize: 10,
			WaitTimeout: 20 * time.Millisecond,
			PollQuantum: time.Millisecond,
			Warnings:    true,
		})
		cleanup = c
		worker.Hang = true
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		iseq := &host.Iseq{ID: 3, Name: "stuck"}
		eng.AddIseqToProcess(iseq)

		v := eng.GetIseqFunc(iseq)
		Expect(v.State).To(Equal(host.NotCompiled), "timing out flips the cell to the terminal NOT_COMPILED state")

		snap := eng.Snapshot()
		Expect(snap.CompileTimeouts).To(BeEquivalentTo(1))

		v2 := eng.GetIseqFunc(iseq)
		Expect(v2.State).To(Equal(host.NotCompiled), "a second call returns NOT_COMPILED immediately, without waiting again")
		Expect(eng.Snapshot().CompileTimeouts).To(BeEquivalentTo(1), "the second call must not re-time-out")
	})

	It("marks the jit_func cell NOT_COMPILED when the backend reports failure", func() {
		eng, _, worker, c := newEngine(mjit.Options{Wait: true, MaxCacheSize: 10})
		cleanup = c
		worker.Fail = true
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		iseq := &host.Iseq{ID: 4, Name: "bad_method"}
		eng.AddIseqToProcess(iseq)

		v := eng.GetIseqFunc(iseq)
		Expect(v.State).To(Equal(host.NotCompiled))
	})

	It("evicts down toward max_cache_size as units accumulate", func() {
		eng, _, _, c := newEngine(mjit.Options{Wait: true, MaxCacheSize: 10})
		cleanup = c
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		for i := 0; i < 25; i++ {
			iseq := &host.Iseq{ID: uint64(i + 1), Name: "m"}
			eng.AddIseqToProcess(iseq)
			eng.GetIseqFunc(iseq)
		}

		snap := eng.Snapshot()
		Expect(snap.ActiveLen).To(BeNumerically("<=", 10))
		Expect(snap.Evictions).To(BeNumerically(">", 0))
	})

	It("stops admitting work while paused and resumes on Resume", func() {
		eng, _, worker, c := newEngine(mjit.Options{Wait: false, MaxCacheSize: 10})
		cleanup = c
		worker.Delay = 5 * time.Millisecond
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		Expect(eng.Pause(true)).To(Succeed())

		iseq := &host.Iseq{ID: 5, Name: "paused_method"}
		eng.AddIseqToProcess(iseq)

		Consistently(func() host.State {
			return iseq.Jit.Load().State
		}, 30*time.Millisecond, 5*time.Millisecond).Should(Equal(host.NotReady))

		Expect(eng.Resume()).To(Succeed())
		Eventually(func() host.State {
			return iseq.Jit.Load().State
		}, time.Second, 5*time.Millisecond).Should(Equal(host.Compiled))
	})

	It("drains the queue and stops cleanly via StopWorker", func() {
		eng, _, _, c := newEngine(mjit.Options{Wait: true, MaxCacheSize: 10})
		cleanup = c
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		iseq := &host.Iseq{ID: 6, Name: "drained"}
		eng.AddIseqToProcess(iseq)
		eng.GetIseqFunc(iseq)

		Expect(eng.StopWorker()).To(Succeed())
		Expect(eng.StopWorker()).To(MatchError(mjit.ErrAlreadyStopped))
	})

	It("marks only iseqs still sitting in queue, not active or compact", func() {
		eng, _, worker, c := newEngine(mjit.Options{Wait: false, MaxCacheSize: 10})
		cleanup = c
		worker.Delay = time.Hour // never resolves during this test
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		queued := &host.Iseq{ID: 8, Name: "queued"}
		eng.AddIseqToProcess(queued)

		Eventually(func() bool {
			return worker.CallCount() > 0
		}, time.Second, time.Millisecond).Should(BeTrue(), "worker must have picked up the job")

		var marked []*host.Iseq
		eng.Mark(func(iseq *host.Iseq) { marked = append(marked, iseq) })
		Expect(marked).To(BeEmpty(), "the queued unit is already being compiled by the worker, not sitting in queue")

		second := &host.Iseq{ID: 9, Name: "second"}
		eng.AddIseqToProcess(second)
		Eventually(func() int64 { return eng.Snapshot().QueueLen }, time.Second, time.Millisecond).Should(BeEquivalentTo(1))

		marked = nil
		eng.Mark(func(iseq *host.Iseq) { marked = append(marked, iseq) })
		Expect(marked).To(ConsistOf(second))
	})

	It("disables the coordinator permanently after ChildAfterFork", func() {
		eng, _, _, c := newEngine(mjit.Options{Wait: true, MaxCacheSize: 10})
		cleanup = c
		Expect(eng.Init()).To(Succeed())
		defer eng.Finish()

		eng.ChildAfterFork()
		Expect(eng.Enabled()).To(BeFalse())

		iseq := &host.Iseq{ID: 7, Name: "post_fork"}
		eng.AddIseqToProcess(iseq)
		Expect(iseq.Jit.Load().State).To(Equal(host.NotAdded), "a disabled coordinator must not admit work")
	})
})
