// Command mjitdemo wires mjit.Engine to the in-memory mjittest fakes and
// runs it for a short, fixed workload, printing a final snapshot. It exists
// to demonstrate the coordination core end to end without a real bytecode
// interpreter or C toolchain.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mjitcore/mjitcore/adminsrv"
	"github.com/mjitcore/mjitcore/cmn/nlog"
	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/mjit"
	"github.com/mjitcore/mjitcore/mjit/mjittest"
	"github.com/mjitcore/mjitcore/stats"
)

func main() {
	if err := run(); err != nil {
		nlog.Errorln("mjitdemo:", err)
		os.Exit(1)
	}
}

func run() error {
	tmp, err := os.MkdirTemp("", "mjitdemo-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	if err := mjittest.WriteFakeHeader(tmp); err != nil {
		return err
	}

	rt := mjittest.NewRuntime()
	rt.Archlib = tmp
	thread := mjittest.NewThread()
	rt.AddThread(thread)

	worker := mjittest.NewWorker()
	worker.Delay = 5 * time.Millisecond

	opts := mjit.Options{MinCalls: 2, MaxCacheSize: 16, Verbose: true, Wait: true}
	eng := mjit.New(rt, worker, opts)

	metrics := stats.NewMetrics("mjit")
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return err
	}
	eng.SetMetrics(metrics)

	if err := eng.Init(); err != nil {
		return err
	}
	defer eng.Finish()

	admin := adminsrv.New("127.0.0.1:0", eng.Snapshot, registry)
	_ = admin // demo intentionally does not call ListenAndServe; wiring only.

	iseqs := make([]*host.Iseq, 0, 10)
	for i := 0; i < 10; i++ {
		iseq := &host.Iseq{ID: uint64(i + 1), Name: fmt.Sprintf("method_%d", i)}
		iseq.TotalCalls.Add(int64(i))
		iseqs = append(iseqs, iseq)
		eng.AddIseqToProcess(iseq)
	}

	for _, iseq := range iseqs {
		v := eng.GetIseqFunc(iseq)
		fmt.Printf("%s: state=%s addr=%#x\n", iseq.Name, v.State, v.Addr)
	}

	snap := eng.Snapshot()
	fmt.Printf("final snapshot: %+v\n", snap)
	return nil
}
