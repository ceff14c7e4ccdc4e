package mjit

import (
	"time"

	"github.com/mjitcore/mjitcore/backend"
	"github.com/mjitcore/mjitcore/host"
)

// GetIseqFunc blocks the calling (interpreter) thread until iseq's jit_func
// cell resolves to a terminal state, polling at Options.PollQuantum and
// giving up after Options.WaitTimeout: a timed-out cell is flipped to
// NotCompiled so it stays terminal and every later waiter on the same iseq
// returns immediately instead of polling again. At most one warning is
// logged per waiter that actually times out or hits a failed PCH bootstrap.
func (e *Engine) GetIseqFunc(iseq *host.Iseq) host.FuncValue {
	if iseq == nil {
		return host.FuncValue{State: host.NotCompiled}
	}
	if e.PCHStatus() == backend.PCHFailed {
		e.logWarningOnce(iseq, "mjit: get_iseq_func: pch bootstrap failed, falling back to interpreter")
		return host.FuncValue{State: host.NotCompiled}
	}

	v := iseq.Jit.Load()
	if v.State != host.NotReady {
		return v
	}
	if !e.opts.Wait {
		// Non-blocking mode: report the current in-flight state as-is,
		// without polling or timing it out.
		return v
	}

	deadline := time.Now().Add(e.opts.WaitTimeout)
	for {
		v = iseq.Jit.Load()
		if v.State != host.NotReady {
			return v
		}
		if time.Now().After(deadline) {
			e.compileTimeouts.Add(1)
			if e.metrics != nil {
				e.metrics.AddCompileTimeouts(1)
			}
			e.logWarningOnce(iseq, "mjit: get_iseq_func: timed out waiting for compile")
			iseq.Jit.Fail()
			return iseq.Jit.Load()
		}
		time.Sleep(e.opts.PollQuantum)
	}
}

// logWarningOnce logs once for the given iseq rather than once per poll
// iteration, which a naive loop-body log would produce.
func (e *Engine) logWarningOnce(iseq *host.Iseq, msg string) {
	if !e.opts.Warnings {
		return
	}
	e.logWarning(msg, "iseq", iseq.Name)
}
