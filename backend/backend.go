// Package backend declares the narrow interface through which the
// coordination core reaches the external compiler backend: code generation,
// the C toolchain invocation, dynamic loading, and PCH bootstrap are all out
// of scope here -- this package only describes the shape the backend must
// present to the coordinator.
package backend

import (
	"context"

	"github.com/mjitcore/mjitcore/gcsync"
	"github.com/mjitcore/mjitcore/host"
	"github.com/mjitcore/mjitcore/unit"
)

// PCHState is the precompiled-header bootstrap state.
type PCHState int32

const (
	PCHNotReady PCHState = iota
	PCHReady
	PCHFailed
)

// Job is one unit of work handed to the backend: compile the iseq behind
// Unit, producing a Handle on success.
type Job struct {
	Unit *unit.Unit
	Iseq *host.Iseq
}

// Result is the outcome of attempting to compile a Job.
type Result struct {
	Handle unit.Handle
	Addr   uintptr
	Err    error
}

// Worker is the compiler backend's entry point. Engine.StartWorker runs
// exactly one Worker on its own goroutine for the coordinator's lifetime.
// Compile is called once per dequeued job; the backend is responsible for
// actually invoking the external toolchain and dynamically loading the
// result -- entirely out of this module's scope.
type Worker interface {
	// Compile performs one compilation. ctx is cancelled when the worker
	// should stop cooperatively; Compile should return promptly after that,
	// with any error.
	Compile(ctx context.Context, job Job) Result
}

// Gate is re-exported so backend implementations that need to observe (not
// drive) the GC rendezvous protocol can depend on just this package.
type Gate = gcsync.Gate
