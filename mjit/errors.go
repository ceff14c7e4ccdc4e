package mjit

import "github.com/pkg/errors"

// Sentinel errors.
var (
	// ErrDisabled is returned by operations attempted after Init failed or
	// before it has run, or after Finish.
	ErrDisabled = errors.New("mjit: coordinator disabled")

	// ErrAlreadyStopped is returned by StopWorker/Finish called a second time.
	ErrAlreadyStopped = errors.New("mjit: worker already stopped")

	// ErrWorkerStartFailed wraps a failure to launch the worker goroutine at
	// Init.
	ErrWorkerStartFailed = errors.New("mjit: worker failed to start")

	// ErrTempDirUnusable wraps a failure to resolve a usable temp directory
	// at Init.
	ErrTempDirUnusable = errors.New("mjit: no usable temp directory")

	// ErrHeaderMissing wraps a failure to locate the interpreter header
	// needed to build the PCH at Init.
	ErrHeaderMissing = errors.New("mjit: interpreter header not found")

	// ErrPCHFailed is the terminal state once PCH bootstrap has failed: mark
	// pch_status failed and permanently disable future submissions.
	ErrPCHFailed = errors.New("mjit: pch bootstrap failed")
)

// wrapf wraps sentinel with a formatted cause, preserving errors.Is/As
// against sentinel via pkg/errors' stdlib-compatible Unwrap chain.
func wrapf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
