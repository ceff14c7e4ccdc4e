// Package nlog is a minimal leveled logger used across the coordination core.
//
// It intentionally does not do log rotation, structured fields, or sinks beyond stderr:
// formatting is explicitly out of scope for this subsystem (see spec's Non-goals).
package nlog

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

var std = log.New(os.Stderr, "", log.Ldate|log.Lmicroseconds|log.Lshortfile)

// verbosity is a process-global verbosity level, set via SetVerbosity.
// FastV callers compare against it without taking a lock.
var verbosity int32

// SetVerbosity sets the global verbosity level used by FastV.
func SetVerbosity(v int) { atomic.StoreInt32(&verbosity, int32(v)) }

// FastV reports whether logging at the given level is enabled for module.
// The module argument is accepted for call-site symmetry with aistore's
// cmn.Rom.FastV(level, module) and is presently unused for filtering (no
// per-module verbosity table is specified), but is kept so call sites read
// the same way and a per-module table can be added later without touching
// every call site.
func FastV(level int, _ string) bool {
	return atomic.LoadInt32(&verbosity) >= int32(level)
}

func Infoln(v ...interface{})               { _ = std.Output(2, "I "+fmt.Sprintln(v...)) }
func Infof(format string, v ...interface{}) { _ = std.Output(2, "I "+fmt.Sprintf(format, v...)) }

func Warningln(v ...interface{})               { _ = std.Output(2, "W "+fmt.Sprintln(v...)) }
func Warningf(format string, v ...interface{}) { _ = std.Output(2, "W "+fmt.Sprintf(format, v...)) }

func Errorln(v ...interface{})               { _ = std.Output(2, "E "+fmt.Sprintln(v...)) }
func Errorf(format string, v ...interface{}) { _ = std.Output(2, "E "+fmt.Sprintf(format, v...)) }
