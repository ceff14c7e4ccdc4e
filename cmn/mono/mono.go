// Package mono provides monotonic-clock helpers so duration arithmetic (poll
// timeouts, idle detection, throttling) never trips over wall-clock jumps.
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since the package was initialized,
// derived from the monotonic component of time.Now().
func NanoTime() int64 { return time.Since(start).Nanoseconds() }

// Since returns the duration elapsed since a NanoTime() reading.
func Since(ts int64) time.Duration { return time.Duration(NanoTime() - ts) }
