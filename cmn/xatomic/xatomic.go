// Package xatomic wraps sync/atomic counters in small value types, matching
// the teacher's own cmn/atomic package (Int32, Int64, Bool) used throughout
// the xaction lifecycle for refcounts and fail-fast flags.
package xatomic

import "sync/atomic"

// Int32 is an atomically accessed int32.
type Int32 struct{ v int32 }

func (i *Int32) Load() int32        { return atomic.LoadInt32(&i.v) }
func (i *Int32) Store(val int32)    { atomic.StoreInt32(&i.v, val) }
func (i *Int32) Inc() int32         { return atomic.AddInt32(&i.v, 1) }
func (i *Int32) Dec() int32         { return atomic.AddInt32(&i.v, -1) }
func (i *Int32) Add(delta int32) int32 { return atomic.AddInt32(&i.v, delta) }
func (i *Int32) CAS(old, newv int32) bool {
	return atomic.CompareAndSwapInt32(&i.v, old, newv)
}

// Int64 is an atomically accessed int64.
type Int64 struct{ v int64 }

func (i *Int64) Load() int64           { return atomic.LoadInt64(&i.v) }
func (i *Int64) Store(val int64)       { atomic.StoreInt64(&i.v, val) }
func (i *Int64) Inc() int64            { return atomic.AddInt64(&i.v, 1) }
func (i *Int64) Dec() int64            { return atomic.AddInt64(&i.v, -1) }
func (i *Int64) Add(delta int64) int64 { return atomic.AddInt64(&i.v, delta) }
func (i *Int64) CAS(old, newv int64) bool {
	return atomic.CompareAndSwapInt64(&i.v, old, newv)
}

// Bool is an atomically accessed bool.
type Bool struct{ v int32 }

func (b *Bool) Load() bool     { return atomic.LoadInt32(&b.v) != 0 }
func (b *Bool) Store(val bool) { atomic.StoreInt32(&b.v, b2i(val)) }

// CAS atomically compares-and-swaps, returning whether it succeeded.
func (b *Bool) CAS(old, newv bool) bool {
	return atomic.CompareAndSwapInt32(&b.v, b2i(old), b2i(newv))
}

func b2i(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

// Uintptr is an atomically accessed uintptr, used for jit_func-style cells
// that flip between sentinel integer states and a real pointer/address value.
type Uintptr struct{ v uintptr }

func (u *Uintptr) Load() uintptr        { return atomic.LoadUintptr(&u.v) }
func (u *Uintptr) Store(val uintptr)    { atomic.StoreUintptr(&u.v, val) }
func (u *Uintptr) CAS(old, newv uintptr) bool {
	return atomic.CompareAndSwapUintptr(&u.v, old, newv)
}
