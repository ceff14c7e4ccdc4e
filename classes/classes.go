// Package classes implements the valid class-serial set: a concurrent-safe
// mapping of currently-valid class identities, read lock-free by compiled
// guard code and maintained by explicit add/remove hooks with a
// deliberately asymmetric locking contract.
//
// Sharded on github.com/OneOfOne/xxhash of the serial id to cut contention
// on the read-heavy guard-check path.
package classes

import (
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/mjitcore/mjitcore/host"
)

const numShards = 16

type shard struct {
	mu sync.RWMutex
	m  map[int64]struct{}
}

// Set is the class-serial validity set.
//
// Add must be called only from contexts already holding the host's global
// interpreter lock and deliberately does NOT take the engine lock -- in the
// source system, touching the backing map here could
// recursively trigger GC and deadlock against gc_start_hook. Remove is
// called from contexts that may race with the worker's lock-free reads and
// therefore does take the engine lock. This asymmetry is preserved exactly
// as specified, not "fixed": see DESIGN.md.
type Set struct {
	engineLock *sync.Mutex
	shards     [numShards]*shard
}

// New creates a class-serial set sharing the coordinator's engine lock
// (used only by Remove).
func New(engineLock *sync.Mutex) *Set {
	s := &Set{engineLock: engineLock}
	for i := range s.shards {
		s.shards[i] = &shard{m: make(map[int64]struct{})}
	}
	return s
}

func (s *Set) shardFor(id int64) *shard {
	var b [8]byte
	u := uint64(id)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	h := xxhash.Checksum64(b[:])
	return s.shards[h%uint64(numShards)]
}

// Add inserts id into the set. Must not be called while the engine lock is
// held by a different goroutine expecting to take it here -- see the type
// doc. Safe to call concurrently with Has and with itself.
func (s *Set) Add(id int64) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	sh.m[id] = struct{}{}
	sh.mu.Unlock()
}

// Remove deletes id from the set, taking the engine lock first.
func (s *Set) Remove(id int64) {
	s.engineLock.Lock()
	defer s.engineLock.Unlock()
	sh := s.shardFor(id)
	sh.mu.Lock()
	delete(sh.m, id)
	sh.mu.Unlock()
}

// Has reports whether id is currently valid. Lock-free with respect to the
// engine lock (only takes the shard's own RWMutex for the duration of the
// read), matching the "reads by generated code are lock-free" requirement;
// a stale-present read that should have been removed a moment ago is
// conservatively safe: absence is the only decision point.
func (s *Set) Has(id int64) bool {
	sh := s.shardFor(id)
	sh.mu.RLock()
	_, ok := sh.m[id]
	sh.mu.RUnlock()
	return ok
}

// Count returns the total number of valid class-serials, for stats.
func (s *Set) Count() int64 {
	var n int64
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += int64(len(sh.m))
		sh.mu.RUnlock()
	}
	return n
}

// Seed populates the set at Init from the root object's class, the top-self
// class, and every constant in the root constant table that names a class
// or module. Seeding happens before the worker starts, so it is safe to
// call Add directly here even though Init itself is not necessarily running
// under the host's GIL in every embedding -- there is no concurrent Remove
// possible yet; the asymmetric locking contract above concerns steady
// state, not bootstrap.
func Seed(s *Set, rt host.Runtime) {
	s.Add(rt.RootObjectClassSerial())
	s.Add(rt.TopSelfClassSerial())
	for _, c := range rt.RootConstantTable() {
		if c.IsClassOrModule {
			s.Add(c.ClassSerial)
		}
	}
}
