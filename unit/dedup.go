package unit

import (
	"encoding/binary"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// DedupFilter is a fast, approximate pre-check for "have we already admitted
// this iseq" used by AddIseqToProcess's hot submission path, before the
// authoritative, lock-held iseq->unit backref check.
//
// A cuckoo filter can false-positive (says "maybe seen" for something never
// inserted) but never false-negatives for an item actually inserted and not
// since deleted at this load factor, so a Probe() miss proves the iseq is
// definitely new and lets the caller skip the engine lock entirely; a hit
// still falls through to the authoritative check. This can never violate
// P6 ("submitting the same iseq twice creates at most one unit") because the
// authoritative pointer check is always the thing that actually decides --
// the filter only ever saves a lock acquisition, never replaces the check.
type DedupFilter struct {
	f *cuckoo.Filter
}

// NewDedupFilter creates a filter sized for roughly capacity concurrently
// tracked iseqs.
func NewDedupFilter(capacity uint) *DedupFilter {
	return &DedupFilter{f: cuckoo.NewFilter(capacity)}
}

// Probe reports whether id may already have been admitted. false is
// authoritative ("definitely not seen"); true requires the caller to confirm
// via the real check.
func (d *DedupFilter) Probe(id uint64) bool {
	return d.f.Lookup(keyBytes(id))
}

// Remember records that id has been admitted, for future Probe calls.
func (d *DedupFilter) Remember(id uint64) {
	d.f.InsertUnique(keyBytes(id))
}

// Forget removes id, e.g. once its unit has been evicted and the iseq could
// legitimately be resubmitted.
func (d *DedupFilter) Forget(id uint64) {
	d.f.Delete(keyBytes(id))
}

func keyBytes(id uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return b[:]
}
