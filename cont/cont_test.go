package cont

import (
	"sync"
	"testing"

	"github.com/mjitcore/mjitcore/host"
)

type fakeEC struct{ id int }

func (f *fakeEC) Frames() []host.Frame { return nil }

func TestRegistryAddRemoveLen(t *testing.T) {
	var mu sync.Mutex
	r := New(&mu)

	c1 := r.New(&fakeEC{1})
	c2 := r.New(&fakeEC{2})
	if got := r.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	r.Free(c1)
	if got := r.Len(); got != 1 {
		t.Fatalf("Len() after Free = %d, want 1", got)
	}

	var seen []*fakeEC
	r.Each(func(ec host.ExecContext) { seen = append(seen, ec.(*fakeEC)) })
	if len(seen) != 1 || seen[0] != c2.EC.(*fakeEC) {
		t.Fatalf("Each() after Free = %v, want only c2's EC", seen)
	}
}

func TestRegistryFinishAll(t *testing.T) {
	var mu sync.Mutex
	r := New(&mu)
	r.New(&fakeEC{1})
	r.New(&fakeEC{2})
	r.FinishAll()
	if got := r.Len(); got != 0 {
		t.Fatalf("Len() after FinishAll = %d, want 0", got)
	}
	count := 0
	r.Each(func(host.ExecContext) { count++ })
	if count != 0 {
		t.Fatalf("Each() after FinishAll visited %d entries, want 0", count)
	}
}
