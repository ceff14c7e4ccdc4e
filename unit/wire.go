package unit

import (
	"io"

	"github.com/tinylib/msgp/msgp"
)

// Snapshot is a point-in-time, lock-free-to-read copy of the coordinator's
// bookkeeping, used by the admin/observability surface. It is never read
// back to reconstruct state -- write-only diagnostics, per DESIGN.md's
// buntdb disposition.
type Snapshot struct {
	QueueLen        int64  `json:"queue_len"`
	ActiveLen       int64  `json:"active_len"`
	CompactLen      int64  `json:"compact_len"`
	MaxCacheSize    int64  `json:"max_cache_size"`
	NextID          uint64 `json:"next_id"`
	Evictions       int64  `json:"evictions_total"`
	CompileTimeouts int64  `json:"compile_timeouts_total"`
	ClassSerials    int64  `json:"class_serials"`
	WorkerRunning   bool   `json:"worker_running"`
	InGC            bool   `json:"in_gc"`
	InJIT           bool   `json:"in_jit"`
}

// MarshalMsg hand-implements the msgp wire encoding (normally msgp-generated
// code; written by hand here since Snapshot is small and stable -- see
// DESIGN.md for why this module exercises tinylib/msgp without codegen).
func (s *Snapshot) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendMapHeader(b, 11)
	o = msgp.AppendString(o, "queue_len")
	o = msgp.AppendInt64(o, s.QueueLen)
	o = msgp.AppendString(o, "active_len")
	o = msgp.AppendInt64(o, s.ActiveLen)
	o = msgp.AppendString(o, "compact_len")
	o = msgp.AppendInt64(o, s.CompactLen)
	o = msgp.AppendString(o, "max_cache_size")
	o = msgp.AppendInt64(o, s.MaxCacheSize)
	o = msgp.AppendString(o, "next_id")
	o = msgp.AppendUint64(o, s.NextID)
	o = msgp.AppendString(o, "evictions_total")
	o = msgp.AppendInt64(o, s.Evictions)
	o = msgp.AppendString(o, "compile_timeouts_total")
	o = msgp.AppendInt64(o, s.CompileTimeouts)
	o = msgp.AppendString(o, "class_serials")
	o = msgp.AppendInt64(o, s.ClassSerials)
	o = msgp.AppendString(o, "worker_running")
	o = msgp.AppendBool(o, s.WorkerRunning)
	o = msgp.AppendString(o, "in_gc")
	o = msgp.AppendBool(o, s.InGC)
	o = msgp.AppendString(o, "in_jit")
	o = msgp.AppendBool(o, s.InJIT)
	return o, nil
}

// EncodeMsg writes the msgp encoding of s to w, for the admin server's
// /stats.msgp handler.
func (s *Snapshot) EncodeMsg(w io.Writer) error {
	b, err := s.MarshalMsg(nil)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
