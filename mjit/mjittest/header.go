package mjittest

import (
	"os"
	"path/filepath"
)

// WriteFakeHeader writes a stand-in mjit_min_header.h into dir, so a
// mjittest.Runtime with Archlib=dir passes Init's header probe
// (backend.ResolveHeaderAndPCH) without a real interpreter build tree.
func WriteFakeHeader(dir string) error {
	return os.WriteFile(filepath.Join(dir, "mjit_min_header.h"), []byte("/* mjittest fake header */\n"), 0o644)
}
