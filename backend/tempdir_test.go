package backend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveTempDirPrefersOverride(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolveTempDir(dir)
	if err != nil {
		t.Fatalf("ResolveTempDir(%q) error: %v", dir, err)
	}
	if got != dir {
		t.Fatalf("ResolveTempDir(%q) = %q, want %q", dir, got, dir)
	}
}

func TestResolveTempDirFallsBackWhenOverrideUnusable(t *testing.T) {
	got, err := ResolveTempDir("/definitely/does/not/exist/mjitcore")
	if err != nil {
		t.Fatalf("ResolveTempDir fallback error: %v", err)
	}
	if got == "" {
		t.Fatal("ResolveTempDir fallback returned empty string")
	}
}

func TestResolveHeaderAndPCH(t *testing.T) {
	archlib := t.TempDir()
	if err := os.WriteFile(filepath.Join(archlib, "mjit_min_header.h"), []byte("hdr"), 0o644); err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()

	rt := fakeRT{archlib: archlib}
	paths, err := ResolveHeaderAndPCH(rt, tmp, "", "myprefix")
	if err != nil {
		t.Fatalf("ResolveHeaderAndPCH error: %v", err)
	}
	if paths.HeaderPath != filepath.Join(archlib, "mjit_min_header.h") {
		t.Fatalf("HeaderPath = %q", paths.HeaderPath)
	}
	if !strings.HasPrefix(filepath.Base(paths.PCHPath), "myprefix-") {
		t.Fatalf("PCHPath = %q, want myprefix- prefix", paths.PCHPath)
	}
	if !strings.HasSuffix(paths.PCHPath, ".h.gch") {
		t.Fatalf("PCHPath = %q, want .h.gch suffix", paths.PCHPath)
	}
}

func TestResolveHeaderAndPCHMissingHeader(t *testing.T) {
	archlib := t.TempDir() // no header file written
	rt := fakeRT{archlib: archlib}
	if _, err := ResolveHeaderAndPCH(rt, t.TempDir(), "", ""); err == nil {
		t.Fatal("expected an error when the header file is missing")
	}
}

type fakeRT struct{ archlib string }

func (f fakeRT) PrefixPath() string  { return "" }
func (f fakeRT) ArchlibPath() string { return f.archlib }
