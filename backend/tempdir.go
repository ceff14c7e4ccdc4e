// Temp-directory and header/PCH path resolution.
package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/teris-io/shortid"
	"golang.org/x/sys/unix"

	"github.com/mjitcore/mjitcore/cmn/nlog"
)

// Paths is the result of resolving the working temp directory and the
// header/PCH file locations at Init.
type Paths struct {
	TempDir    string
	HeaderPath string
	PCHPath    string
}

// ResolveTempDir checks $TMPDIR, then $TMP, then a platform default,
// falling back to /tmp; the
// directory must exist, be a directory, and either be owner-only writable or
// have the sticky bit set, and be writable by the effective user.
func ResolveTempDir(override string) (string, error) {
	candidates := []string{override, os.Getenv("TMPDIR"), os.Getenv("TMP"), platformDefaultTempDir(), "/tmp"}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if validTempDir(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("mjit: no usable temp directory among candidates %v", candidates)
}

func platformDefaultTempDir() string {
	// os.TempDir() already implements the Windows-API / Darwin confstr /
	// $TMPDIR-or-/tmp resolution chain per platform; tried after the more
	// specific environment variables above.
	return os.TempDir()
}

func validTempDir(path string) bool {
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return false
	}
	var raw unix.Stat_t
	if err := unix.Stat(path, &raw); err != nil {
		return false
	}
	mode := raw.Mode
	ownerOnlyWritable := mode&(unix.S_IWGRP|unix.S_IWOTH) == 0
	sticky := mode&unix.S_ISVTX != 0
	if !ownerOnlyWritable && !sticky {
		return false
	}
	return unix.Access(path, unix.W_OK) == nil
}

// ResolveHeaderAndPCH probes for the interpreter header (opened read-only to
// verify presence) and builds the unique PCH output path (prefix + shortid
// suffix + ".h.gch"). devBuildDir, when non-empty, overrides the
// prefix-path-derived header location for in-tree test runs, the equivalent
// of a build-directory override enabled by an environment variable.
func ResolveHeaderAndPCH(rt interface {
	PrefixPath() string
	ArchlibPath() string
}, tempDir, devBuildDir, pchPrefix string) (Paths, error) {
	headerDir := rt.ArchlibPath()
	if devBuildDir != "" {
		headerDir = devBuildDir
	}
	header := filepath.Join(headerDir, "mjit_min_header.h")
	f, err := os.Open(header)
	if err != nil {
		return Paths{}, fmt.Errorf("mjit: header probe failed: %w", err)
	}
	_ = f.Close()

	sid, err := shortid.Generate()
	if err != nil {
		return Paths{}, fmt.Errorf("mjit: failed to generate pch suffix: %w", err)
	}
	if pchPrefix == "" {
		pchPrefix = "mjit"
	}
	pch := filepath.Join(tempDir, fmt.Sprintf("%s-%s.h.gch", pchPrefix, sid))
	return Paths{TempDir: tempDir, HeaderPath: header, PCHPath: pch}, nil
}

// SweepStalePCH opportunistically removes leftover *.h.gch files from a
// prior, uncleanly-terminated process. Only called when the caller did not
// request SaveTemps for this run. Errors are logged, never fatal -- this is
// best-effort hygiene, not an explicit tempfile-cleanup responsibility.
func SweepStalePCH(tempDir, pchPrefix string) {
	if pchPrefix == "" {
		pchPrefix = "mjit"
	}
	err := godirwalk.Walk(tempDir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if path != tempDir {
					return filepath.SkipDir
				}
				return nil
			}
			name := filepath.Base(path)
			if strings.HasPrefix(name, pchPrefix+"-") && strings.HasSuffix(name, ".h.gch") {
				if rmErr := os.Remove(path); rmErr == nil {
					nlog.Infoln("mjit: removed stale pch file", path)
				}
			}
			return nil
		},
	})
	if err != nil {
		nlog.Warningln("mjit: stale-pch sweep failed:", err)
	}
}
