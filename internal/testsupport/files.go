package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes size bytes of filler to path, creating parent
// directories. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'B'}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SourceTree creates a one-byte file for each relative path under root and
// returns their absolute paths in the order given.
func SourceTree(t testing.TB, root string, rel ...string) []string {
	t.Helper()

	paths := make([]string, 0, len(rel))
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		WriteFile(t, p, 1)
		paths = append(paths, p)
	}
	return paths
}
