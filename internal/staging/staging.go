package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cogstream/internal/textutil"
)

const hashChars = 8

// DirName returns the staging sub-directory name for item: the sanitized
// base name followed by the first 8 hex characters of the identifier's SHA-256.
func DirName(item string) string {
	sum := sha256.Sum256([]byte(item))
	suffix := hex.EncodeToString(sum[:])[:hashChars]
	base := strings.Trim(textutil.SanitizeFileName(path.Base(filepath.ToSlash(item))), "-. ")
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// ItemDir returns the staging sub-directory for item under root.
func ItemDir(root, item string) string {
	return filepath.Join(root, DirName(item))
}

// Prepare purges root and recreates it empty.
func Prepare(root string) error {
	if strings.TrimSpace(root) == "" {
		return errors.New("staging root is required")
	}
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("purge staging root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create staging root: %w", err)
	}
	return nil
}

// Unit is one independently published artifact set.
type Unit struct {
	Name string
	Path string
}

// ErrMixedLayout reports a staging sub-directory holding both unit
// directories and loose files.
var ErrMixedLayout = errors.New("staging directory mixes unit directories and loose files")

// Units lists the artifact units in an item's staging sub-directory. Each
// immediate sub-directory is a unit; when the directory holds only files it
// is itself a single unit named after the item's base name without extension.
// An empty directory yields no units. Loose files next to unit directories
// belong to no unit, so that layout is rejected with ErrMixedLayout.
func Units(itemDir, item string) ([]Unit, error) {
	entries, err := os.ReadDir(itemDir)
	if err != nil {
		return nil, fmt.Errorf("read staging directory: %w", err)
	}
	var units []Unit
	var loose []string
	for _, entry := range entries {
		if entry.IsDir() {
			units = append(units, Unit{Name: entry.Name(), Path: filepath.Join(itemDir, entry.Name())})
			continue
		}
		loose = append(loose, entry.Name())
	}
	if len(units) > 0 && len(loose) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMixedLayout, strings.Join(loose, ", "))
	}
	if len(units) == 0 && len(loose) > 0 {
		base := path.Base(filepath.ToSlash(item))
		name := strings.TrimSuffix(base, path.Ext(base))
		units = append(units, Unit{Name: name, Path: itemDir})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}
