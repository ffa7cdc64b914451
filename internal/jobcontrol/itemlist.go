package jobcontrol

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ItemList is the cached full item list for a signature.
type ItemList struct {
	Path string
}

// Load returns the cached list. ok is false when no cache exists.
func (c ItemList) Load() (items []string, ok bool, err error) {
	if _, err := os.Stat(c.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat item list: %w", err)
	}
	items, err = readLines(c.Path)
	if err != nil {
		return nil, false, fmt.Errorf("read item list: %w", err)
	}
	return items, true, nil
}

// Save replaces the cache with items. The new content becomes visible
// atomically via rename.
func (c ItemList) Save(items []string) error {
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.Path), filepath.Base(c.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create item list: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	w := bufio.NewWriter(tmp)
	for _, item := range items {
		if _, err := w.WriteString(item + "\n"); err != nil {
			cleanup()
			return fmt.Errorf("write item list: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("flush item list: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync item list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close item list: %w", err)
	}
	if err := os.Rename(tmpPath, c.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("publish item list: %w", err)
	}
	return nil
}
