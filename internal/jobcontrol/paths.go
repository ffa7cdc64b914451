package jobcontrol

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cogstream/internal/product"
)

const (
	checkpointPrefix = "streamer_job_control_"
	itemListPrefix   = "items_all_"
	fileSuffix       = ".log"
	lockSuffix       = ".lock"
)

// Paths are the signature-scoped file locations for one job.
type Paths struct {
	Signature  product.Signature
	Checkpoint string
	ItemList   string
	Lock       string
	Staging    string
}

// Resolve derives the job paths for sig. The result depends only on its inputs.
func Resolve(jobDir, queueDir string, sig product.Signature) (Paths, error) {
	if err := sig.Validate(); err != nil {
		return Paths{}, err
	}
	jobDir = strings.TrimSpace(jobDir)
	queueDir = strings.TrimSpace(queueDir)
	if jobDir == "" {
		return Paths{}, errors.New("job directory is required")
	}
	if queueDir == "" {
		return Paths{}, errors.New("queue directory is required")
	}
	key := sig.Key()
	return Paths{
		Signature:  sig,
		Checkpoint: filepath.Join(jobDir, checkpointPrefix+key+fileSuffix),
		ItemList:   filepath.Join(jobDir, itemListPrefix+key+fileSuffix),
		Lock:       filepath.Join(jobDir, key+lockSuffix),
		Staging:    filepath.Join(queueDir, key),
	}, nil
}

// Log returns the checkpoint log for these paths.
func (p Paths) Log() *Log { return NewLog(p.Checkpoint) }

// Items returns the full item list cache for these paths.
func (p Paths) Items() ItemList { return ItemList{Path: p.ItemList} }

// Restart removes the checkpoint log and the item list cache.
func (p Paths) Restart() error {
	for _, path := range []string{p.Checkpoint, p.ItemList} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

// KeysIn lists the signature keys that have a checkpoint log or item list in
// jobDir, sorted.
func KeysIn(jobDir string) ([]string, error) {
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]struct{})
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		var key string
		switch {
		case strings.HasPrefix(name, checkpointPrefix):
			key = strings.TrimSuffix(strings.TrimPrefix(name, checkpointPrefix), fileSuffix)
		case strings.HasPrefix(name, itemListPrefix):
			key = strings.TrimSuffix(strings.TrimPrefix(name, itemListPrefix), fileSuffix)
		default:
			continue
		}
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
