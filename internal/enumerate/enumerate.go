// Package enumerate produces the ordered full item list for a signature,
// either by walking a source tree or by querying the catalog.
package enumerate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"cogstream/internal/catalog"
	"cogstream/internal/logging"
	"cogstream/internal/product"
)

// DefaultWorkers is the sub-tree walk pool size.
const DefaultWorkers = 8

// DefaultPattern matches source files when no pattern is configured.
const DefaultPattern = "*.nc"

// ErrSourceUnreadable reports that the enumeration root could not be listed.
var ErrSourceUnreadable = errors.New("source root unreadable")

// Enumerator returns the full ordered item list.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]string, error)
}

// Filesystem enumerates source files under Root. Time-partitioned products
// keep their files one level down in per-tile sub-directories, which are
// walked concurrently; flat products keep them directly under Root.
type Filesystem struct {
	Root    string
	Layout  product.Layout
	Pattern string
	Workers int
	Filter  func(path string) bool
	Logger  *slog.Logger
}

// Enumerate lists matching files. Results are ordered by sub-tree name and
// then file name regardless of worker scheduling.
func (f Filesystem) Enumerate(ctx context.Context) ([]string, error) {
	pattern := strings.TrimSpace(f.Pattern)
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid source pattern %q", pattern)
	}
	entries, err := os.ReadDir(f.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, f.Root, err)
	}

	switch f.Layout.(type) {
	case product.Flat:
		return f.match(entries, f.Root, pattern)
	case product.TimePartitioned, nil:
	default:
		return nil, fmt.Errorf("unsupported layout %T", f.Layout)
	}

	var subtrees []string
	for _, entry := range entries {
		if entry.IsDir() {
			subtrees = append(subtrees, filepath.Join(f.Root, entry.Name()))
		}
	}
	sort.Strings(subtrees)

	logger := logging.NewComponentLogger(f.Logger, "enumerate")
	workers := f.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	results := make([][]string, len(subtrees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, dir := range subtrees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			children, err := os.ReadDir(dir)
			if err != nil {
				logger.Warn("skipping unreadable source sub-tree",
					logging.String("path", dir),
					logging.Error(err),
					logging.String(logging.FieldEventType, "enumerate_subtree_failed"),
					logging.String(logging.FieldErrorHint, "check source permissions"),
					logging.String(logging.FieldImpact, "items under this sub-tree are not processed"),
				)
				return nil
			}
			matched, err := f.match(children, dir, pattern)
			if err != nil {
				return err
			}
			results[i] = matched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []string
	for _, r := range results {
		items = append(items, r...)
	}
	logger.Debug("enumerated source tree",
		logging.String("root", f.Root),
		logging.Int("subtrees", len(subtrees)),
		logging.Int("items", len(items)),
	)
	return items, nil
}

func (f Filesystem) match(entries []os.DirEntry, dir, pattern string) ([]string, error) {
	var out []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ok, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if f.Filter != nil && !f.Filter(path) {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// Querier is the catalog capability Catalog needs.
type Querier interface {
	Items(ctx context.Context, product string, r catalog.Range) ([]string, error)
}

// Catalog enumerates by querying the dataset catalog over the signature's
// time window. Results are returned as the catalog orders them.
type Catalog struct {
	Store     Querier
	Signature product.Signature
}

func (c Catalog) Enumerate(ctx context.Context) ([]string, error) {
	if c.Store == nil {
		return nil, errors.New("catalog enumerator has no store")
	}
	var r catalog.Range
	if from, to, ok := c.Signature.Window(); ok {
		r = catalog.Range{From: from, To: to}
	}
	items, err := c.Store.Items(ctx, c.Signature.Product, r)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	return items, nil
}
