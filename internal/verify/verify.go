package verify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"cogstream/internal/logging"
	"cogstream/internal/services"
	"cogstream/internal/services/validator"
)

const defaultWorkers = 4

// Options configures one verification pass.
type Options struct {
	// Root is a directory to search or a file listing artifact paths.
	Root            string
	Pattern         string
	MetadataPattern string
	Validator       validator.Validator
	Workers         int
	RemoveBroken    bool
	Logger          *slog.Logger
}

// Broken is an artifact that failed verification.
type Broken struct {
	Path   string
	Reason string
}

// Report summarizes a verification pass.
type Report struct {
	Checked int
	Broken  []Broken
	Removed []string
}

// Run checks every artifact selected by opts. Broken artifacts are reported,
// never returned as an error; the error covers unreadable inputs,
// cancellation and failed removals.
func Run(ctx context.Context, opts Options) (Report, error) {
	var report Report
	if opts.Validator == nil {
		return report, errors.New("verify: validator is required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "verify")

	files, err := collect(opts.Root, opts.Pattern)
	if err != nil {
		return report, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	meta := &metadataIndex{pattern: opts.MetadataPattern, seen: map[string]bool{}}
	reasons := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var problems []string
			if !meta.present(filepath.Dir(file)) {
				problems = append(problems, "no metadata file beside artifact")
			}
			if err := opts.Validator.Validate(gctx, file); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				problems = append(problems, err.Error())
			}
			reasons[i] = strings.Join(problems, "; ")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Checked = len(files)
	for i, file := range files {
		if reasons[i] == "" {
			continue
		}
		report.Broken = append(report.Broken, Broken{Path: file, Reason: reasons[i]})
		logging.ErrorWithContext(logger, "artifact failed verification", "artifact_invalid",
			logging.String("path", file),
			logging.String("reason", reasons[i]),
			logging.String(logging.FieldErrorKind, services.Kind(services.ErrValidation)),
			logging.String(logging.FieldErrorHint, "reconvert the source item or rerun verify with --rm-broken"),
		)
	}
	logger.Info("verification complete",
		logging.Int("checked", report.Checked),
		logging.Int("broken", len(report.Broken)),
		logging.String(logging.FieldEventType, "verify_complete"),
	)

	if !opts.RemoveBroken || len(report.Broken) == 0 {
		return report, nil
	}
	removed, err := removeBroken(opts.Root, report.Broken, logger)
	report.Removed = removed
	return report, err
}

// collect resolves root to the artifact paths to check, sorted.
func collect(root, pattern string) ([]string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("verify: path is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if !info.IsDir() {
		return readList(root)
	}
	if pattern == "" {
		pattern = "**/*.tif"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("verify: invalid pattern %q", pattern)
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("verify: search %s: %w", root, err)
	}
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	sort.Strings(files)
	return files, nil
}

func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("verify: open list: %w", err)
	}
	defer f.Close()
	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			files = append(files, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("verify: read list: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// metadataIndex memoizes, per directory, whether a metadata file exists
// anywhere beneath it.
type metadataIndex struct {
	pattern string
	mu      sync.Mutex
	seen    map[string]bool
}

func (m *metadataIndex) present(dir string) bool {
	if m.pattern == "" {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok, cached := m.seen[dir]; cached {
		return ok
	}
	matches, err := doublestar.Glob(os.DirFS(dir), "**/"+m.pattern, doublestar.WithFilesOnly())
	ok := err == nil && len(matches) > 0
	m.seen[dir] = ok
	return ok
}

// removeBroken deletes the directory holding each broken artifact. When an
// artifact sits directly in root, only the file itself is removed.
func removeBroken(root string, broken []Broken, logger *slog.Logger) ([]string, error) {
	root = filepath.Clean(root)
	targets := map[string]struct{}{}
	for _, b := range broken {
		dir := filepath.Dir(b.Path)
		if filepath.Clean(dir) == root {
			targets[b.Path] = struct{}{}
			continue
		}
		targets[dir] = struct{}{}
	}
	paths := make([]string, 0, len(targets))
	for p := range targets {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var removed []string
	var errs []error
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
			logging.WarnWithContext(logger, "failed to remove broken artifacts", "verify_cleanup_failed",
				logging.String("path", p),
				logging.Error(err),
				logging.String(logging.FieldImpact, "broken artifacts remain on disk"),
			)
			continue
		}
		removed = append(removed, p)
		logger.Info("removed broken artifacts",
			logging.String("path", p),
			logging.String(logging.FieldEventType, "verify_removed"),
		)
	}
	return removed, errors.Join(errs...)
}
