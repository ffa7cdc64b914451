// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cogstream/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.JobDir = filepath.Join(base, "jobs")
	cfgVal.Paths.QueueDir = filepath.Join(base, "queue")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "catalog.db")
	cfgVal.Uploader.Bucket = filepath.Join(base, "bucket")
	cfgVal.Pipeline.PollIntervalMillis = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithQueueLimit overrides the hand-off queue capacity.
func WithQueueLimit(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.QueueLimit = n
	}
}

// WithWorkers overrides the transform and publish pool sizes.
func WithWorkers(transform, publish int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.TransformWorkers = transform
		b.cfg.Pipeline.PublishWorkers = publish
	}
}

// WithStubbedBinaries puts no-op executables with the given names first on
// PATH for the duration of the test. Without names, the configured converter
// and uploader commands are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Converter.Command, b.cfg.Uploader.Command}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteExecutable(b.t, filepath.Join(binDir, name), "exit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WriteExecutable writes a /bin/sh script with the given body to path.
func WriteExecutable(t testing.TB, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write executable %s: %v", path, err)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.JobDir)
}
