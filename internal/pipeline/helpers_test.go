package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cogstream/internal/config"
	"cogstream/internal/logging"
	"cogstream/internal/pipeline"
	"cogstream/internal/product"
	"cogstream/internal/staging"
	"cogstream/internal/testsupport"
	"cogstream/internal/textutil"
)

const testStamp = "20180506102018000000"

// stubConverter writes one artifact set per item, named so the
// time-partitioned layout can place it.
type stubConverter struct {
	mu    sync.Mutex
	fail  map[string]bool
	delay time.Duration
	calls []string
}

func (s *stubConverter) Transform(ctx context.Context, item, dir string) ([]string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, item)
	fail := s.fail[item]
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("corrupt input")
	}
	unit := filepath.Join(dir, "LS_"+textutil.SanitizeToken(strings.TrimSuffix(filepath.Base(item), ".nc"))+"_2_"+testStamp)
	if err := os.MkdirAll(unit, 0o755); err != nil {
		return nil, err
	}
	artifact := filepath.Join(unit, "band.tif")
	if err := os.WriteFile(artifact, []byte(item), 0o644); err != nil {
		return nil, err
	}
	return []string{artifact}, nil
}

func (s *stubConverter) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type upload struct {
	src  string
	dest string
}

type stubUploader struct {
	mu      sync.Mutex
	fail    map[string]bool
	delay   time.Duration
	uploads []upload
}

func (s *stubUploader) Publish(ctx context.Context, src, dest string) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for item := range s.fail {
		if strings.Contains(src, staging.DirName(item)) {
			return errors.New("access denied")
		}
	}
	s.uploads = append(s.uploads, upload{src: src, dest: dest})
	return nil
}

func (s *stubUploader) Uploads() []upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]upload(nil), s.uploads...)
}

type staticEnumerator struct {
	mu    sync.Mutex
	items []string
	calls int
}

func (e *staticEnumerator) Enumerate(context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return append([]string(nil), e.items...), nil
}

func (e *staticEnumerator) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func itemNames(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = filepath.Join("/src", "tile", "item"+string(rune('a'+i))+".nc")
	}
	return items
}

type fixture struct {
	cfg  *config.Config
	opts pipeline.Options
	conv *stubConverter
	up   *stubUploader
	en   *staticEnumerator
}

func newFixture(t *testing.T, items []string) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	f := &fixture{
		cfg:  cfg,
		conv: &stubConverter{fail: map[string]bool{}},
		up:   &stubUploader{fail: map[string]bool{}},
		en:   &staticEnumerator{items: items},
	}
	f.opts = pipeline.Options{
		Signature: product.Signature{Product: "wofs-wofls", Year: 2018},
		Product: product.Product{
			Name:   "wofs-wofls",
			Prefix: "WOfS/WOFLs/v2.1.0/combined",
			Layout: product.TimePartitioned{},
		},
		JobDir:           cfg.Paths.JobDir,
		QueueDir:         cfg.Paths.QueueDir,
		Bucket:           "s3://test-bucket",
		QueueLimit:       4,
		TransformWorkers: 3,
		PublishWorkers:   3,
		PollInterval:     time.Millisecond,
		Enumerator:       f.en,
		Converter:        f.conv,
		Uploader:         f.up,
		Logger:           logging.NewNop(),
	}
	return f
}

func (f *fixture) run(t *testing.T) pipeline.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := pipeline.Run(ctx, f.opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func (f *fixture) checkpoint(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.cfg.Paths.JobDir, "streamer_job_control_"+f.opts.Signature.Key()+".log"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		t.Fatal(err)
	}
	return strings.Fields(string(data))
}

func stagingDir(item string) string { return staging.DirName(item) }
