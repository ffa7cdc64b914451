package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"cogstream/internal/jobcontrol"
	"cogstream/internal/pipeline"
	"cogstream/internal/product"
	"cogstream/internal/staging"
)

func TestRunPublishesEverythingThenNothing(t *testing.T) {
	items := itemNames(10)
	f := newFixture(t, items)

	res := f.run(t)
	if res.Pending != 10 || res.Published != 10 || res.Failed != 0 {
		t.Fatalf("first run = %+v", res)
	}
	logged := f.checkpoint(t)
	sort.Strings(logged)
	if len(logged) != 10 {
		t.Fatalf("checkpoint has %d entries, want 10", len(logged))
	}
	for i, item := range items {
		if logged[i] != item {
			t.Fatalf("checkpoint[%d] = %q, want %q", i, logged[i], item)
		}
	}
	if res.QueueHighWater > 4 {
		t.Fatalf("queue high water %d exceeds capacity 4", res.QueueHighWater)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Paths.QueueDir, f.opts.Signature.Key())); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("staging root not removed: %v", err)
	}
	for _, u := range f.up.Uploads() {
		if !strings.HasPrefix(u.dest, "s3://test-bucket/WOfS/WOFLs/v2.1.0/combined/x_") || !strings.HasSuffix(u.dest, "/y_2/2018/05/06") {
			t.Fatalf("unexpected destination %q", u.dest)
		}
	}

	second := f.run(t)
	if second.Pending != 0 || second.Published != 0 {
		t.Fatalf("second run = %+v, want nothing pending", second)
	}
	if got := len(f.checkpoint(t)); got != 10 {
		t.Fatalf("checkpoint grew to %d", got)
	}
}

func TestRunLimitThree(t *testing.T) {
	items := itemNames(10)
	f := newFixture(t, items)
	f.opts.Limit = 3

	res := f.run(t)
	if res.Pending != 3 || res.Published != 3 {
		t.Fatalf("result = %+v", res)
	}
	logged := f.checkpoint(t)
	sort.Strings(logged)
	if len(logged) != 3 {
		t.Fatalf("checkpoint = %v", logged)
	}
	for i := 0; i < 3; i++ {
		if logged[i] != items[i] {
			t.Fatalf("checkpoint = %v, want first three items", logged)
		}
	}
}

func TestRunTransformFailureIsRetriedNextRun(t *testing.T) {
	items := itemNames(5)
	f := newFixture(t, items)
	f.conv.fail[items[2]] = true

	res := f.run(t)
	if res.Published != 4 || res.Failed != 1 || res.Transformed != 4 {
		t.Fatalf("result = %+v", res)
	}
	if got := len(f.checkpoint(t)); got != 4 {
		t.Fatalf("checkpoint has %d entries, want 4", got)
	}

	f.conv.fail = map[string]bool{}
	before := len(f.conv.Calls())
	res = f.run(t)
	if res.Pending != 1 || res.Published != 1 {
		t.Fatalf("rerun = %+v", res)
	}
	calls := f.conv.Calls()[before:]
	if len(calls) != 1 || calls[0] != items[2] {
		t.Fatalf("rerun transformed %v, want only %q", calls, items[2])
	}
}

func TestRunPublishFailureKeepsResidueAndSkipsCheckpoint(t *testing.T) {
	items := itemNames(3)
	f := newFixture(t, items)
	f.opts.KeepStaging = true
	f.up.fail[items[1]] = true

	res := f.run(t)
	if res.Published != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
	for _, item := range f.checkpoint(t) {
		if item == items[1] {
			t.Fatal("failed item was checkpointed")
		}
	}
	root := filepath.Join(f.cfg.Paths.QueueDir, f.opts.Signature.Key())
	if _, err := os.Stat(staging.ItemDir(root, items[1])); err != nil {
		t.Fatalf("residue missing for failed item: %v", err)
	}
	if _, err := os.Stat(staging.ItemDir(root, items[0])); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("published item staging not removed: %v", err)
	}
}

func TestRunRestartClearsStateAndReenumerates(t *testing.T) {
	f := newFixture(t, itemNames(3))
	f.opts.ReuseFullList = true
	f.run(t)
	if f.en.Calls() != 1 {
		t.Fatalf("enumerator calls = %d", f.en.Calls())
	}

	f.en.items = itemNames(5)
	res := f.run(t)
	if f.en.Calls() != 1 {
		t.Fatal("cached item list was not reused")
	}
	if res.Total != 3 || res.Pending != 0 {
		t.Fatalf("reuse run = %+v", res)
	}

	f.opts.Restart = true
	res = f.run(t)
	if f.en.Calls() != 2 {
		t.Fatal("restart did not re-enumerate")
	}
	if res.Total != 5 || res.Checkpointed != 0 || res.Pending != 5 {
		t.Fatalf("restart run = %+v", res)
	}
}

func TestRunRangeIgnoresCheckpoint(t *testing.T) {
	items := itemNames(6)
	f := newFixture(t, items)
	f.run(t)

	f.opts.Range = &pipeline.Range{Start: 1, End: 2}
	f.opts.Limit = 1
	res := f.run(t)
	if res.Pending != 2 || res.Published != 2 {
		t.Fatalf("range run = %+v", res)
	}
}

func TestRunPreconditions(t *testing.T) {
	t.Run("source override requires restart", func(t *testing.T) {
		f := newFixture(t, nil)
		f.opts.SourceOverride = t.TempDir()
		if _, err := pipeline.Run(context.Background(), f.opts); !errors.Is(err, pipeline.ErrPrecondition) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("unreadable source root", func(t *testing.T) {
		f := newFixture(t, nil)
		f.opts.Enumerator = nil
		f.opts.Product.Source = filepath.Join(t.TempDir(), "missing")
		if _, err := pipeline.Run(context.Background(), f.opts); !errors.Is(err, pipeline.ErrPrecondition) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("uncreatable job directory", func(t *testing.T) {
		f := newFixture(t, nil)
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		f.opts.JobDir = filepath.Join(blocker, "jobs")
		if _, err := pipeline.Run(context.Background(), f.opts); !errors.Is(err, pipeline.ErrPrecondition) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("overlapping run", func(t *testing.T) {
		f := newFixture(t, itemNames(1))
		paths, err := jobcontrol.Resolve(f.opts.JobDir, f.opts.QueueDir, f.opts.Signature)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(f.opts.JobDir, 0o755); err != nil {
			t.Fatal(err)
		}
		lock, err := jobcontrol.AcquireLock(paths.Lock)
		if err != nil {
			t.Fatal(err)
		}
		defer lock.Release()
		if _, err := pipeline.Run(context.Background(), f.opts); !errors.Is(err, pipeline.ErrPrecondition) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("mismatched product", func(t *testing.T) {
		f := newFixture(t, nil)
		f.opts.Product.Name = "fc-ls5"
		if _, err := pipeline.Run(context.Background(), f.opts); !errors.Is(err, pipeline.ErrPrecondition) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestRunFilesystemEnumeration(t *testing.T) {
	src := t.TempDir()
	for _, rel := range []string{
		"9_-39/LS_WATER_3577_9_-39_20180506102018000000_v1.nc",
		"9_-39/LS_WATER_3577_9_-39_20170506102018000000_v1.nc",
	} {
		path := filepath.Join(src, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("nc"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	f := newFixture(t, nil)
	f.opts.Enumerator = nil
	f.opts.Product.Source = src
	f.opts.Product.Pattern = "*.nc"

	res := f.run(t)
	if res.Total != 1 || res.Published != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunCancellationStopsDispatch(t *testing.T) {
	f := newFixture(t, itemNames(12))
	f.conv.delay = 50 * time.Millisecond
	f.opts.TransformWorkers = 1
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	res, err := pipeline.Run(ctx, f.opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Cancelled {
		t.Fatal("expected cancelled result")
	}
	if res.Published >= 12 {
		t.Fatalf("published %d items despite cancellation", res.Published)
	}
	if got := len(f.checkpoint(t)); got != res.Published {
		t.Fatalf("checkpoint has %d entries, published %d", got, res.Published)
	}
}

func TestPrepareReportsPendingWithoutStaging(t *testing.T) {
	f := newFixture(t, itemNames(4))
	f.opts.Product = product.Product{Name: "wofs-wofls", Layout: product.TimePartitioned{}}
	plan, err := pipeline.Prepare(context.Background(), f.opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Pending) != 4 || len(plan.Done) != 0 {
		t.Fatalf("plan = %+v", plan)
	}
	if _, err := os.Stat(plan.Paths.Staging); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("Prepare must not create staging")
	}
}
