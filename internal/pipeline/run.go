package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"cogstream/internal/enumerate"
	"cogstream/internal/handoff"
	"cogstream/internal/jobcontrol"
	"cogstream/internal/logging"
	"cogstream/internal/product"
	"cogstream/internal/services"
	"cogstream/internal/services/converter"
	"cogstream/internal/services/uploader"
	"cogstream/internal/staging"
)

// ErrPrecondition marks failures that abort a run before either stage starts.
var ErrPrecondition = errors.New("precondition failed")

func precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrPrecondition, fmt.Errorf(format, args...))
}

// Options configures one run.
type Options struct {
	Signature product.Signature
	Product   product.Product

	JobDir   string
	QueueDir string
	Bucket   string

	// SourceOverride replaces the product's source root; it requires Restart.
	SourceOverride string
	Restart        bool
	ReuseFullList  bool
	KeepStaging    bool
	Limit          int
	Range          *Range

	QueueLimit       int
	TransformWorkers int
	PublishWorkers   int
	EnumerateWorkers int
	PollInterval     time.Duration

	// Enumerator overrides the enumerator derived from Product.
	Enumerator enumerate.Enumerator
	Catalog    enumerate.Querier
	Converter  converter.Converter
	Uploader   uploader.Uploader
	Logger     *slog.Logger
}

// Result summarizes a run. Per-item failures are counted here and never
// surface as an error.
type Result struct {
	Signature      string
	Total          int
	Checkpointed   int
	Pending        int
	Transformed    int
	Published      int
	Failed         int
	Dispatches     []int
	QueueHighWater int
	Cancelled      bool
	Elapsed        time.Duration
}

// Plan is the resolved work for a signature.
type Plan struct {
	Paths   jobcontrol.Paths
	Full    []string
	Done    map[string]struct{}
	Pending []string
}

func (o Options) validate() error {
	if err := o.Signature.Validate(); err != nil {
		return precondition("%w", err)
	}
	if o.Product.Name != "" && o.Product.Name != o.Signature.Product {
		return precondition("product %q does not match signature %q", o.Product.Name, o.Signature.Product)
	}
	if strings.TrimSpace(o.SourceOverride) != "" && !o.Restart {
		return precondition("a source override must be used with restart")
	}
	if o.Range != nil {
		if err := o.Range.Validate(); err != nil {
			return precondition("%w", err)
		}
	}
	if o.Limit < 0 {
		return precondition("limit must not be negative")
	}
	return nil
}

func (o Options) enumerator() (enumerate.Enumerator, error) {
	if o.Enumerator != nil {
		return o.Enumerator, nil
	}
	if o.Product.Enumeration == product.SourceCatalog && strings.TrimSpace(o.SourceOverride) == "" {
		if o.Catalog == nil {
			return nil, precondition("product %s enumerates from the catalog but no catalog is open", o.Product.Name)
		}
		return enumerate.Catalog{Store: o.Catalog, Signature: o.Signature}, nil
	}
	root := o.Product.Source
	if src := strings.TrimSpace(o.SourceOverride); src != "" {
		root = src
	}
	if strings.TrimSpace(root) == "" {
		return nil, precondition("product %s has no source root", o.Product.Name)
	}
	return enumerate.Filesystem{
		Root:    root,
		Layout:  o.Product.Layout,
		Pattern: o.Product.Pattern,
		Workers: o.EnumerateWorkers,
		Filter:  o.Signature.MatchesFile,
		Logger:  o.Logger,
	}, nil
}

// Prepare resolves job paths, honors restart, loads or enumerates the full
// item list, and computes the pending set. It does not touch staging.
func Prepare(ctx context.Context, opts Options) (*Plan, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := logging.NewComponentLogger(opts.Logger, "orchestrator")

	paths, err := jobcontrol.Resolve(opts.JobDir, opts.QueueDir, opts.Signature)
	if err != nil {
		return nil, precondition("%w", err)
	}
	if err := os.MkdirAll(opts.JobDir, 0o755); err != nil {
		return nil, precondition("create job directory: %w", err)
	}
	if opts.Restart {
		if err := paths.Restart(); err != nil {
			return nil, precondition("restart: %w", err)
		}
		logger.Info("cleared checkpoint log and item list", logging.String(logging.FieldSignature, opts.Signature.Key()))
	}

	done, err := paths.Log().Load()
	if err != nil {
		return nil, precondition("%w", err)
	}

	full, err := loadFullList(ctx, opts, paths, logger)
	if err != nil {
		return nil, err
	}

	pending, err := PendingSet(full, done, opts.Limit, opts.Range)
	if err != nil {
		return nil, precondition("%w", err)
	}
	return &Plan{Paths: paths, Full: full, Done: done, Pending: pending}, nil
}

func loadFullList(ctx context.Context, opts Options, paths jobcontrol.Paths, logger *slog.Logger) ([]string, error) {
	cache := paths.Items()
	if opts.ReuseFullList {
		items, ok, err := cache.Load()
		if err != nil {
			return nil, precondition("%w", err)
		}
		if ok {
			logger.Info("reusing cached item list",
				logging.String("path", cache.Path),
				logging.Int("items", len(items)),
			)
			return items, nil
		}
	}

	en, err := opts.enumerator()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	items, err := en.Enumerate(ctx)
	if err != nil {
		return nil, precondition("enumerate items: %w", err)
	}
	logger.Info("enumerated items",
		logging.Int("items", len(items)),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "enumerate_complete"),
	)
	if opts.ReuseFullList {
		if err := cache.Save(items); err != nil {
			return nil, precondition("%w", err)
		}
	}
	return items, nil
}

// Run executes one batch for opts.Signature. It returns an error only for
// fatal preconditions; per-item failures are reported in Result.
func Run(ctx context.Context, opts Options) (Result, error) {
	started := time.Now()
	result := Result{Signature: opts.Signature.Key()}
	if err := opts.validate(); err != nil {
		return result, err
	}
	if opts.Converter == nil || opts.Uploader == nil {
		return result, precondition("converter and uploader are required")
	}
	if err := os.MkdirAll(opts.JobDir, 0o755); err != nil {
		return result, precondition("create job directory: %w", err)
	}

	ctx = services.WithSignature(ctx, opts.Signature.Key())
	logger := logging.WithContext(ctx, opts.Logger)
	orch := logging.NewComponentLogger(logger, "orchestrator")

	paths, err := jobcontrol.Resolve(opts.JobDir, opts.QueueDir, opts.Signature)
	if err != nil {
		return result, precondition("%w", err)
	}
	lock, err := jobcontrol.AcquireLock(paths.Lock)
	if err != nil {
		return result, precondition("%w", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			orch.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	opts.Logger = logger
	plan, err := Prepare(ctx, opts)
	if err != nil {
		return result, err
	}
	result.Total = len(plan.Full)
	result.Checkpointed = len(plan.Done)
	result.Pending = len(plan.Pending)

	if err := staging.Prepare(paths.Staging); err != nil {
		return result, precondition("%w", err)
	}
	if !opts.KeepStaging {
		defer func() {
			if err := os.RemoveAll(paths.Staging); err != nil {
				orch.Warn("failed to remove staging root",
					logging.String("path", paths.Staging),
					logging.Error(err),
				)
			}
		}()
	}

	queueLimit := opts.QueueLimit
	if queueLimit <= 0 {
		queueLimit = 16
	}
	queue, err := handoff.New(queueLimit)
	if err != nil {
		return result, precondition("%w", err)
	}

	dest := uploader.Join(opts.Bucket, opts.Product.Prefix)
	orch.Info("run starting",
		logging.Int("total", result.Total),
		logging.Int("checkpointed", result.Checkpointed),
		logging.Int("pending", result.Pending),
		logging.Int("queue_limit", queueLimit),
		logging.String("destination", dest),
		logging.String("staging", paths.Staging),
		logging.String(logging.FieldEventType, "run_start"),
	)

	producer := &Producer{
		Queue:        queue,
		Converter:    opts.Converter,
		StagingRoot:  paths.Staging,
		Workers:      opts.TransformWorkers,
		PollInterval: opts.PollInterval,
		Logger:       logger,
	}
	consumer := &Consumer{
		Queue:       queue,
		Uploader:    opts.Uploader,
		Checkpoint:  paths.Log(),
		StagingRoot: paths.Staging,
		Destination: dest,
		Layout:      opts.Product.Layout,
		Workers:     opts.PublishWorkers,
		Logger:      logger,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		producer.Run(ctx, plan.Pending)
	}()
	go func() {
		defer wg.Done()
		consumer.Run(ctx)
	}()
	wg.Wait()

	result.Transformed = producer.Stats.Transformed()
	result.Published = consumer.Published()
	result.Failed = producer.Stats.Failed() + consumer.Failed()
	result.Dispatches = producer.Stats.Dispatches()
	result.QueueHighWater = queue.HighWater()
	result.Cancelled = ctx.Err() != nil
	result.Elapsed = time.Since(started)

	orch.Info("run finished",
		logging.Int("pending", result.Pending),
		logging.Int("transformed", result.Transformed),
		logging.Int("published", result.Published),
		logging.Int("failed", result.Failed),
		logging.Int("queue_high_water", result.QueueHighWater),
		logging.Bool("cancelled", result.Cancelled),
		logging.Duration("elapsed", result.Elapsed),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	return result, nil
}
