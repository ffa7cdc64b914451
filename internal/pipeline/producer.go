package pipeline

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cogstream/internal/handoff"
	"cogstream/internal/logging"
	"cogstream/internal/services"
	"cogstream/internal/services/converter"
	"cogstream/internal/staging"
)

// Round is one producer iteration: the free queue capacity it observed and
// how many items it dispatched.
type Round struct {
	Capacity   int
	Dispatched int
}

// Stats records producer activity.
type Stats struct {
	mu          sync.Mutex
	rounds      []Round
	transformed int
	failed      int
}

// Rounds returns every iteration, including those that found no capacity.
func (s *Stats) Rounds() []Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Round(nil), s.rounds...)
}

// Dispatches returns the sizes of the non-empty dispatch rounds.
func (s *Stats) Dispatches() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, r := range s.rounds {
		if r.Dispatched > 0 {
			out = append(out, r.Dispatched)
		}
	}
	return out
}

// Transformed returns the number of items enqueued for publish.
func (s *Stats) Transformed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transformed
}

// Failed returns the number of items whose transform failed.
func (s *Stats) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *Stats) round(capacity, n int) {
	s.mu.Lock()
	s.rounds = append(s.rounds, Round{Capacity: capacity, Dispatched: n})
	s.mu.Unlock()
}

func (s *Stats) outcome(ok bool) {
	s.mu.Lock()
	if ok {
		s.transformed++
	} else {
		s.failed++
	}
	s.mu.Unlock()
}

// Producer transforms pending items and hands them to the consumer.
type Producer struct {
	Queue        *handoff.Queue
	Converter    converter.Converter
	StagingRoot  string
	Workers      int
	PollInterval time.Duration
	Logger       *slog.Logger
	Stats        Stats
}

// Run processes pending until it is exhausted or ctx ends, then enqueues the
// Done sentinel.
func (p *Producer) Run(ctx context.Context, pending []string) {
	logger := logging.NewComponentLogger(p.Logger, "producer")
	workers := max(p.Workers, 1)
	poll := p.PollInterval
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}

	remaining := pending
	for len(remaining) > 0 {
		if ctx.Err() != nil {
			logging.WarnWithContext(logger, "producer stopping before pending work is exhausted", "producer_cancelled",
				logging.Int("undispatched", len(remaining)),
				logging.String(logging.FieldErrorHint, "run was interrupted"),
				logging.String(logging.FieldImpact, "remaining items stay pending for the next run"),
			)
			break
		}
		capacity := p.Queue.Available()
		n := min(capacity, len(remaining))
		p.Stats.round(capacity, n)
		if n == 0 {
			p.awaitSpace(ctx, poll)
			continue
		}
		batch := remaining[:n]
		remaining = remaining[n:]
		logger.Debug("dispatching transform batch",
			logging.Int("batch", n),
			logging.Int("remaining", len(remaining)),
			logging.Int("queued", p.Queue.Len()),
		)

		var g errgroup.Group
		g.SetLimit(workers)
		for _, item := range batch {
			g.Go(func() error {
				p.transform(ctx, logger, item)
				return nil
			})
		}
		_ = g.Wait()
	}

	p.finish(ctx, logger)
}

func (p *Producer) awaitSpace(ctx context.Context, poll time.Duration) {
	timer := time.NewTimer(poll)
	defer timer.Stop()
	select {
	case <-p.Queue.Space():
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (p *Producer) transform(ctx context.Context, logger *slog.Logger, item string) {
	ctx = services.WithItem(services.WithStage(ctx, "transform"), item)
	log := logging.WithContext(ctx, logger)
	dir := staging.ItemDir(p.StagingRoot, item)
	start := time.Now()
	artifacts, err := p.Converter.Transform(ctx, item, dir)
	if err != nil {
		p.Stats.outcome(false)
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.WarnWithContext(log, "failed to remove staging directory of failed transform", "staging_cleanup_failed",
				logging.Error(rmErr),
				logging.String("staging", dir),
				logging.String(logging.FieldErrorHint, "check queue_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed until the run ends"),
			)
		}
		logging.ErrorWithContext(log, "transform failed", "transform_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "inspect converter output; the item is retried on the next run"),
		)
		return
	}
	if err := p.Queue.Put(ctx, handoff.Item(item)); err != nil {
		p.Stats.outcome(false)
		logging.WarnWithContext(log, "transformed item not handed off", "handoff_cancelled",
			logging.Error(err),
			logging.String(logging.FieldImpact, "staging residue left; item stays pending"),
		)
		return
	}
	p.Stats.outcome(true)
	log.Info("transform complete",
		logging.Int("artifacts", len(artifacts)),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "transform_complete"),
	)
}

func (p *Producer) finish(ctx context.Context, logger *slog.Logger) {
	if ctx.Err() == nil {
		if err := p.Queue.Put(ctx, handoff.Done()); err == nil {
			logger.Debug("end of stream enqueued")
			return
		}
	}
	if !p.Queue.TryPut(handoff.Done()) {
		logging.WarnWithContext(logger, "end of stream not enqueued; queue full after cancellation", "sentinel_dropped",
			logging.String(logging.FieldImpact, "consumer stops on cancellation instead"),
		)
	}
}
