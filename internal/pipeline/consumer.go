package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cogstream/internal/handoff"
	"cogstream/internal/jobcontrol"
	"cogstream/internal/logging"
	"cogstream/internal/product"
	"cogstream/internal/services"
	"cogstream/internal/services/uploader"
	"cogstream/internal/staging"
)

// Consumer publishes handed-off items and checkpoints them.
type Consumer struct {
	Queue       *handoff.Queue
	Uploader    uploader.Uploader
	Checkpoint  *jobcontrol.Log
	StagingRoot string
	Destination string
	Layout      product.Layout
	Workers     int
	Logger      *slog.Logger

	mu         sync.Mutex
	published  int
	failed     int
	sawDone    bool
	violations int
}

// Run drains the queue until the Done sentinel is processed or ctx ends.
func (c *Consumer) Run(ctx context.Context) {
	logger := logging.NewComponentLogger(c.Logger, "consumer")
	workers := max(c.Workers, 1)

	for {
		batch, err := c.Queue.Drain(ctx)
		if err != nil {
			logging.WarnWithContext(logger, "consumer stopping before end of stream", "consumer_cancelled",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run was interrupted"),
				logging.String(logging.FieldImpact, "queued items stay pending for the next run"),
			)
			return
		}
		logger.Debug("drained hand-off queue", logging.Int("entries", len(batch)))

		var g errgroup.Group
		g.SetLimit(workers)
		for i, entry := range batch {
			if entry.IsDone() {
				if trailing := len(batch) - i - 1; trailing > 0 {
					c.mu.Lock()
					c.violations += trailing
					c.mu.Unlock()
					logging.ErrorWithContext(logger, "entries found after end of stream", "protocol_violation",
						logging.Int("trailing", trailing),
						logging.String(logging.FieldErrorHint, "more than one producer is writing to the queue"),
					)
				}
				_ = g.Wait()
				c.mu.Lock()
				c.sawDone = true
				c.mu.Unlock()
				return
			}
			g.Go(func() error {
				c.publish(ctx, logger, entry.ID)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// Published returns the number of checkpointed items.
func (c *Consumer) Published() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

// Failed returns the number of items whose publish failed.
func (c *Consumer) Failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// SawDone reports whether the consumer terminated on the sentinel.
func (c *Consumer) SawDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sawDone
}

// Violations returns the number of entries seen after the sentinel.
func (c *Consumer) Violations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violations
}

var errNoArtifacts = errors.New("no artifacts staged")

func (c *Consumer) publish(ctx context.Context, logger *slog.Logger, item string) {
	ctx = services.WithItem(services.WithStage(ctx, "publish"), item)
	log := logging.WithContext(ctx, logger)
	dir := staging.ItemDir(c.StagingRoot, item)
	start := time.Now()

	report := func(msg string, err error) {
		logging.ErrorWithContext(log, msg, "publish_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String("staging", dir),
			logging.String(logging.FieldErrorHint, "staging residue kept for inspection; the item is retried on the next run"),
		)
	}
	fail := func(msg string, err error) {
		c.mu.Lock()
		c.failed++
		c.mu.Unlock()
		report(msg, err)
	}

	units, err := staging.Units(dir, item)
	if err != nil {
		fail("publish failed", err)
		return
	}
	if len(units) == 0 {
		fail("publish failed", errNoArtifacts)
		return
	}

	ok := true
	for _, unit := range units {
		remote, err := product.RemoteDir(c.Layout, unit.Name)
		if err != nil {
			ok = false
			report("artifact set has no remote location", err)
			continue
		}
		dest := uploader.Join(c.Destination, remote)
		if err := c.Uploader.Publish(ctx, unit.Path, dest); err != nil {
			ok = false
			report("artifact set upload failed", err)
			continue
		}
		log.Debug("artifact set published", logging.String("unit", unit.Name), logging.String("dest", dest))
	}
	if !ok {
		c.mu.Lock()
		c.failed++
		c.mu.Unlock()
		return
	}

	if err := c.Checkpoint.Append(item); err != nil {
		fail("checkpoint append failed", err)
		return
	}
	c.mu.Lock()
	c.published++
	c.mu.Unlock()
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(log, "failed to remove published staging directory", "staging_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed until the run ends"),
		)
	}
	log.Info("publish complete",
		logging.Int("units", len(units)),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "publish_complete"),
	)
}
