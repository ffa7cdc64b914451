package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cogstream/internal/catalog"
	"cogstream/internal/config"
	"cogstream/internal/logging"
	"cogstream/internal/notifications"
	"cogstream/internal/pipeline"
	"cogstream/internal/product"
	"cogstream/internal/services"
	"cogstream/internal/services/converter"
	"cogstream/internal/services/uploader"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		flags       jobFlags
		bucket      string
		source      string
		restart     bool
		reuse       bool
		keepStaging bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transform and publish the pending items of a product signature",
		Long: `Enumerate the source files of a product, skip those already recorded in the
checkpoint log, and stream the rest through the converter into the bucket.

Items are checkpointed only after every unit of their output is published, so
an interrupted or partially failed run is resumed by running it again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reg, err := ctx.products()
			if err != nil {
				return err
			}
			sig, prod, err := flags.resolve(reg)
			if err != nil {
				return err
			}
			rng, err := flags.itemRange(cmd)
			if err != nil {
				return err
			}

			upCfg := cfg.Uploader
			upCfg.Bucket = pick(bucket, upCfg.Bucket)
			if upCfg.Bucket == "" {
				return errors.New("no destination bucket: set uploader.bucket, COGSTREAM_BUCKET, or --bucket")
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			runCtx := services.WithRunID(signalCtx, uuid.NewString())

			conv, err := converter.NewFromConfig(cfg.Converter, logger)
			if err != nil {
				return err
			}
			up, err := uploader.New(upCfg, logger)
			if err != nil {
				return err
			}

			opts := pipelineOptions(cfg, flags, sig, prod, logger)
			opts.Bucket = upCfg.Bucket
			opts.SourceOverride = strings.TrimSpace(source)
			opts.Restart = restart
			opts.ReuseFullList = reuse
			opts.KeepStaging = keepStaging
			opts.Limit = limit
			opts.Range = rng
			opts.Converter = conv
			opts.Uploader = up

			store, err := openCatalogFor(cfg, prod, opts.SourceOverride)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				opts.Catalog = store
			}

			notifier := notifications.New(cfg.Notifications)
			result, err := pipeline.Run(runCtx, opts)
			if err != nil {
				notify(logger, notifier.RunFailed(cmd.Context(), sig.Key(), err))
				return err
			}
			printRunResult(cmd.OutOrStdout(), result)
			notify(logger, notifier.RunCompleted(cmd.Context(), notifications.Summary{
				Signature: result.Signature,
				Pending:   result.Pending,
				Published: result.Published,
				Failed:    result.Failed,
				Cancelled: result.Cancelled,
				Elapsed:   result.Elapsed,
			}))
			if result.Cancelled {
				return context.Canceled
			}
			return nil
		},
	}

	flags.bind(cmd, true)
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Destination root, e.g. s3://bucket or /mnt/archive (overrides uploader.bucket)")
	cmd.Flags().StringVarP(&source, "src", "s", "", "Source root overriding the product definition (requires --restart)")
	cmd.Flags().BoolVar(&restart, "restart", false, "Clear the checkpoint log and cached item list first")
	cmd.Flags().BoolVar(&reuse, "reuse-full-list", false, "Reuse the cached full item list instead of enumerating")
	cmd.Flags().BoolVar(&keepStaging, "keep-staging", false, "Leave the staging directory in place after the run")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Process at most this many pending items")
	return cmd
}

// pipelineOptions fills the options shared by run and pending from config
// and the job flags.
func pipelineOptions(cfg *config.Config, flags jobFlags, sig product.Signature, prod product.Product, logger *slog.Logger) pipeline.Options {
	return pipeline.Options{
		Signature:        sig,
		Product:          prod,
		JobDir:           pick(flags.jobDir, cfg.Paths.JobDir),
		QueueDir:         pick(flags.queueDir, cfg.Paths.QueueDir),
		QueueLimit:       cfg.Pipeline.QueueLimit,
		TransformWorkers: cfg.Pipeline.TransformWorkers,
		PublishWorkers:   cfg.Pipeline.PublishWorkers,
		EnumerateWorkers: cfg.Pipeline.EnumerateWorkers,
		PollInterval:     time.Duration(cfg.Pipeline.PollIntervalMillis) * time.Millisecond,
		Logger:           logger,
	}
}

// openCatalogFor opens the catalog only when the product enumerates from it.
func openCatalogFor(cfg *config.Config, prod product.Product, source string) (*catalog.Store, error) {
	if prod.Enumeration != product.SourceCatalog || source != "" {
		return nil, nil
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return store, nil
}

func notify(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(logger, "run notification failed", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
	)
}

func printRunResult(out io.Writer, r pipeline.Result) {
	fmt.Fprintf(out, "Signature:    %s\n", r.Signature)
	fmt.Fprintf(out, "Items:        %d total, %d checkpointed, %d pending\n", r.Total, r.Checkpointed, r.Pending)
	fmt.Fprintf(out, "Transformed:  %d\n", r.Transformed)
	fmt.Fprintf(out, "Published:    %d\n", r.Published)
	fmt.Fprintf(out, "Failed:       %d\n", r.Failed)
	fmt.Fprintf(out, "Queue peak:   %d\n", r.QueueHighWater)
	fmt.Fprintf(out, "Elapsed:      %s\n", r.Elapsed.Round(time.Millisecond))
	if r.Cancelled {
		fmt.Fprintln(out, "Run cancelled before completion; rerun to resume")
	} else if r.Failed > 0 {
		fmt.Fprintln(out, "Some items failed; rerun to retry them")
	}
}
