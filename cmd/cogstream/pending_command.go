package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cogstream/internal/pipeline"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	var (
		flags jobFlags
		reuse bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List the items a run would process, without running it",
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
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			opts := pipelineOptions(cfg, flags, sig, prod, logger)
			opts.ReuseFullList = reuse
			opts.Limit = limit
			opts.Range = rng
			store, err := openCatalogFor(cfg, prod, "")
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				opts.Catalog = store
			}

			plan, err := pipeline.Prepare(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range plan.Pending {
				fmt.Fprintln(out, item)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d pending of %d items (%d checkpointed)\n",
				len(plan.Pending), len(plan.Full), len(plan.Done))
			return nil
		},
	}

	flags.bind(cmd, true)
	cmd.Flags().BoolVar(&reuse, "reuse-full-list", false, "Reuse (or create) the cached full item list")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Show at most this many pending items")
	return cmd
}
