package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cogstream/internal/services/validator"
	"cogstream/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var (
		rmBroken bool
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "verify [path]",
		Short: "Validate converted artifacts under a directory or from a list file",
		Long: `Run the configured validator over every artifact matching validator.pattern
under path, or over each path listed in a file. An artifact is broken when the
validator rejects it or when no file matching validator.metadata_pattern sits
beside it. Path defaults to the staging queue directory.

With --rm-broken, the directories holding broken artifacts are deleted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			root := cfg.Paths.QueueDir
			if len(args) == 1 {
				root = pick(args[0], root)
			}
			v, err := validator.NewFromConfig(cfg.Validator, logger)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			report, err := verify.Run(signalCtx, verify.Options{
				Root:            root,
				Pattern:         cfg.Validator.Pattern,
				MetadataPattern: cfg.Validator.MetadataPattern,
				Validator:       v,
				Workers:         workers,
				RemoveBroken:    rmBroken,
				Logger:          logger,
			})

			out := cmd.OutOrStdout()
			if len(report.Broken) > 0 {
				rows := make([][]string, 0, len(report.Broken))
				for _, b := range report.Broken {
					rows = append(rows, []string{b.Path, b.Reason})
				}
				fmt.Fprintln(out, renderTable([]column{{Title: "Artifact"}, {Title: "Problem"}}, rows))
			}
			for _, path := range report.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			fmt.Fprintf(out, "Checked %d artifacts, %d broken\n", report.Checked, len(report.Broken))
			if err != nil {
				return err
			}
			if len(report.Broken) > 0 && !rmBroken {
				return fmt.Errorf("%d broken artifacts (rerun with --rm-broken to delete them)", len(report.Broken))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rmBroken, "rm-broken", false, "Delete directories that contain broken artifacts")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of artifacts validated in parallel")
	return cmd
}
