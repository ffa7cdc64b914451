package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cogstream/internal/jobcontrol"
	"cogstream/internal/logging"
	"cogstream/internal/product"
	"cogstream/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and purge staging directories left by earlier runs",
	}
	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))
	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List per-signature staging directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListDirectories(cfg.Paths.QueueDir)
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging directories found")
				return nil
			}

			fmt.Fprintf(out, "Staging directory: %s\n\n", cfg.Paths.QueueDir)
			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				totalSize += dir.Size
				rows = append(rows, []string{
					dir.Name,
					fmt.Sprintf("%d", dir.Items),
					formatAge(time.Since(dir.ModTime)),
					logging.FormatBytes(dir.Size),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Title: "Signature"},
				{Title: "Items", Numeric: true},
				{Title: "Age", Numeric: true},
				{Title: "Size", Numeric: true},
			}, rows))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), logging.FormatBytes(totalSize))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staging directories of signatures that are not running",
		Long: `Remove per-signature staging directories under the queue directory.

Directories belonging to a signature whose run lock is currently held are
left alone. With --older-than, only directories not modified within that
duration are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			running := func(name string) bool {
				return signatureRunning(cfg.Paths.JobDir, cfg.Paths.QueueDir, name)
			}
			result := staging.CleanStaleExcept(cmd.Context(), cfg.Paths.QueueDir, olderThan, running, logger)

			out := cmd.OutOrStdout()
			for _, path := range result.Kept {
				fmt.Fprintf(out, "Skipped %s (run in progress)\n", path)
			}
			for _, e := range result.Errors {
				fmt.Fprintf(out, "Error: %s: %v\n", e.Path, e.Error)
			}
			fmt.Fprintf(out, "Removed %d staging directories\n", len(result.Removed))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d staging directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove directories older than this (e.g. 24h)")
	return cmd
}

func signatureRunning(jobDir, queueDir, key string) bool {
	sig, err := product.ParseKey(key)
	if err != nil {
		return false
	}
	paths, err := jobcontrol.Resolve(jobDir, queueDir, sig)
	if err != nil {
		return false
	}
	lock, err := jobcontrol.AcquireLock(paths.Lock)
	if errors.Is(err, jobcontrol.ErrLocked) {
		return true
	}
	if err == nil {
		_ = lock.Release()
	}
	return false
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
