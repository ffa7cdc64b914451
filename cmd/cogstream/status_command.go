package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cogstream/internal/jobcontrol"
	"cogstream/internal/product"
)

type signatureStatus struct {
	Key          string
	Total        int
	Checkpointed int
	Pending      int
	HasList      bool
	Running      bool
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jobDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint progress for every signature in the job directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := pick(jobDir, cfg.Paths.JobDir)
			statuses, err := collectStatus(dir, cfg.Paths.QueueDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(statuses) == 0 {
				fmt.Fprintf(out, "No jobs found in %s\n", dir)
				return nil
			}

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				total, pending := "-", "-"
				if s.HasList {
					total = strconv.Itoa(s.Total)
					pending = strconv.Itoa(s.Pending)
				}
				rows = append(rows, []string{s.Key, total, strconv.Itoa(s.Checkpointed), pending, yesNo(s.Running)})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Title: "Signature"},
				{Title: "Total", Numeric: true},
				{Title: "Checkpointed", Numeric: true},
				{Title: "Pending", Numeric: true},
				{Title: "Running"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&jobDir, "job", "j", "", "Job control directory (overrides paths.job_dir)")
	return cmd
}

// collectStatus summarizes each signature with job files in jobDir. Totals
// are known only when the full item list was cached.
func collectStatus(jobDir, queueDir string) ([]signatureStatus, error) {
	keys, err := jobcontrol.KeysIn(jobDir)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	statuses := make([]signatureStatus, 0, len(keys))
	for _, key := range keys {
		sig, err := product.ParseKey(key)
		if err != nil {
			continue
		}
		paths, err := jobcontrol.Resolve(jobDir, queueDir, sig)
		if err != nil {
			return nil, err
		}
		done, err := paths.Log().Load()
		if err != nil {
			return nil, err
		}
		s := signatureStatus{Key: key, Checkpointed: len(done)}

		items, ok, err := paths.Items().Load()
		if err != nil {
			return nil, err
		}
		if ok {
			s.HasList = true
			s.Total = len(items)
			for _, item := range items {
				if _, seen := done[item]; !seen {
					s.Pending++
				}
			}
		}
		s.Running = signatureRunning(jobDir, queueDir, key)
		statuses = append(statuses, s)
	}
	return statuses, nil
}
