package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cogstream/internal/pipeline"
	"cogstream/internal/product"
)

// jobFlags are shared by commands that address one signature.
type jobFlags struct {
	product  string
	year     int
	month    int
	jobDir   string
	queueDir string
	start    int
	end      int
}

func (f *jobFlags) bind(cmd *cobra.Command, withRange bool) {
	cmd.Flags().StringVarP(&f.product, "product", "p", "", "Product to stream (see cogstream products)")
	cmd.Flags().IntVarP(&f.year, "year", "y", 0, "Restrict to source files from this year")
	cmd.Flags().IntVarP(&f.month, "month", "m", 0, "Restrict to source files from this month (requires --year)")
	cmd.Flags().StringVarP(&f.jobDir, "job", "j", "", "Job control directory (overrides paths.job_dir)")
	cmd.Flags().StringVarP(&f.queueDir, "queue", "q", "", "Staging queue directory (overrides paths.queue_dir)")
	if withRange {
		cmd.Flags().IntVar(&f.start, "start", 0, "First index of an inclusive slice of the full item list")
		cmd.Flags().IntVar(&f.end, "end", 0, "Last index of an inclusive slice of the full item list")
	}
	_ = cmd.MarkFlagRequired("product")
}

func (f *jobFlags) resolve(reg *product.Registry) (product.Signature, product.Product, error) {
	name := strings.TrimSpace(f.product)
	prod, err := reg.Lookup(name)
	if err != nil {
		return product.Signature{}, product.Product{}, err
	}
	sig := product.Signature{Product: name, Year: f.year, Month: f.month}
	if err := sig.Validate(); err != nil {
		return product.Signature{}, product.Product{}, err
	}
	return sig, prod, nil
}

// itemRange returns the --start/--end slice, or nil when neither flag is set.
func (f *jobFlags) itemRange(cmd *cobra.Command) (*pipeline.Range, error) {
	startSet := cmd.Flags().Changed("start")
	endSet := cmd.Flags().Changed("end")
	switch {
	case !startSet && !endSet:
		return nil, nil
	case startSet != endSet:
		return nil, errors.New("--start and --end must be given together")
	}
	rng := &pipeline.Range{Start: f.start, End: f.end}
	if err := rng.Validate(); err != nil {
		return nil, fmt.Errorf("item range: %w", err)
	}
	return rng, nil
}

func pick(override, fallback string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return fallback
}
