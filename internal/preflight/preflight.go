package preflight

import (
	"context"

	"cogstream/internal/config"
	"cogstream/internal/deps"
	"cogstream/internal/product"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// MinFreeBytes is the free-space floor below which the staging check fails.
const MinFreeBytes = 1 << 30

// RunAll executes every applicable check. A nil product skips the source check.
func RunAll(ctx context.Context, cfg *config.Config, prod *product.Product) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Job directory", cfg.Paths.JobDir),
		CheckDirectoryAccess("Queue directory", cfg.Paths.QueueDir),
		CheckFreeSpace("Queue free space", cfg.Paths.QueueDir, MinFreeBytes),
		CheckProducts(cfg.Paths.ProductsFile),
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, fromStatus(status))
	}

	if prod != nil && prod.Enumeration == product.SourceFilesystem {
		results = append(results, CheckSourceRoot(prod.Name+" source", prod.Source))
	}
	if ctx.Err() != nil {
		results = append(results, Result{Name: "Preflight", Detail: ctx.Err().Error()})
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

func fromStatus(s deps.Status) Result {
	r := Result{Name: s.Name}
	switch {
	case s.Available:
		r.Passed = true
		r.Detail = s.Path
	case s.Optional:
		r.Passed = true
		r.Detail = s.Detail + " (optional)"
	default:
		r.Detail = s.Detail
	}
	return r
}
