package pipeline

import "fmt"

// Range selects the inclusive, zero-based positions [Start, End] of the full
// item list.
type Range struct {
	Start int
	End   int
}

// Validate reports whether the range is well formed.
func (r Range) Validate() error {
	if r.Start < 0 || r.End < r.Start {
		return fmt.Errorf("invalid range [%d, %d]", r.Start, r.End)
	}
	return nil
}

// PendingSet computes the items to process. With a range, the slice of full
// at those positions is returned unfiltered and limit is ignored. Otherwise
// checkpointed items are removed, order is preserved, and a positive limit
// keeps only the first limit items.
func PendingSet(full []string, done map[string]struct{}, limit int, rng *Range) ([]string, error) {
	if rng != nil {
		if err := rng.Validate(); err != nil {
			return nil, err
		}
		if rng.Start >= len(full) {
			return nil, fmt.Errorf("range start %d beyond item list of %d", rng.Start, len(full))
		}
		end := min(rng.End, len(full)-1)
		out := make([]string, end-rng.Start+1)
		copy(out, full[rng.Start:end+1])
		return out, nil
	}

	out := make([]string, 0, len(full))
	for _, item := range full {
		if _, ok := done[item]; ok {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
