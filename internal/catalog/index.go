package catalog

import "cogstream/internal/product"

// DatasetsFromFiles derives catalog rows from source file paths using the
// timestamp embedded in each name. Files without a parseable timestamp are
// returned in skipped.
func DatasetsFromFiles(files []string) (datasets []Dataset, skipped []string) {
	datasets = make([]Dataset, 0, len(files))
	for _, f := range files {
		at, ok := product.FileTime(f)
		if !ok {
			skipped = append(skipped, f)
			continue
		}
		datasets = append(datasets, Dataset{Item: f, AcquiredAt: at})
	}
	return datasets, skipped
}
