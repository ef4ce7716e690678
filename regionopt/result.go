package regionopt

import "fmt"

// OptimizeResult counts what an optimization pass examined and removed.
// The zero value is the identity of Merge.
type OptimizeResult struct {
	TotalChunks    int
	DeletedChunks  int
	DeletedRegions int
}

// Merge returns the field-wise sum of r and other.
func (r OptimizeResult) Merge(other OptimizeResult) OptimizeResult {
	return OptimizeResult{
		TotalChunks:    r.TotalChunks + other.TotalChunks,
		DeletedChunks:  r.DeletedChunks + other.DeletedChunks,
		DeletedRegions: r.DeletedRegions + other.DeletedRegions,
	}
}

// MergeResults folds results with Merge.
func MergeResults(results []OptimizeResult) OptimizeResult {
	var total OptimizeResult
	for _, r := range results {
		total = total.Merge(r)
	}
	return total
}

func (r OptimizeResult) String() string {
	percent := 0.0
	if r.TotalChunks > 0 {
		percent = float64(r.DeletedChunks) / float64(r.TotalChunks) * 100
	}
	return fmt.Sprintf("Total chunks: %d\nDeleted chunks: %d (%.2f%%)\nDeleted regions: %d",
		r.TotalChunks, r.DeletedChunks, percent, r.DeletedRegions)
}
