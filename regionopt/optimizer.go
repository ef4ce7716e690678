// Package regionopt removes chunks that were never fully generated or never
// visited from Minecraft region files, and deletes regions left empty.
package regionopt

import (
	"context"
	"runtime"

	"github.com/flaneur2020/region-optimizer/regionopt/compression"
	"github.com/flaneur2020/region-optimizer/regionopt/logger"
	"github.com/flaneur2020/region-optimizer/regionopt/region"
	"github.com/flaneur2020/region-optimizer/regionopt/storage"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// ProgressCallback is called once for every region file processed.
type ProgressCallback func()

// Options configures an Optimizer.
type Options struct {
	// CompressionLevel is used when rewriting gzip and zlib chunks (0-9).
	CompressionLevel int
	// Workers is the number of regions processed in parallel. Zero means
	// one per CPU.
	Workers int
	// DryRun makes every decision without writing or deleting anything.
	DryRun bool
}

// Optimizer runs optimization passes over region files held by a Storage.
type Optimizer struct {
	storage storage.Storage
	opts    Options
}

func NewOptimizer(s storage.Storage, opts Options) *Optimizer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if !compression.ValidLevel(opts.CompressionLevel) {
		opts.CompressionLevel = compression.DefaultLevel
	}
	return &Optimizer{
		storage: s,
		opts:    opts,
	}
}

// Sweep removes every chunk selected by ShouldDelete from the given region
// files. Regions that cannot be parsed, or that end up empty, are deleted.
//
// Failures of a single region are logged and count as an empty result for
// that region; only cancellation of ctx is returned.
func (o *Optimizer) Sweep(ctx context.Context, paths []string, progress ProgressCallback) (*OptimizeResult, error) {
	results := make([]OptimizeResult, len(paths))
	err := o.forEach(ctx, len(paths), func(ctx context.Context, i int) {
		results[i] = o.sweepRegion(ctx, paths[i])
		if progress != nil {
			progress()
		}
	})
	if err != nil {
		return nil, err
	}

	total := MergeResults(results)
	return &total, nil
}

func (o *Optimizer) sweepRegion(ctx context.Context, path string) OptimizeResult {
	r, err := o.loadRegion(ctx, path)
	if err != nil {
		logger.Info("Deleting unreadable region %s: %v", path, err)
		return o.removeRegion(ctx, path, OptimizeResult{})
	}

	var indices []int
	for i, c := range r.Chunks() {
		if c.ShouldDelete() {
			indices = append(indices, i)
		}
	}

	result := OptimizeResult{TotalChunks: r.Len()}
	result.DeletedChunks = r.RemoveIndices(indices)
	return o.commit(ctx, path, r, result)
}

func (o *Optimizer) loadRegion(ctx context.Context, path string) (*region.Region, error) {
	data, err := o.storage.ReadRegion(ctx, path)
	if err != nil {
		return nil, err
	}
	return region.Parse(data)
}

// commit deletes an emptied region or rewrites a modified one. If the
// change cannot be stored the region contributes nothing to the totals.
func (o *Optimizer) commit(ctx context.Context, path string, r *region.Region, result OptimizeResult) OptimizeResult {
	switch {
	case r.IsEmpty():
		return o.removeRegion(ctx, path, result)
	case r.IsModified():
		data, err := r.ToBytes(o.opts.CompressionLevel)
		if err != nil {
			logger.Warn("Leaving region %s untouched: %v", path, err)
			return OptimizeResult{}
		}
		if o.opts.DryRun {
			return result
		}
		if err := o.storage.WriteRegion(ctx, path, data); err != nil {
			logger.Warn("Cannot rewrite region %s: %v", path, err)
			return OptimizeResult{}
		}
		if logger.Enabled(logger.LogLevelDebug) {
			logger.Debug("Rewrote %s with %d chunks (%d bytes, %s)", path, r.Len(), len(data), digest.FromBytes(data))
		}
	}
	return result
}

func (o *Optimizer) removeRegion(ctx context.Context, path string, result OptimizeResult) OptimizeResult {
	result.DeletedRegions++
	if o.opts.DryRun {
		return result
	}
	if err := o.storage.RemoveRegion(ctx, path); err != nil {
		logger.Warn("Cannot delete region %s: %v", path, err)
		return OptimizeResult{}
	}
	logger.Debug("Deleted region %s", path)
	return result
}

// forEach runs fn for indices 0..n-1 on at most Workers goroutines. Work
// already started always completes; cancelling ctx only stops new work
// from being scheduled.
func (o *Optimizer) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	var g errgroup.Group
	g.SetLimit(o.opts.Workers)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}

	g.Wait()
	return ctx.Err()
}
