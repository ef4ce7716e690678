package regionopt

import (
	"context"
	"path/filepath"

	"github.com/flaneur2020/region-optimizer/regionopt/logger"
	"github.com/flaneur2020/region-optimizer/regionopt/region"
)

// Filter selects chunks by how many section palettes contain a block.
type Filter struct {
	// Name is the block id, for example "minecraft:diamond_ore".
	Name string
	// Threshold is the minimum count when set; otherwise any occurrence matches.
	Threshold *uint32
}

// Matches reports whether c contains the filtered block often enough.
func (f *Filter) Matches(c *region.Chunk) bool {
	count := c.CountBlock(f.Name)
	if f.Threshold != nil {
		return count >= *f.Threshold
	}
	return count > 0
}

// PaletteMatch identifies a chunk selected by a palette export.
type PaletteMatch struct {
	RegionPath string
	ChunkX     int32
	ChunkZ     int32
}

type chunkPos struct {
	x, z int32
}

// PaletteExport lists the chunks of the given regions selected by filter,
// or by ShouldDelete when filter is nil. Nothing is modified. Unreadable
// regions and chunks without a position are skipped.
func (o *Optimizer) PaletteExport(ctx context.Context, paths []string, filter *Filter, progress ProgressCallback) ([]PaletteMatch, *OptimizeResult, error) {
	matches := make([][]PaletteMatch, len(paths))
	results := make([]OptimizeResult, len(paths))

	err := o.forEach(ctx, len(paths), func(ctx context.Context, i int) {
		matches[i], results[i] = o.exportRegion(ctx, paths[i], filter)
		if progress != nil {
			progress()
		}
	})
	if err != nil {
		return nil, nil, err
	}

	var all []PaletteMatch
	for _, m := range matches {
		all = append(all, m...)
	}
	total := MergeResults(results)
	return all, &total, nil
}

func (o *Optimizer) exportRegion(ctx context.Context, path string, filter *Filter) ([]PaletteMatch, OptimizeResult) {
	r, err := o.loadRegion(ctx, path)
	if err != nil {
		logger.Warn("Skipping region %s: %v", path, err)
		return nil, OptimizeResult{}
	}

	var matches []PaletteMatch
	for _, c := range r.Chunks() {
		if !selectChunk(c, filter) {
			continue
		}
		x, z, err := c.Position()
		if err != nil {
			logger.Debug("Skipping chunk in slot %d of %s: %v", c.Slot, path, err)
			continue
		}
		matches = append(matches, PaletteMatch{RegionPath: path, ChunkX: x, ChunkZ: z})
	}
	return matches, OptimizeResult{TotalChunks: r.Len()}
}

func selectChunk(c *region.Chunk, filter *Filter) bool {
	if filter == nil {
		return c.ShouldDelete()
	}
	return filter.Matches(c)
}

type importGroup struct {
	path   string
	coords map[chunkPos]bool
}

// PaletteImport deletes the listed chunks. When filter is not nil a listed
// chunk is only deleted if it still matches the filter. Coordinates without
// a chunk are ignored, unreadable regions are skipped, and regions left
// empty are deleted.
func (o *Optimizer) PaletteImport(ctx context.Context, matches []PaletteMatch, filter *Filter, progress ProgressCallback) (*OptimizeResult, error) {
	groups := groupMatches(matches)
	results := make([]OptimizeResult, len(groups))

	err := o.forEach(ctx, len(groups), func(ctx context.Context, i int) {
		results[i] = o.importRegion(ctx, groups[i], filter)
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

// CountRegions returns how many distinct region files matches refer to.
func CountRegions(matches []PaletteMatch) int {
	return len(groupMatches(matches))
}

// groupMatches collects matches per region so that every file is handled
// by a single worker, in order of first appearance. Paths are compared in
// their cleaned form, so "./w/region/r.0.0.mca" and "w/region/r.0.0.mca"
// form one group.
func groupMatches(matches []PaletteMatch) []importGroup {
	var groups []importGroup
	index := make(map[string]int)
	for _, m := range matches {
		path := filepath.Clean(m.RegionPath)
		i, ok := index[path]
		if !ok {
			i = len(groups)
			index[path] = i
			groups = append(groups, importGroup{path: path, coords: make(map[chunkPos]bool)})
		}
		groups[i].coords[chunkPos{m.ChunkX, m.ChunkZ}] = true
	}
	return groups
}

func (o *Optimizer) importRegion(ctx context.Context, group importGroup, filter *Filter) OptimizeResult {
	r, err := o.loadRegion(ctx, group.path)
	if err != nil {
		logger.Warn("Skipping region %s: %v", group.path, err)
		return OptimizeResult{}
	}

	var indices []int
	for i, c := range r.Chunks() {
		x, z, err := c.Position()
		if err != nil || !group.coords[chunkPos{x, z}] {
			continue
		}
		if filter != nil && !filter.Matches(c) {
			continue
		}
		indices = append(indices, i)
	}

	result := OptimizeResult{TotalChunks: r.Len()}
	result.DeletedChunks = r.RemoveIndices(indices)
	return o.commit(ctx, group.path, r, result)
}
