// Package region reads and rewrites region files: a 8 KiB header made of a
// location table and a timestamp table, followed by sector aligned chunks.
package region

import (
	"slices"

	regionerrors "github.com/flaneur2020/region-optimizer/regionopt/errors"
	"github.com/flaneur2020/region-optimizer/regionopt/logger"
)

// Region holds the chunks of one region file in header order.
type Region struct {
	chunks   []*Chunk
	modified bool
}

// New returns an empty region.
func New() *Region {
	return &Region{}
}

// Parse decodes a region file. Chunks that cannot be decoded are kept
// opaque; slots pointing outside the file are skipped.
func Parse(data []byte) (*Region, error) {
	if len(data) < HeaderSize {
		return nil, regionerrors.NewRegionHeaderError(len(data))
	}

	r := &Region{chunks: make([]*Chunk, 0, SlotCount)}
	for slot := 0; slot < SlotCount; slot++ {
		loc := readLocation(data, slot)
		if loc.IsEmpty() {
			continue
		}

		chunk, err := ParseChunk(data, loc, slot)
		if err != nil {
			logger.Warn("Skipping chunk in slot %d: %v", slot, err)
			continue
		}
		r.chunks = append(r.chunks, chunk)
	}

	return r, nil
}

// Chunks returns the chunks in their current order. The slice must not be modified.
func (r *Region) Chunks() []*Chunk {
	return r.chunks
}

func (r *Region) Len() int {
	return len(r.chunks)
}

func (r *Region) IsEmpty() bool {
	return len(r.chunks) == 0
}

// IsModified reports whether chunks were added or removed since parsing.
func (r *Region) IsModified() bool {
	return r.modified
}

// Append adds a chunk at the end and marks the region modified.
func (r *Region) Append(c *Chunk) {
	r.chunks = append(r.chunks, c)
	r.modified = true
}

// RemoveAt removes the chunk at index i, shifting later chunks down by one.
// When removing several chunks, go from the highest index to the lowest or
// use RemoveIndices.
func (r *Region) RemoveAt(i int) {
	r.chunks = slices.Delete(r.chunks, i, i+1)
	r.modified = true
}

// RemoveIndices removes every chunk whose index is listed and returns how
// many were removed. Duplicate and out of range indices are ignored.
func (r *Region) RemoveIndices(indices []int) int {
	sorted := slices.Clone(indices)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	removed := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		idx := sorted[i]
		if idx < 0 || idx >= len(r.chunks) {
			continue
		}
		r.RemoveAt(idx)
		removed++
	}
	return removed
}

// Lookup returns the first chunk whose stored position is (x, z).
func (r *Region) Lookup(x, z int32) (*Chunk, bool) {
	for _, c := range r.chunks {
		cx, cz, err := c.Position()
		if err == nil && cx == x && cz == z {
			return c, true
		}
	}
	return nil, false
}

// ToBytes serializes the region. Chunks are written in their current order,
// each padded to whole sectors, and keep their original timestamps.
//
// A chunk without a readable position cannot be placed in the header: its
// bytes are still written but no table entry points at them, so the game
// will not find it again.
func (r *Region) ToBytes(level int) ([]byte, error) {
	out := make([]byte, HeaderSize, HeaderSize+len(r.chunks)*SectorSize)

	for _, c := range r.chunks {
		serialized, err := c.Bytes(level)
		if err != nil {
			return nil, err
		}

		offset := len(out)
		size := alignToSector(len(serialized))
		loc, err := NewLocation(offset, size, c.Location.Timestamp)
		if err != nil {
			return nil, err
		}

		if x, z, err := c.Position(); err == nil {
			writeLocation(out, SlotIndex(x, z), loc)
		} else {
			logger.Warn("Chunk from slot %d has no position and will not be addressable: %v", c.Slot, err)
		}

		out = append(out, serialized...)
		out = append(out, make([]byte, size-len(serialized))...)
	}

	return out, nil
}
