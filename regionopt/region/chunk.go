package region

import (
	"encoding/binary"
	"fmt"

	"github.com/flaneur2020/region-optimizer/regionopt/compression"
	regionerrors "github.com/flaneur2020/region-optimizer/regionopt/errors"
	"github.com/flaneur2020/region-optimizer/regionopt/logger"
	"github.com/flaneur2020/region-optimizer/regionopt/nbt"
)

// chunkHeaderSize covers the 4 byte length and the scheme byte.
const chunkHeaderSize = 5

const (
	StatusFull       = "minecraft:full"
	legacyStatusFull = "full"
)

// Chunk is one record of a region file. A chunk whose payload could not be
// decompressed or decoded is opaque: it keeps its stored bytes and is never
// selected by content based decisions.
type Chunk struct {
	Location Location
	Scheme   compression.Scheme
	Slot     int

	tag *nbt.NamedTag
	raw []byte
}

// NewChunk builds a chunk from a tree, for example to populate a new region.
func NewChunk(tag nbt.NamedTag, scheme compression.Scheme, timestamp uint32) *Chunk {
	return &Chunk{
		Location: Location{Timestamp: timestamp},
		Scheme:   scheme,
		Slot:     -1,
		tag:      &tag,
	}
}

// NewOpaqueChunk builds a chunk that carries payload verbatim.
func NewOpaqueChunk(payload []byte, scheme compression.Scheme, timestamp uint32) *Chunk {
	return &Chunk{
		Location: Location{Timestamp: timestamp},
		Scheme:   scheme,
		Slot:     -1,
		raw:      append([]byte(nil), payload...),
	}
}

// ParseChunk reads the record loc points at inside the region bytes buf.
// Only a record header outside buf is an error; undecodable payloads give
// an opaque chunk.
func ParseChunk(buf []byte, loc Location, slot int) (*Chunk, error) {
	offset := loc.ByteOffset()
	if offset < HeaderSize || offset+chunkHeaderSize > len(buf) {
		return nil, regionerrors.NewChunkOutOfBoundsError(slot, offset, len(buf))
	}

	length := int(binary.BigEndian.Uint32(buf[offset:]))
	if length < 1 {
		return nil, regionerrors.ErrChunkOutOfBounds.
			WithDetail("slot", slot).
			WithDetail("length", length)
	}

	start := offset + chunkHeaderSize
	end := start + length - 1
	truncated := false
	if end > len(buf) {
		end = len(buf)
		truncated = true
	}

	c := &Chunk{
		Location: loc,
		Scheme:   compression.Scheme(buf[offset+4]),
		Slot:     slot,
		raw:      append([]byte(nil), buf[start:end]...),
	}

	if truncated {
		logger.Warn("Chunk in slot %d declares %d bytes but the file ends after %d, keeping it opaque", slot, length-1, end-start)
		return c, nil
	}

	tag, err := decodeTag(c.Scheme, c.raw)
	if err != nil {
		logger.Debug("Keeping chunk in slot %d opaque: %v", slot, err)
		return c, nil
	}
	c.tag = &tag
	return c, nil
}

func decodeTag(scheme compression.Scheme, payload []byte) (nbt.NamedTag, error) {
	data, err := compression.Decode(scheme, payload)
	if err != nil {
		return nbt.NamedTag{}, err
	}
	return nbt.Decode(data)
}

// IsOpaque reports whether the chunk content could not be decoded.
func (c *Chunk) IsOpaque() bool {
	return c.tag == nil
}

// Tag returns the decoded tree.
func (c *Chunk) Tag() (nbt.NamedTag, bool) {
	if c.tag == nil {
		return nbt.NamedTag{}, false
	}
	return *c.tag, true
}

// Bytes serializes the chunk as length, scheme and payload. Decoded chunks
// are re-encoded and recompressed with the chunk's own scheme at level;
// opaque chunks are written back verbatim.
func (c *Chunk) Bytes(level int) ([]byte, error) {
	if c.tag == nil {
		return frame(c.Scheme, c.raw), nil
	}

	data, err := nbt.Encode(*c.tag)
	if err != nil {
		if c.raw == nil {
			return nil, fmt.Errorf("encode chunk tree: %w", err)
		}
		logger.Warn("Cannot encode chunk tree from slot %d, keeping stored bytes: %v", c.Slot, err)
		return frame(c.Scheme, c.raw), nil
	}

	compressed, err := compression.Encode(c.Scheme, data, level)
	if err != nil {
		logger.Warn("Cannot compress chunk from slot %d with %s, storing it uncompressed: %v", c.Slot, c.Scheme, err)
		compressed = data
	}
	return frame(c.Scheme, compressed), nil
}

func frame(scheme compression.Scheme, payload []byte) []byte {
	out := make([]byte, chunkHeaderSize, chunkHeaderSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)+1))
	out[4] = byte(scheme)
	return append(out, payload...)
}

// fields returns the compound holding the chunk fields. Chunks written
// before 1.18 nest them under "Level".
func (c *Chunk) fields() (nbt.Compound, bool) {
	if c.tag == nil {
		return nil, false
	}
	root, ok := nbt.AsCompound(c.tag.Value)
	if !ok {
		return nil, false
	}
	if level, ok := root.GetCompound("Level"); ok {
		return level, true
	}
	return root, true
}

// Position returns the absolute chunk coordinates stored in the chunk.
func (c *Chunk) Position() (int32, int32, error) {
	fields, _ := c.fields()
	x, ok := fields.GetInt("xPos")
	if !ok {
		return 0, 0, regionerrors.NewChunkPositionError("xPos")
	}
	z, ok := fields.GetInt("zPos")
	if !ok {
		return 0, 0, regionerrors.NewChunkPositionError("zPos")
	}
	return x, z, nil
}

// ShouldDelete reports whether the chunk was never fully generated or was
// never inhabited by a player. Opaque chunks are never selected.
func (c *Chunk) ShouldDelete() bool {
	fields, ok := c.fields()
	if !ok {
		return c.tag != nil
	}
	return !isFullyGenerated(fields) || !hasBeenInhabited(fields)
}

func isFullyGenerated(fields nbt.Compound) bool {
	status, _ := fields.GetString("Status")
	return status == StatusFull || status == legacyStatusFull
}

// InhabitedTime is incremented for every chunk within range of a player,
// not only the one the player stands in.
func hasBeenInhabited(fields nbt.Compound) bool {
	inhabited, _ := fields.GetLong("InhabitedTime")
	return inhabited > 0
}

// CountBlock returns how many section palettes of the chunk contain the
// block called name.
func (c *Chunk) CountBlock(name string) uint32 {
	fields, ok := c.fields()
	if !ok {
		return 0
	}
	sections, ok := fields.GetList("sections")
	if !ok {
		sections, ok = fields.GetList("Sections")
		if !ok {
			return 0
		}
	}

	var count uint32
	for _, item := range sections.Items {
		section, ok := nbt.AsCompound(item)
		if !ok {
			continue
		}
		for _, entry := range sectionPalette(section) {
			block, ok := nbt.AsCompound(entry)
			if !ok {
				continue
			}
			if blockName, _ := block.GetString("Name"); blockName == name {
				count++
			}
		}
	}
	return count
}

func sectionPalette(section nbt.Compound) []nbt.Value {
	if states, ok := section.GetCompound("block_states"); ok {
		if palette, ok := states.GetList("palette"); ok {
			return palette.Items
		}
		return nil
	}
	if palette, ok := section.GetList("Palette"); ok {
		return palette.Items
	}
	return nil
}
