package region

import (
	"encoding/binary"

	regionerrors "github.com/flaneur2020/region-optimizer/regionopt/errors"
)

const (
	SectorSize         = 4096
	LocationTableSize  = 4096
	TimestampTableSize = 4096
	HeaderSize         = LocationTableSize + TimestampTableSize

	// SlotCount is the number of chunks a region can address (32x32).
	SlotCount = LocationTableSize / 4

	maxSectors      = 0xFF
	maxSectorOffset = 0xFFFFFF
)

// Location is one entry of the region header. Offset and Sectors are in
// 4096 byte units, Offset counting from the start of the file.
type Location struct {
	Offset    uint32
	Sectors   uint8
	Timestamp uint32
}

// ParseLocation splits a location table entry into offset and sector count.
func ParseLocation(entry uint32, timestamp uint32) Location {
	return Location{
		Offset:    entry >> 8,
		Sectors:   uint8(entry),
		Timestamp: timestamp,
	}
}

// NewLocation builds the location of a record stored at byteOffset and
// occupying byteSize bytes. byteSize is rounded up to whole sectors.
func NewLocation(byteOffset int, byteSize int, timestamp uint32) (Location, error) {
	offset := byteOffset / SectorSize
	sectors := (byteSize + SectorSize - 1) / SectorSize
	if byteOffset%SectorSize != 0 || offset > maxSectorOffset || sectors > maxSectors {
		return Location{}, regionerrors.NewRecordTooLargeError(offset, sectors)
	}
	return Location{
		Offset:    uint32(offset),
		Sectors:   uint8(sectors),
		Timestamp: timestamp,
	}, nil
}

// Entry returns the 4 byte location table value.
func (l Location) Entry() uint32 {
	return l.Offset<<8 | uint32(l.Sectors)
}

// IsEmpty reports whether the entry points at no record.
func (l Location) IsEmpty() bool {
	return l.Offset == 0 || l.Sectors == 0
}

// ByteOffset returns the position of the record in the file.
func (l Location) ByteOffset() int {
	return int(l.Offset) * SectorSize
}

// SlotIndex returns the header slot of the chunk at (x, z). Coordinates
// are taken modulo 32, so absolute chunk coordinates may be passed.
func SlotIndex(x, z int32) int {
	return int((x & 31) + (z&31)*32)
}

func readLocation(header []byte, slot int) Location {
	entry := binary.BigEndian.Uint32(header[4*slot:])
	timestamp := binary.BigEndian.Uint32(header[LocationTableSize+4*slot:])
	return ParseLocation(entry, timestamp)
}

func writeLocation(header []byte, slot int, l Location) {
	binary.BigEndian.PutUint32(header[4*slot:], l.Entry())
	binary.BigEndian.PutUint32(header[LocationTableSize+4*slot:], l.Timestamp)
}

func alignToSector(n int) int {
	return (n + SectorSize - 1) / SectorSize * SectorSize
}
