// Package compression maps the one byte compression scheme stored in front
// of every chunk to the matching codec.
package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4"
)

// Scheme is the compression identifier of a chunk.
//
// Only 1 (gzip), 2 (zlib) and 4 (LZ4) are understood. Some builds of the
// game store LZ4 under id 3, which collides with the id newer builds use
// for uncompressed chunks; id 3 is therefore treated as unknown like every
// other byte, and such chunks stay opaque.
type Scheme byte

const (
	Gzip Scheme = 1
	Zlib Scheme = 2
	LZ4  Scheme = 4
)

const (
	MinLevel     = 0
	MaxLevel     = 9
	DefaultLevel = 6
)

var (
	// ErrUnknownScheme is returned when decoding or encoding an unsupported scheme.
	ErrUnknownScheme = errors.New("compression: unknown scheme")

	// ErrCorrupt is returned when compressed data cannot be decoded.
	ErrCorrupt = errors.New("compression: corrupt data")
)

// Known reports whether s has a codec.
func (s Scheme) Known() bool {
	return s == Gzip || s == Zlib || s == LZ4
}

func (s Scheme) String() string {
	switch s {
	case Gzip:
		return "gzip"
	case Zlib:
		return "zlib"
	case LZ4:
		return "lz4"
	}
	return fmt.Sprintf("unknown(%d)", byte(s))
}

// ValidLevel reports whether level is within MinLevel..MaxLevel.
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// Decode decompresses data to the end of the stream.
func Decode(s Scheme, data []byte) ([]byte, error) {
	switch s {
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		defer r.Close()
		return readAll(r)
	case Zlib:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		defer r.Close()
		return readAll(r)
	case LZ4:
		return decodeLZ4(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, s)
}

// Encode compresses data. level is honoured by gzip and zlib and ignored by LZ4.
func Encode(s Scheme, data []byte, level int) ([]byte, error) {
	if !ValidLevel(level) {
		return nil, fmt.Errorf("compression: level %d out of range %d..%d", level, MinLevel, MaxLevel)
	}

	switch s {
	case Gzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, err
		}
		return finish(&buf, w, data)
	case Zlib:
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, err
		}
		return finish(&buf, w, data)
	case LZ4:
		return encodeLZ4(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, s)
}

func readAll(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

func finish(buf *bytes.Buffer, w io.WriteCloser, data []byte) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LZ4 chunks hold a 4 byte little-endian uncompressed size followed by a
// single raw LZ4 block.
const lz4SizePrefix = 4

// maxLZ4Size bounds the allocation made from the size prefix. Chunks are
// limited to 255 sectors on disk, so a decompressed size beyond this is
// treated as corruption.
const maxLZ4Size = 64 << 20

func decodeLZ4(data []byte) ([]byte, error) {
	if len(data) < lz4SizePrefix {
		return nil, fmt.Errorf("%w: lz4 size prefix truncated", ErrCorrupt)
	}
	size := binary.LittleEndian.Uint32(data)
	if size > maxLZ4Size {
		return nil, fmt.Errorf("%w: lz4 size %d too large", ErrCorrupt, size)
	}
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	n, err := lz4.UncompressBlock(data[lz4SizePrefix:], out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if n != int(size) {
		return nil, fmt.Errorf("%w: lz4 decoded %d bytes, want %d", ErrCorrupt, n, size)
	}
	return out, nil
}

func encodeLZ4(data []byte) ([]byte, error) {
	out := make([]byte, lz4SizePrefix+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out, uint32(len(data)))

	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(data, out[lz4SizePrefix:], hashTable[:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// The block compressor gives up on short or incompressible input.
		return appendLiteralBlock(out[:lz4SizePrefix], data), nil
	}
	return out[:lz4SizePrefix+n], nil
}

// appendLiteralBlock appends data as an LZ4 block made of a single literal
// run, which every LZ4 decoder accepts.
func appendLiteralBlock(dst, data []byte) []byte {
	n := len(data)
	if n < 15 {
		dst = append(dst, byte(n<<4))
	} else {
		dst = append(dst, 0xF0)
		rest := n - 15
		for rest >= 255 {
			dst = append(dst, 255)
			rest -= 255
		}
		dst = append(dst, byte(rest))
	}
	return append(dst, data...)
}
