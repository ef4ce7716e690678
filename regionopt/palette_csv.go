package regionopt

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	regionerrors "github.com/flaneur2020/region-optimizer/regionopt/errors"
)

const (
	columnRegionPath = "region_file_path"
	columnChunkX     = "chunk_x"
	columnChunkZ     = "chunk_z"
)

var csvHeader = []string{columnRegionPath, columnChunkX, columnChunkZ}

// WriteMatchesCSV writes matches with a region_file_path,chunk_x,chunk_z header.
func WriteMatchesCSV(w io.Writer, matches []PaletteMatch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, m := range matches {
		record := []string{
			m.RegionPath,
			strconv.FormatInt(int64(m.ChunkX), 10),
			strconv.FormatInt(int64(m.ChunkZ), 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMatchesCSV parses a file written by WriteMatchesCSV. Columns are
// located by header name. Any malformed row fails the whole import.
func ReadMatchesCSV(r io.Reader) ([]PaletteMatch, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, regionerrors.NewFilterImportError(1, errors.New("missing header"))
	}
	if err != nil {
		return nil, regionerrors.NewFilterImportError(csvErrorLine(err, 1), err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	var idx [3]int
	for i, name := range csvHeader {
		col, ok := columns[name]
		if !ok {
			return nil, regionerrors.NewFilterImportError(1, fmt.Errorf("missing column %q", name))
		}
		idx[i] = col
	}

	var matches []PaletteMatch
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, regionerrors.NewFilterImportError(csvErrorLine(err, 0), err)
		}
		line, _ := cr.FieldPos(0)

		x, err := strconv.ParseInt(record[idx[1]], 10, 32)
		if err != nil {
			return nil, regionerrors.NewFilterImportError(line, fmt.Errorf("%s: %w", columnChunkX, err))
		}
		z, err := strconv.ParseInt(record[idx[2]], 10, 32)
		if err != nil {
			return nil, regionerrors.NewFilterImportError(line, fmt.Errorf("%s: %w", columnChunkZ, err))
		}
		if record[idx[0]] == "" {
			return nil, regionerrors.NewFilterImportError(line, fmt.Errorf("empty %s", columnRegionPath))
		}

		matches = append(matches, PaletteMatch{
			RegionPath: record[idx[0]],
			ChunkX:     int32(x),
			ChunkZ:     int32(z),
		})
	}
	return matches, nil
}

func csvErrorLine(err error, fallback int) int {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.StartLine
	}
	return fallback
}
