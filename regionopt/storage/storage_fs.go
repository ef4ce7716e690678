package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	regionerrors "github.com/flaneur2020/region-optimizer/regionopt/errors"
	"github.com/flaneur2020/region-optimizer/regionopt/logger"
)

const (
	regionDirName   = "region"
	regionExtension = ".mca"
)

// FileStorage reads and writes region files on the local filesystem.
type FileStorage struct{}

// NewFileStorage returns a Storage backed by the local filesystem.
func NewFileStorage() *FileStorage {
	return &FileStorage{}
}

// ListRegions walks each world and collects the .mca files found in any
// directory called "region": the overworld, DIM-1, DIM1 and the
// dimensions/ folder of newer worlds alike.
//
// Paths are absolute and each file is listed once, even when worlds
// overlap or name the same directory twice.
func (s *FileStorage) ListRegions(ctx context.Context, worlds []string) ([]string, error) {
	var paths []string
	for _, world := range worlds {
		info, err := os.Stat(world)
		if err != nil {
			return nil, regionerrors.NewWorldNotFoundError(world, err)
		}
		if !info.IsDir() {
			return nil, regionerrors.ErrWorldNotFound.
				WithDetail("path", world).
				WithMessage("world path is not a directory")
		}

		root, err := filepath.Abs(world)
		if err != nil {
			return nil, regionerrors.NewWorldNotFoundError(world, err)
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !isRegionFile(path) {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return nil, regionerrors.ErrWorldNotFound.
				WithDetail("path", world).
				WithMessage("cannot scan world directory").
				WithCause(err)
		}
		logger.Debug("Found %d region files so far after scanning %s", len(paths), world)
	}

	slices.Sort(paths)
	return slices.Compact(paths), nil
}

func isRegionFile(path string) bool {
	return strings.HasSuffix(path, regionExtension) && filepath.Base(filepath.Dir(path)) == regionDirName
}

// ReadRegion reads the whole region file into memory.
func (s *FileStorage) ReadRegion(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, regionerrors.NewRegionReadError(path, err)
	}
	return data, nil
}

// WriteRegion writes data to a temporary file next to path and renames it
// over the original; a failed write leaves the existing region untouched.
func (s *FileStorage) WriteRegion(ctx context.Context, path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return regionerrors.NewRegionWriteError(path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return regionerrors.NewRegionWriteError(path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return regionerrors.NewRegionWriteError(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return regionerrors.NewRegionWriteError(path, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return regionerrors.NewRegionWriteError(path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return regionerrors.NewRegionWriteError(path, err)
	}
	return nil
}

// RemoveRegion deletes the region file.
func (s *FileStorage) RemoveRegion(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return regionerrors.NewRegionWriteError(path, err)
	}
	return nil
}
