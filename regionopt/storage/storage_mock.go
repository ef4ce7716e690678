package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	regionerrors "github.com/flaneur2020/region-optimizer/regionopt/errors"
	"github.com/opencontainers/go-digest"
)

// MockStorage is a simple in-memory Storage implementation for tests.
type MockStorage struct {
	mu      sync.RWMutex
	regions map[string][]byte
	writes  map[string]int
	removed map[string]bool
}

// NewMockStorage constructs an empty MockStorage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		regions: make(map[string][]byte),
		writes:  make(map[string]int),
		removed: make(map[string]bool),
	}
}

// ListRegions returns the stored region paths below the given worlds.
func (m *MockStorage) ListRegions(ctx context.Context, worlds []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var paths []string
	for _, world := range worlds {
		prefix := filepath.Clean(world) + string(filepath.Separator)
		found := false
		for path := range m.regions {
			if strings.HasPrefix(path, prefix) {
				found = true
				if isRegionFile(path) {
					paths = append(paths, path)
				}
			}
		}
		for path := range m.removed {
			found = found || strings.HasPrefix(path, prefix)
		}
		if !found {
			return nil, regionerrors.NewWorldNotFoundError(world, fmt.Errorf("mock storage: no files below %s", world))
		}
	}
	sort.Strings(paths)
	return slices.Compact(paths), nil
}

// ReadRegion returns a copy of the stored bytes.
func (m *MockStorage) ReadRegion(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.regions[path]
	if !ok {
		return nil, regionerrors.NewRegionReadError(path, fmt.Errorf("mock storage: region not found"))
	}
	return append([]byte(nil), data...), nil
}

// WriteRegion stores a copy of data.
func (m *MockStorage) WriteRegion(ctx context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.regions[path] = append([]byte(nil), data...)
	m.writes[path]++
	return nil
}

// RemoveRegion deletes the stored region.
func (m *MockStorage) RemoveRegion(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.regions[path]; !ok {
		return regionerrors.NewRegionWriteError(path, fmt.Errorf("mock storage: region not found"))
	}
	delete(m.regions, path)
	m.removed[path] = true
	return nil
}

// AddRegion adds region content to the mock storage and returns its digest.
func (m *MockStorage) AddRegion(path string, data []byte) digest.Digest {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.regions[path] = append([]byte(nil), data...)
	return digest.FromBytes(data)
}

// Digest returns the digest of the stored region, if present.
func (m *MockStorage) Digest(path string) (digest.Digest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.regions[path]
	if !ok {
		return "", false
	}
	return digest.FromBytes(data), true
}

// Writes returns how many times path was rewritten.
func (m *MockStorage) Writes(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[path]
}

// Removed reports whether path was deleted through RemoveRegion.
func (m *MockStorage) Removed(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.removed[path]
}
