// Package storage abstracts where region files live so the optimizer can
// run against a world directory or an in-memory fixture.
package storage

import "context"

// Storage abstracts region file discovery and whole-file reads and writes.
type Storage interface {
	// ListRegions returns every region file below the given world
	// directories, sorted by path.
	ListRegions(ctx context.Context, worlds []string) ([]string, error)
	ReadRegion(ctx context.Context, path string) ([]byte, error)
	// WriteRegion replaces the region file at path with data.
	WriteRegion(ctx context.Context, path string, data []byte) error
	RemoveRegion(ctx context.Context, path string) error
}
