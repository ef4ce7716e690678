package errors

import "fmt"

// Error types for region optimizer operations
var (
	// ErrRegionHeader is returned when a region file is shorter than its header
	ErrRegionHeader = &RegionError{Code: "REGION_HEADER", Message: "cannot read header of region file"}

	// ErrRegionRead is returned when a region file cannot be read
	ErrRegionRead = &RegionError{Code: "REGION_READ", Message: "error while reading the region file"}

	// ErrRegionWrite is returned when a region file cannot be rewritten or removed
	ErrRegionWrite = &RegionError{Code: "REGION_WRITE", Message: "error while writing the region file"}

	// ErrChunkOutOfBounds is returned when a location points outside the region file
	ErrChunkOutOfBounds = &RegionError{Code: "CHUNK_OUT_OF_BOUNDS", Message: "chunk header lies outside the region file"}

	// ErrChunkPosition is returned when a chunk has no readable xPos/zPos
	ErrChunkPosition = &RegionError{Code: "CHUNK_POSITION", Message: "chunk position is missing"}

	// ErrRecordTooLarge is returned when a chunk cannot be addressed by a location entry
	ErrRecordTooLarge = &RegionError{Code: "RECORD_TOO_LARGE", Message: "chunk does not fit in a location entry"}

	// ErrFilterImport is returned when a filter CSV cannot be parsed
	ErrFilterImport = &RegionError{Code: "FILTER_IMPORT", Message: "cannot import chunk filter"}

	// ErrWorldNotFound is returned when a world directory does not exist
	ErrWorldNotFound = &RegionError{Code: "WORLD_NOT_FOUND", Message: "world directory not found"}
)

// RegionError represents a structured error in region optimizer operations
type RegionError struct {
	Code    string                 // Error code for programmatic handling
	Message string                 // Human-readable error message
	Cause   error                  // Underlying error, if any
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *RegionError) Error() string {
	if e.Cause != nil {
		if len(e.Details) > 0 {
			return fmt.Sprintf("[%s] %s (details: %v): %v", e.Code, e.Message, e.Details, e.Cause)
		}
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RegionError) Unwrap() error {
	return e.Cause
}

// Is matches any RegionError carrying the same code, so errors derived with
// WithCause or WithDetail still match their sentinel.
func (e *RegionError) Is(target error) bool {
	t, ok := target.(*RegionError)
	return ok && t.Code == e.Code
}

// WithCause adds a cause to the error
func (e *RegionError) WithCause(cause error) *RegionError {
	return &RegionError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *RegionError) WithDetail(key string, value interface{}) *RegionError {
	details := make(map[string]interface{})
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &RegionError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// WithMessage overrides the error message
func (e *RegionError) WithMessage(message string) *RegionError {
	return &RegionError{
		Code:    e.Code,
		Message: message,
		Cause:   e.Cause,
		Details: e.Details,
	}
}

// NewRegionHeaderError creates a header error for a file of the given size
func NewRegionHeaderError(size int) error {
	return ErrRegionHeader.WithDetail("size", size)
}

// NewRegionReadError creates a read error for path
func NewRegionReadError(path string, cause error) error {
	return ErrRegionRead.
		WithDetail("path", path).
		WithCause(cause)
}

// NewRegionWriteError creates a write error for path
func NewRegionWriteError(path string, cause error) error {
	return ErrRegionWrite.
		WithDetail("path", path).
		WithCause(cause)
}

// NewChunkOutOfBoundsError creates an out of bounds error for a table slot
func NewChunkOutOfBoundsError(slot int, offset int, size int) error {
	return ErrChunkOutOfBounds.
		WithDetail("slot", slot).
		WithDetail("offset", offset).
		WithDetail("fileSize", size)
}

// NewChunkPositionError creates a missing position error
func NewChunkPositionError(field string) error {
	return ErrChunkPosition.WithDetail("field", field)
}

// NewRecordTooLargeError creates an error for a chunk that needs too many sectors
func NewRecordTooLargeError(offsetSectors int, sectors int) error {
	return ErrRecordTooLarge.
		WithDetail("offset", offsetSectors).
		WithDetail("sectors", sectors)
}

// NewFilterImportError creates a CSV import error for a line
func NewFilterImportError(line int, cause error) error {
	return ErrFilterImport.
		WithDetail("line", line).
		WithCause(cause)
}

// NewWorldNotFoundError creates a missing world error
func NewWorldNotFoundError(path string, cause error) error {
	return ErrWorldNotFound.
		WithDetail("path", path).
		WithCause(cause)
}
