package imagering

import (
	"github.com/csat-sub002/imagering/ring"
	"github.com/csat-sub002/imagering/storage"
)

// Ring buffer errors, re-exported from package ring so callers that only
// import the root package can still match them with errors.Is.
var (
	// ErrFullBuffer indicates there is no room for a new entry given the
	// current tail, alignment, and remaining capacity.
	ErrFullBuffer = ring.ErrFullBuffer

	// ErrEmptyBuffer indicates GetImage was called with no live entries.
	ErrEmptyBuffer = ring.ErrEmptyBuffer

	// ErrChecksumError indicates a header, metadata, or payload CRC
	// mismatch.
	ErrChecksumError = ring.ErrChecksumError

	// ErrDataError indicates a structural contradiction: declared sizes
	// disagree, or an entry does not fit within the reserved flash
	// region.
	ErrDataError = ring.ErrDataError

	// ErrOutOfBounds indicates a ring I/O request exceeded the buffer's
	// capacity.
	ErrOutOfBounds = ring.ErrOutOfBounds

	// ErrReadError wraps an underlying accessor read failure.
	ErrReadError = ring.ErrReadError

	// ErrWriteError wraps an underlying accessor write failure.
	ErrWriteError = ring.ErrWriteError
)

// Accessor errors, re-exported from package storage. The ring buffer maps
// these to the ring errors above with %w wrapping where a distinct
// ring-level sentinel exists.
var (
	// ErrAccessorOutOfBounds indicates the requested address range falls
	// outside the accessor's flash region.
	ErrAccessorOutOfBounds = storage.ErrOutOfBounds

	// ErrAccessorGeneric covers accessor failures with no more specific
	// sentinel (e.g. a NAND status register reporting an unrecognized
	// fault).
	ErrAccessorGeneric = storage.ErrGeneric
)
