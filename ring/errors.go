package ring

import "errors"

// Sentinel errors returned by Buffer operations. FullBuffer and
// EmptyBuffer are flow-control signals, not faults; the rest indicate a
// medium failure, a corrupted entry, or a caller bug.
var (
	ErrFullBuffer    = errors.New("ring: full buffer")
	ErrEmptyBuffer   = errors.New("ring: empty buffer")
	ErrChecksumError = errors.New("ring: checksum error")
	ErrDataError     = errors.New("ring: data error")
	ErrOutOfBounds   = errors.New("ring: out of bounds")
	ErrReadError     = errors.New("ring: read error")
	ErrWriteError    = errors.New("ring: write error")

	// ErrInterleavedAccess indicates a second add_image or get_image was
	// started before the previous write or read cursor completed.
	ErrInterleavedAccess = errors.New("ring: interleaved read or write")
)
