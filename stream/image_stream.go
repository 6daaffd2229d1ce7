package stream

import (
	"errors"
	"fmt"

	"github.com/csat-sub002/imagering"
	"github.com/csat-sub002/imagering/ring"
)

// Errors returned by ImageInputStream's API contract violations.
var (
	// ErrNotInitialized indicates GetChunk was called before Initialize.
	ErrNotInitialized = errors.New("stream: not initialized")

	// ErrAlreadyInitialized indicates Initialize was called more than
	// once for the same image.
	ErrAlreadyInitialized = errors.New("stream: already initialized")

	// ErrShortBuffer indicates Initialize was given a buffer too small
	// to hold one ImageMetadata record.
	ErrShortBuffer = errors.New("stream: buffer too small for metadata")
)

// SourceBuffer is the narrow slice of ring.Buffer's API that
// ImageInputStream needs: one image at a time, metadata then payload
// then an explicit pop. ring.Buffer satisfies this directly.
type SourceBuffer interface {
	IsEmpty() bool
	GetImage() (ring.ImageMetadata, error)
	GetDataChunk(buf []byte) (int, error)
	PopImage() error
}

// ImageInputStream adapts a SourceBuffer into a resumable byte-oriented
// source. It is single-use and not restartable per image: once a byte
// has been delivered, the producer cannot reissue it.
type ImageInputStream struct {
	buf SourceBuffer

	initialized bool
	finished    bool
	lastPopErr  error

	size uint32
	name [imagering.NameLength]byte
	meta ring.ImageMetadata
}

// New wraps buf as a resumable byte-oriented image source.
func New(buf SourceBuffer) *ImageInputStream {
	return &ImageInputStream{buf: buf}
}

// IsEmpty delegates to the underlying buffer.
func (s *ImageInputStream) IsEmpty() bool { return s.buf.IsEmpty() }

// Initialize must be the first call per image. It fetches the oldest
// live image's metadata, encodes it into out (writing exactly
// ring.MetadataSize bytes), and caches the stream's total logical size
// and stable name for the lifetime of this image.
func (s *ImageInputStream) Initialize(out []byte) (int, error) {
	if s.initialized {
		return 0, ErrAlreadyInitialized
	}
	if len(out) < ring.MetadataSize {
		return 0, fmt.Errorf("%w: need %d bytes, got %d", ErrShortBuffer, ring.MetadataSize, len(out))
	}

	meta, err := s.buf.GetImage()
	if err != nil {
		return 0, err
	}

	encoded := meta.Encode()
	n := copy(out, encoded[:])

	s.meta = meta
	s.size = uint32(ring.MetadataSize) + meta.PayloadSize
	s.name = FormatName(uint64(meta.Timestamp), uint8(meta.Producer))
	s.initialized = true
	s.finished = false
	return n, nil
}

// Size returns the stream's total logical length: metadata plus payload.
// Valid only after Initialize.
func (s *ImageInputStream) Size() uint32 { return s.size }

// Name returns the stable 19-byte hex-ASCII handle for this image,
// derived from its timestamp and producer. Valid only after Initialize.
func (s *ImageInputStream) Name() [imagering.NameLength]byte { return s.name }

// Meta returns the metadata record fetched by Initialize.
func (s *ImageInputStream) Meta() ring.ImageMetadata { return s.meta }

// GetChunk streams payload bytes in order after Initialize. A call with
// an empty out is the end-of-stream sentinel: it finalizes (pops) the
// underlying image and returns (0, nil) on success.
func (s *ImageInputStream) GetChunk(out []byte) (int, error) {
	if !s.initialized {
		return 0, ErrNotInitialized
	}
	if len(out) == 0 {
		if !s.Finalize() {
			return 0, s.lastPopErr
		}
		return 0, nil
	}
	return s.buf.GetDataChunk(out)
}

// Finalize pops the underlying image and reports whether the pop
// succeeded. It is idempotent: calling it again after a successful pop
// is a no-op that returns true. A successful Finalize re-arms the
// stream so Initialize can be called for the next image.
func (s *ImageInputStream) Finalize() bool {
	if s.finished {
		return true
	}
	err := s.buf.PopImage()
	s.lastPopErr = err
	s.finished = err == nil
	if s.finished {
		s.initialized = false
	}
	return s.finished
}
