package ring

import (
	"fmt"

	"github.com/csat-sub002/imagering/internal/checksum"
	"github.com/csat-sub002/imagering/internal/encoding"
	"github.com/csat-sub002/imagering/internal/logging"
	"github.com/csat-sub002/imagering/internal/testutil"
	"github.com/csat-sub002/imagering/storage"
)

// entryState is a cursor over the entry currently being streamed in or
// out: offset is the current ring position, entrySize is the entry's
// total declared size, consumed is the number of bytes moved through
// this cursor so far, and payloadSize is the declared payload length.
// The caller must complete one read or write before starting another.
type entryState struct {
	offset      uint32
	entrySize   uint32
	consumed    uint32
	payloadSize uint32
}

// Buffer is the framed, wrap-aware, CRC-protected image ring buffer. It
// owns a State, borrows a storage.Accessor, and keeps one checksum
// engine and two entryState cursors: one for the entry currently being
// written and one for the entry currently being read.
type Buffer struct {
	state     State
	accessor  storage.Accessor
	csum      *checksum.CRC32
	nextSeqID uint32

	writeState entryState
	readState  entryState

	logger logging.Logger
}

// NewBuffer constructs a Buffer over accessor with an initially empty
// State. Call InitializeFromFlash afterward to reconstruct state from an
// already-populated medium.
func NewBuffer(accessor storage.Accessor, logger logging.Logger) *Buffer {
	return &Buffer{
		state: State{
			FlashStart: accessor.FlashStartAddress(),
			Capacity:   accessor.FlashMemorySize(),
		},
		accessor: accessor,
		csum:     checksum.NewCRC32(),
		logger:   logging.OrDefault(logger),
	}
}

// State returns a copy of the buffer's current geometry.
func (b *Buffer) State() State { return b.state }

func (b *Buffer) IsEmpty() bool { return b.state.IsEmpty() }
func (b *Buffer) Size() uint32 { return b.state.Size }
func (b *Buffer) Count() uint32 { return b.state.Count }
func (b *Buffer) Capacity() uint32 { return b.state.Capacity }
func (b *Buffer) Available() uint32 { return b.state.Available() }

func (b *Buffer) alignment() uint32 {
	a := b.accessor.Alignment()
	if a == 0 {
		return 1
	}
	return a
}

func (b *Buffer) alignUp(v uint32) uint32 {
	a := b.alignment()
	return (v + a - 1) / a * a
}

// ringIO is the cursor-based wrap-aware I/O helper: given a cursor, a
// buffer, and a direction, it splits the transfer across the capacity
// boundary into linear spans and calls the accessor for each, advancing
// the cursor and optionally folding the bytes into the running payload
// checksum. Boot reconstruction reads through rawRead in recovery.go,
// which does the same wrap split without a cursor.
func (b *Buffer) ringIO(s *entryState, data []byte, write bool, updateCRC bool) error {
	if len(data) == 0 {
		return nil
	}
	cap := b.state.Capacity
	if uint32(len(data)) > cap {
		return fmt.Errorf("%w: transfer of %d bytes exceeds capacity %d", ErrOutOfBounds, len(data), cap)
	}

	remaining := data
	for len(remaining) > 0 {
		chunk := cap - s.offset
		if chunk > uint32(len(remaining)) {
			chunk = uint32(len(remaining))
		}
		physAddr := b.state.FlashStart + s.offset

		var err error
		if write {
			err = b.accessor.Write(physAddr, remaining[:chunk])
		} else {
			err = b.accessor.Read(physAddr, remaining[:chunk])
		}
		if err != nil {
			if write {
				return fmt.Errorf("%w: %v", ErrWriteError, err)
			}
			return fmt.Errorf("%w: %v", ErrReadError, err)
		}

		if updateCRC {
			b.csum.Update(remaining[:chunk])
		}

		s.offset = (s.offset + chunk) % cap
		remaining = remaining[chunk:]
	}
	s.consumed += uint32(len(data))
	return nil
}

func (b *Buffer) writeHeader(s *entryState, hdr *StorageHeader) error {
	buf := hdr.Encode()
	return b.ringIO(s, buf[:], true, false)
}

func (b *Buffer) writeMetadata(s *entryState, meta *ImageMetadata) error {
	buf := meta.Encode()
	return b.ringIO(s, buf[:], true, false)
}

func (b *Buffer) readHeader(s *entryState) (StorageHeader, error) {
	var buf [HeaderSize]byte
	if err := b.ringIO(s, buf[:], false, false); err != nil {
		return StorageHeader{}, err
	}
	hdr, ok := DecodeStorageHeader(buf[:])
	if !ok {
		return StorageHeader{}, ErrChecksumError
	}
	return hdr, nil
}

func (b *Buffer) readMetadata(s *entryState) (ImageMetadata, error) {
	var buf [MetadataSize]byte
	if err := b.ringIO(s, buf[:], false, false); err != nil {
		return ImageMetadata{}, err
	}
	meta, ok := DecodeImageMetadata(buf[:])
	if !ok {
		return ImageMetadata{}, ErrChecksumError
	}
	return meta, nil
}

// AddImage begins a new entry: it reserves room for the full frame,
// writes the StorageHeader and ImageMetadata, and leaves the write
// cursor positioned at the first payload byte. Size and count are
// unchanged until PushImage succeeds; tail is only rounded up to the
// alignment boundary the entry starts at.
func (b *Buffer) AddImage(meta ImageMetadata) error {
	total := uint32(HeaderSize) + uint32(MetadataSize) + meta.PayloadSize + uint32(CRCSize)
	if b.state.Available() < total {
		return ErrFullBuffer
	}

	alignedTail := b.alignUp(b.state.Tail)
	if alignedTail >= b.state.Capacity {
		alignedTail -= b.state.Capacity
	}
	if b.state.AvailableFrom(alignedTail) < total {
		return ErrFullBuffer
	}

	b.state.Tail = alignedTail
	b.writeState = entryState{offset: alignedTail, entrySize: total, payloadSize: meta.PayloadSize}

	testutil.MaybeKill(testutil.KPRingPush0)

	hdr := StorageHeader{
		Magic:      StorageMagic,
		Version:    StorageHeaderVersion,
		HeaderSize: HeaderSize,
		SequenceID: b.nextSeqID,
		TotalSize:  total - HeaderSize,
	}
	b.nextSeqID++

	if err := b.writeHeader(&b.writeState, &hdr); err != nil {
		return err
	}
	testutil.MaybeKill(testutil.KPRingPushHeader)

	m := meta
	m.Version = MetadataVersion
	m.MetadataSize = MetadataSize
	if err := b.writeMetadata(&b.writeState, &m); err != nil {
		return err
	}

	b.csum.Reset()
	return nil
}

// AddDataChunk streams buf into the ring at the write cursor, updating
// the running payload checksum. It does not modify the committed ring
// state.
func (b *Buffer) AddDataChunk(buf []byte) error {
	testutil.MaybeKill(testutil.KPRingPushPayload)
	return b.ringIO(&b.writeState, buf, true, true)
}

// PushImage writes the trailing payload CRC and commits the entry:
// size grows by the entry's size, tail advances to the write
// cursor, and count increments.
func (b *Buffer) PushImage() error {
	tag := b.csum.Get()
	var tagBuf [CRCSize]byte
	encoding.EncodeFixed32(tagBuf[:], tag)

	testutil.MaybeKill(testutil.KPRingPushTrailer)
	if err := b.ringIO(&b.writeState, tagBuf[:], true, false); err != nil {
		return err
	}
	testutil.MaybeKill(testutil.KPRingPushDone)

	b.state.Size += b.writeState.entrySize
	b.state.Tail = b.writeState.offset
	b.state.Count++
	return nil
}

// GetImage reads the header and metadata of the oldest live entry,
// verifies both CRCs, and positions the read cursor at the first
// payload byte.
func (b *Buffer) GetImage() (ImageMetadata, error) {
	if b.state.IsEmpty() {
		return ImageMetadata{}, ErrEmptyBuffer
	}
	b.readState = entryState{offset: b.state.Head}

	hdr, err := b.readHeader(&b.readState)
	if err != nil {
		return ImageMetadata{}, err
	}
	b.readState.entrySize = uint32(HeaderSize) + hdr.TotalSize

	meta, err := b.readMetadata(&b.readState)
	if err != nil {
		return ImageMetadata{}, err
	}
	b.readState.payloadSize = meta.PayloadSize

	b.csum.Reset()
	return meta, nil
}

// GetDataChunk reads up to len(buf) bytes of the current entry's
// payload (fewer if the payload is nearly exhausted), updates the
// running checksum, and returns the number of bytes actually read.
func (b *Buffer) GetDataChunk(buf []byte) (int, error) {
	overhead := uint32(HeaderSize) + uint32(MetadataSize)
	var payloadDone uint32
	if b.readState.consumed > overhead {
		payloadDone = b.readState.consumed - overhead
	}
	remaining := b.readState.payloadSize - payloadDone

	n := uint32(len(buf))
	if n > remaining {
		n = remaining
	}
	if err := b.ringIO(&b.readState, buf[:n], false, true); err != nil {
		return 0, err
	}
	return int(n), nil
}

// PopImage verifies the trailing payload CRC against the checksum
// accumulated while streaming the payload out. On mismatch it returns
// ErrChecksumError without mutating state, leaving the entry in place
// for forensic recovery. On match it advances head past the whole
// entry, aligns head up (consuming that padding from size, identically
// to tail alignment), decrements count, and erases every erase-block
// fully contained in the freed region.
func (b *Buffer) PopImage() error {
	if b.state.IsEmpty() {
		return ErrEmptyBuffer
	}

	testutil.MaybeKill(testutil.KPRingPop0)

	var tagBuf [CRCSize]byte
	if err := b.ringIO(&b.readState, tagBuf[:], false, false); err != nil {
		return err
	}
	stored := encoding.DecodeFixed32(tagBuf[:])
	actual := b.csum.Get()

	oldHead := b.state.Head
	totalSize := b.readState.entrySize

	if stored != actual {
		return ErrChecksumError
	}

	b.adjustHead(totalSize)
	testutil.MaybeKill(testutil.KPRingPopAdjust)

	if err := b.eraseEntryBlocks(oldHead, totalSize); err != nil {
		return err
	}
	testutil.MaybeKill(testutil.KPRingPopDone)
	return nil
}

// adjustHead advances head by size (mod capacity), then aligns head up
// to the accessor's alignment, subtracting the resulting padding from
// size (clamped at zero) so head and tail always use identical
// alignment.
func (b *Buffer) adjustHead(size uint32) {
	cap := b.state.Capacity

	b.state.Size -= size
	b.state.Head = (b.state.Head + size) % cap

	aligned := b.alignUp(b.state.Head)
	if aligned >= cap {
		aligned -= cap
	}

	var pad uint32
	if aligned >= b.state.Head {
		pad = aligned - b.state.Head
	} else {
		pad = cap - (b.state.Head - aligned)
	}

	if pad <= b.state.Size {
		b.state.Size -= pad
	} else {
		b.state.Size = 0
	}

	b.state.Head = aligned
	b.state.Count--
}

// eraseEntryBlocks erases every erase-block fully contained in the
// freed [offset, offset+size) region. A block that merely overlaps the
// region (its span extends past offset+size, or starts before offset)
// is left untouched: on media whose erase-block size exceeds a typical
// entry (e.g. the 4 Gb SPI-NAND target's 256 KiB blocks), such a block
// still holds bytes belonging to an adjacent, unpopped entry, and
// erasing it would destroy that live data.
func (b *Buffer) eraseEntryBlocks(offset, size uint32) error {
	blockSize := b.accessor.EraseBlockSize()
	if blockSize == 0 {
		blockSize = 1
	}
	cap := b.state.Capacity

	first := ((offset + blockSize - 1) / blockSize) * blockSize
	if first >= cap {
		first -= cap
	}
	firstDist := first - offset
	if first < offset {
		firstDist = cap - offset + first
	}

	for dist := firstDist; dist+blockSize <= size; dist += blockSize {
		blockStart := offset + dist
		if blockStart >= cap {
			blockStart -= cap
		}
		if err := b.accessor.Erase(b.state.FlashStart + blockStart); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteError, err)
		}
	}
	return nil
}
