package ring

import (
	"sort"

	"github.com/csat-sub002/imagering/internal/checksum"
	"github.com/csat-sub002/imagering/internal/diag"
	"github.com/csat-sub002/imagering/internal/encoding"
	"github.com/csat-sub002/imagering/internal/logging"
	"github.com/csat-sub002/imagering/internal/mempool"
	"github.com/csat-sub002/imagering/internal/testutil"
)

// candidate is a pass-1 discovery result: an offset where a StorageHeader
// with a verifying magic and header_crc was found, the entry size its
// total_size field declares, and its stamped sequence id.
type candidate struct {
	offset     uint32
	entrySize  uint32
	sequenceID uint32
}

// rawRead is the stateless counterpart of ringIO used by boot
// reconstruction: it reads len(buf) bytes starting at a ring offset,
// splitting across the capacity boundary as needed, without touching
// readState, writeState, or the payload checksum engine, so recovery
// never disturbs an in-flight read or write cursor.
func (b *Buffer) rawRead(offset uint32, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	cap := b.state.Capacity
	if uint32(len(buf)) > cap {
		return ErrOutOfBounds
	}

	cur := offset % cap
	remaining := buf
	for len(remaining) > 0 {
		chunk := cap - cur
		if chunk > uint32(len(remaining)) {
			chunk = uint32(len(remaining))
		}
		if err := b.accessor.Read(b.state.FlashStart+cur, remaining[:chunk]); err != nil {
			return ErrReadError
		}
		cur = (cur + chunk) % cap
		remaining = remaining[chunk:]
	}
	return nil
}

// discoverCandidates implements pass 1: sweep the medium at alignment
// steps, recording every offset where a StorageHeader's magic and
// header_crc verify, and skip past it by its declared (aligned) size;
// otherwise advance by one alignment unit. The scan is bounded to one
// lap of the capacity so a medium full of garbage terminates instead of
// looping.
func (b *Buffer) discoverCandidates() []candidate {
	align := b.alignment()
	cap := b.state.Capacity

	var candidates []candidate
	var offset, scanned uint32
	for scanned < cap {
		var hdrBuf [HeaderSize]byte
		if err := b.rawRead(offset, hdrBuf[:]); err == nil {
			if hdr, ok := DecodeStorageHeader(hdrBuf[:]); ok {
				entrySize := uint32(HeaderSize) + hdr.TotalSize
				if entrySize > uint32(HeaderSize) && entrySize <= cap {
					candidates = append(candidates, candidate{
						offset:     offset,
						entrySize:  entrySize,
						sequenceID: hdr.SequenceID,
					})
					step := b.alignUp(entrySize)
					offset = (offset + step) % cap
					scanned += step
					continue
				}
			}
		}
		offset = (offset + align) % cap
		scanned += align
	}
	return candidates
}

// validateEntry performs a local, read-only walk of one candidate:
// header + header CRC, metadata + metadata CRC, payload streamed through
// a private checksum engine, trailing CRC tag. It uses its own CRC32
// accumulator rather than b.csum, since recovery must not disturb any
// state an in-flight read/write cursor depends on.
func (b *Buffer) validateEntry(offset uint32) (entrySize uint32, fingerprintBytes []byte, err error) {
	cap := b.state.Capacity
	cur := offset

	var hdrBuf [HeaderSize]byte
	if err = b.rawRead(cur, hdrBuf[:]); err != nil {
		return 0, nil, err
	}
	hdr, ok := DecodeStorageHeader(hdrBuf[:])
	if !ok {
		return 0, nil, ErrChecksumError
	}
	cur = (cur + HeaderSize) % cap

	var metaBuf [MetadataSize]byte
	if err = b.rawRead(cur, metaBuf[:]); err != nil {
		return 0, nil, err
	}
	meta, ok := DecodeImageMetadata(metaBuf[:])
	if !ok {
		return 0, nil, ErrChecksumError
	}
	cur = (cur + MetadataSize) % cap

	expectedTotal := uint32(MetadataSize) + meta.PayloadSize + uint32(CRCSize)
	if hdr.TotalSize != expectedTotal {
		return 0, nil, ErrDataError
	}
	entrySize = uint32(HeaderSize) + hdr.TotalSize
	if entrySize > cap {
		return 0, nil, ErrDataError
	}

	const scanChunk = 16 * 1024

	payloadCsum := checksum.NewCRC32()
	want := meta.PayloadSize
	if want > scanChunk {
		want = scanChunk
	}
	scratch := mempool.GlobalPool.Get(int(want))
	defer mempool.GlobalPool.Put(scratch)

	remaining := meta.PayloadSize
	for remaining > 0 {
		n := remaining
		if n > scanChunk {
			n = scanChunk
		}
		scratch = scratch[:n]
		if err = b.rawRead(cur, scratch); err != nil {
			return 0, nil, err
		}
		payloadCsum.Update(scratch)
		cur = (cur + n) % cap
		remaining -= n
	}

	var tagBuf [CRCSize]byte
	if err = b.rawRead(cur, tagBuf[:]); err != nil {
		return 0, nil, err
	}
	stored := encoding.DecodeFixed32(tagBuf[:])
	if stored != payloadCsum.Get() {
		return 0, nil, ErrChecksumError
	}

	fingerprintBytes = append(append([]byte(nil), hdrBuf[:]...), metaBuf[:]...)
	return entrySize, fingerprintBytes, nil
}

// InitializeFromFlash reconstructs the ring's State from physical
// evidence on the medium. It discovers every plausible entry, sorts
// candidates by sequence id, and walks them in order, committing only
// the largest contiguous, validated, sequence-id-contiguous prefix; the
// first failure drops that entry and all later ones. It always leaves
// the buffer in a usable (possibly empty) state and returns the first
// error encountered, if any, even when a partial prefix was committed.
func (b *Buffer) InitializeFromFlash() error {
	testutil.MaybeKill(testutil.KPRecoveryScan0)
	candidates := b.discoverCandidates()
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].sequenceID < candidates[j].sequenceID
	})

	var accepted []candidate
	var firstErr error
	var prevSeq uint32
	havePrev := false

	for _, c := range candidates {
		entrySize, fp, err := b.validateEntry(c.offset)
		if err == nil && entrySize != c.entrySize {
			err = ErrDataError
		}
		if err == nil && havePrev && c.sequenceID != prevSeq+1 {
			err = ErrDataError
		}
		if err != nil {
			b.logger.Warnf("%srejecting candidate at offset=%d seq=%d: %v", logging.NSRecovery, c.offset, c.sequenceID, err)
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		ef := diag.NewEntryFingerprint(c.offset, c.sequenceID, fp)
		b.logger.Infof("%sentry offset=%d seq=%d fingerprint=%s", logging.NSRecovery, ef.Offset, ef.SequenceID, ef.Fingerprint)

		accepted = append(accepted, c)
		prevSeq = c.sequenceID
		havePrev = true
	}

	testutil.MaybeKill(testutil.KPRecoveryCommit0)

	if len(accepted) == 0 {
		b.state.Head = 0
		b.state.Tail = 0
		b.state.Size = 0
		b.state.Count = 0
		b.nextSeqID = 0
		return firstErr
	}

	var totalSize uint32
	for _, a := range accepted {
		totalSize += a.entrySize
	}
	first := accepted[0]
	last := accepted[len(accepted)-1]

	b.state.Head = first.offset
	b.state.Tail = (last.offset + last.entrySize) % b.state.Capacity
	b.state.Size = totalSize
	b.state.Count = uint32(len(accepted))
	b.nextSeqID = last.sequenceID + 1

	return firstErr
}
