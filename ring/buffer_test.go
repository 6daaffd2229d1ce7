package ring

import (
	"bytes"
	"errors"
	"testing"

	"github.com/csat-sub002/imagering/storage"
)

func newRAMBuffer(t *testing.T, capacity uint32) (*Buffer, *storage.RAMAccessor) {
	t.Helper()
	acc := storage.NewRAMAccessor(0, capacity)
	return NewBuffer(acc, nil), acc
}

// TestSimpleRoundTrip pushes one small image and reads it back
// bit for bit.
func TestSimpleRoundTrip(t *testing.T) {
	b, _ := newRAMBuffer(t, 1024)
	payload := []byte{10, 11, 12, 13}

	meta := ImageMetadata{Timestamp: 100, PayloadSize: uint32(len(payload)), Producer: ProducerCamera1}
	if err := b.AddImage(meta); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := b.AddDataChunk(payload); err != nil {
		t.Fatalf("AddDataChunk: %v", err)
	}
	if err := b.PushImage(); err != nil {
		t.Fatalf("PushImage: %v", err)
	}

	if got := b.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	wantSize := uint32(HeaderSize) + uint32(MetadataSize) + uint32(len(payload)) + uint32(CRCSize)
	if got := b.Size(); got != wantSize {
		t.Errorf("Size() = %d, want %d", got, wantSize)
	}
	if avail, size := b.Available(), b.Size(); avail+size != b.Capacity() {
		t.Errorf("Available()+Size() = %d, want capacity %d", avail+size, b.Capacity())
	}

	got, err := b.GetImage()
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.Timestamp != 100 || got.PayloadSize != uint32(len(payload)) {
		t.Errorf("GetImage() = %+v, want timestamp=100 payload_size=%d", got, len(payload))
	}

	buf := make([]byte, len(payload))
	n, err := b.GetDataChunk(buf)
	if err != nil {
		t.Fatalf("GetDataChunk: %v", err)
	}
	if n != len(payload) || !bytes.Equal(buf, payload) {
		t.Errorf("GetDataChunk() = %v (n=%d), want %v", buf, n, payload)
	}

	if err := b.PopImage(); err != nil {
		t.Fatalf("PopImage: %v", err)
	}
	if got := b.Count(); got != 0 {
		t.Errorf("Count() after pop = %d, want 0", got)
	}
}

// TestWrapWriteAndRead forces an entry to straddle the capacity
// boundary and reads it back across the wrap.
func TestWrapWriteAndRead(t *testing.T) {
	b, _ := newRAMBuffer(t, 256)
	b.state.Tail = 236
	b.state.Head = 236

	payload := bytes.Repeat([]byte{0xAB}, 40)
	meta := ImageMetadata{Timestamp: 200, PayloadSize: uint32(len(payload)), Producer: ProducerThermal, Latitude: 1.5, Longitude: -2.5}

	if err := b.AddImage(meta); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := b.AddDataChunk(payload); err != nil {
		t.Fatalf("AddDataChunk: %v", err)
	}
	if err := b.PushImage(); err != nil {
		t.Fatalf("PushImage: %v", err)
	}

	total := uint32(HeaderSize) + uint32(MetadataSize) + uint32(len(payload)) + uint32(CRCSize)
	if 236+total <= 256 {
		t.Fatalf("test setup error: entry of size %d at offset 236 would not wrap", total)
	}

	gotMeta, err := b.GetImage()
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if gotMeta.Timestamp != 200 || gotMeta.Producer != ProducerThermal {
		t.Errorf("GetImage() = %+v, want timestamp=200 producer=thermal", gotMeta)
	}

	out := make([]byte, len(payload))
	if _, err := b.GetDataChunk(out); err != nil {
		t.Fatalf("GetDataChunk: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("GetDataChunk() = %v, want %v", out, payload)
	}

	if err := b.PopImage(); err != nil {
		t.Fatalf("PopImage: %v", err)
	}
	if b.state.Head >= 256 {
		t.Errorf("head = %d, want a wrapped value < capacity", b.state.Head)
	}
}

// TestCorruptedTrailingCRC flips a byte of an entry's trailing CRC and
// checks that the failed pop leaves the entry in place.
func TestCorruptedTrailingCRC(t *testing.T) {
	b, acc := newRAMBuffer(t, 512)
	payload := []byte{1, 2, 3, 4, 5, 6}
	meta := ImageMetadata{Timestamp: 1, PayloadSize: uint32(len(payload))}

	mustPush(t, b, meta, payload)

	// Flip one byte of the trailing CRC tag.
	tailCRCOffset := b.state.Tail - CRCSize
	mem := acc.Bytes()
	mem[tailCRCOffset] ^= 0xFF

	if _, err := b.GetImage(); err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	out := make([]byte, len(payload))
	if _, err := b.GetDataChunk(out); err != nil {
		t.Fatalf("GetDataChunk: %v", err)
	}

	err := b.PopImage()
	if !errors.Is(err, ErrChecksumError) {
		t.Fatalf("PopImage() after corrupting trailing CRC = %v, want ErrChecksumError", err)
	}
	if got := b.Count(); got != 1 {
		t.Errorf("Count() after failed pop = %d, want 1 (entry stays in place)", got)
	}

	// A fresh GetImage must still succeed (the entry was not mutated).
	if _, err := b.GetImage(); err != nil {
		t.Fatalf("second GetImage after failed pop: %v", err)
	}
}

// TestFullBuffer exercises the boundary: AddImage succeeds exactly when
// the free span at the aligned tail covers the whole frame.
func TestFullBuffer(t *testing.T) {
	b, _ := newRAMBuffer(t, 128)
	total := uint32(HeaderSize) + uint32(MetadataSize) + uint32(CRCSize) // zero-length payload
	// Exactly one entry fits with nothing left over.
	meta := ImageMetadata{Timestamp: 1, PayloadSize: uint32(128 - total)}
	mustPush(t, b, meta, make([]byte, 128-total))

	if got := b.Available(); got != 0 {
		t.Fatalf("Available() = %d, want 0 after filling capacity exactly", got)
	}

	if err := b.AddImage(ImageMetadata{Timestamp: 2, PayloadSize: 1}); !errors.Is(err, ErrFullBuffer) {
		t.Fatalf("AddImage on a full buffer = %v, want ErrFullBuffer", err)
	}
}

// TestGetImageOnEmptyBuffer checks the EmptyBuffer failure path.
func TestGetImageOnEmptyBuffer(t *testing.T) {
	b, _ := newRAMBuffer(t, 256)
	if _, err := b.GetImage(); !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("GetImage on empty ring = %v, want ErrEmptyBuffer", err)
	}
}

// TestAddImageNonCommittingOnFailure verifies that a failed AddImage
// leaves tail/size/count untouched.
func TestAddImageNonCommittingOnFailure(t *testing.T) {
	b, _ := newRAMBuffer(t, 64)
	before := b.State()

	err := b.AddImage(ImageMetadata{Timestamp: 1, PayloadSize: 1000})
	if !errors.Is(err, ErrFullBuffer) {
		t.Fatalf("AddImage with oversized payload = %v, want ErrFullBuffer", err)
	}
	after := b.State()
	if before != after {
		t.Errorf("state mutated by a failed AddImage: before=%+v after=%+v", before, after)
	}
}

// TestCountTracksPushAndPop checks that Count always equals pushes
// minus successful pops.
func TestCountTracksPushAndPop(t *testing.T) {
	b, _ := newRAMBuffer(t, 4096)
	var pushes, pops int

	for i := 0; i < 5; i++ {
		payload := bytes.Repeat([]byte{byte(i)}, 8)
		mustPush(t, b, ImageMetadata{Timestamp: uint32(i), PayloadSize: uint32(len(payload))}, payload)
		pushes++
		if b.Count() != uint32(pushes-pops) {
			t.Fatalf("after push %d: Count()=%d, want %d", i, b.Count(), pushes-pops)
		}
	}

	for i := 0; i < 3; i++ {
		if _, err := b.GetImage(); err != nil {
			t.Fatalf("GetImage: %v", err)
		}
		buf := make([]byte, 8)
		if _, err := b.GetDataChunk(buf); err != nil {
			t.Fatalf("GetDataChunk: %v", err)
		}
		if err := b.PopImage(); err != nil {
			t.Fatalf("PopImage: %v", err)
		}
		pops++
		if b.Count() != uint32(pushes-pops) {
			t.Fatalf("after pop %d: Count()=%d, want %d", i, b.Count(), pushes-pops)
		}
	}
}

// TestSequenceIDsContiguous checks that sequence ids of live entries
// form a contiguous increasing run.
func TestSequenceIDsContiguous(t *testing.T) {
	b, acc := newRAMBuffer(t, 2048)
	var offsets []uint32
	for i := 0; i < 4; i++ {
		offsets = append(offsets, b.state.Tail)
		mustPush(t, b, ImageMetadata{Timestamp: uint32(i), PayloadSize: 4}, []byte{1, 2, 3, 4})
	}

	for i, off := range offsets {
		var hdrBuf [HeaderSize]byte
		if err := acc.Read(off, hdrBuf[:]); err != nil {
			t.Fatalf("Read header at %d: %v", off, err)
		}
		hdr, ok := DecodeStorageHeader(hdrBuf[:])
		if !ok {
			t.Fatalf("DecodeStorageHeader at %d failed", off)
		}
		if hdr.SequenceID != uint32(i) {
			t.Errorf("entry %d: SequenceID = %d, want %d", i, hdr.SequenceID, i)
		}
	}
}

func mustPush(t *testing.T, b *Buffer, meta ImageMetadata, payload []byte) {
	t.Helper()
	if err := b.AddImage(meta); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := b.AddDataChunk(payload); err != nil {
		t.Fatalf("AddDataChunk: %v", err)
	}
	if err := b.PushImage(); err != nil {
		t.Fatalf("PushImage: %v", err)
	}
}

func TestHeaderAndMetadataEncodeDecodeRoundTrip(t *testing.T) {
	hdr := StorageHeader{Magic: StorageMagic, Version: StorageHeaderVersion, HeaderSize: HeaderSize, SequenceID: 7, TotalSize: 123}
	buf := hdr.Encode()
	got, ok := DecodeStorageHeader(buf[:])
	if !ok {
		t.Fatalf("DecodeStorageHeader: CRC did not verify")
	}
	if got.SequenceID != 7 || got.TotalSize != 123 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	meta := ImageMetadata{Timestamp: 42, PayloadSize: 16, Latitude: 10.5, Longitude: -20.25, Producer: ProducerCamera2}
	mbuf := meta.Encode()
	gotMeta, ok := DecodeImageMetadata(mbuf[:])
	if !ok {
		t.Fatalf("DecodeImageMetadata: CRC did not verify")
	}
	if gotMeta.Timestamp != 42 || gotMeta.PayloadSize != 16 || gotMeta.Producer != ProducerCamera2 {
		t.Errorf("round trip mismatch: %+v", gotMeta)
	}
}

func TestDecodeStorageHeaderRejectsBadMagic(t *testing.T) {
	hdr := StorageHeader{Magic: 0xDEADBEEF, HeaderSize: HeaderSize}
	buf := hdr.Encode() // CRC is computed honestly over the bad-magic bytes.
	if _, ok := DecodeStorageHeader(buf[:]); ok {
		t.Errorf("DecodeStorageHeader accepted a header whose magic is not 'RCRD'")
	}
}
