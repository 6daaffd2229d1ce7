package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/csat-sub002/imagering/ring"
	"github.com/csat-sub002/imagering/storage"
)

func newTestBuffer(t *testing.T) *ring.Buffer {
	t.Helper()
	acc := storage.NewRAMAccessor(0, 2048)
	return ring.NewBuffer(acc, nil)
}

func pushImage(t *testing.T, b *ring.Buffer, meta ring.ImageMetadata, payload []byte) {
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

func TestImageInputStreamFullLifecycle(t *testing.T) {
	b := newTestBuffer(t)
	payload := []byte("hello satellite")
	pushImage(t, b, ring.ImageMetadata{Timestamp: 500, PayloadSize: uint32(len(payload)), Producer: ring.ProducerCamera3}, payload)

	s := New(b)
	if s.IsEmpty() {
		t.Fatalf("IsEmpty() = true, want false before draining")
	}

	metaBuf := make([]byte, ring.MetadataSize)
	n, err := s.Initialize(metaBuf)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if n != ring.MetadataSize {
		t.Errorf("Initialize wrote %d bytes, want %d", n, ring.MetadataSize)
	}

	wantSize := uint32(ring.MetadataSize) + uint32(len(payload))
	if got := s.Size(); got != wantSize {
		t.Errorf("Size() = %d, want %d", got, wantSize)
	}

	name := s.Name()
	if name[16] != '_' {
		t.Errorf("Name()[16] = %q, want '_'", name[16])
	}

	got := make([]byte, len(payload))
	m, err := s.GetChunk(got)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if m != len(payload) || !bytes.Equal(got, payload) {
		t.Errorf("GetChunk() = %v (n=%d), want %v", got, m, payload)
	}

	// Empty chunk is the end-of-stream sentinel: it pops the image.
	if _, err := s.GetChunk(nil); err != nil {
		t.Fatalf("GetChunk(nil) (EOS sentinel): %v", err)
	}
	if b.Count() != 0 {
		t.Errorf("Count() after EOS sentinel = %d, want 0", b.Count())
	}
}

func TestImageInputStreamRequiresInitializeFirst(t *testing.T) {
	b := newTestBuffer(t)
	pushImage(t, b, ring.ImageMetadata{Timestamp: 1, PayloadSize: 4}, []byte{1, 2, 3, 4})

	s := New(b)
	if _, err := s.GetChunk(make([]byte, 4)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("GetChunk before Initialize = %v, want ErrNotInitialized", err)
	}
}

func TestImageInputStreamRejectsDoubleInitialize(t *testing.T) {
	b := newTestBuffer(t)
	pushImage(t, b, ring.ImageMetadata{Timestamp: 1, PayloadSize: 4}, []byte{1, 2, 3, 4})

	s := New(b)
	buf := make([]byte, ring.MetadataSize)
	if _, err := s.Initialize(buf); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := s.Initialize(buf); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize = %v, want ErrAlreadyInitialized", err)
	}
}

func TestImageInputStreamFinalizeIdempotent(t *testing.T) {
	b := newTestBuffer(t)
	pushImage(t, b, ring.ImageMetadata{Timestamp: 1, PayloadSize: 4}, []byte{1, 2, 3, 4})

	s := New(b)
	buf := make([]byte, ring.MetadataSize)
	if _, err := s.Initialize(buf); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := s.GetChunk(make([]byte, 4)); err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if !s.Finalize() {
		t.Fatalf("first Finalize() = false")
	}
	if !s.Finalize() {
		t.Fatalf("second Finalize() = false, want idempotent true")
	}
	if b.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 (single pop, not double)", b.Count())
	}
}
