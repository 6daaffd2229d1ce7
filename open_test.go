package imagering

import (
	"errors"
	"testing"

	"github.com/csat-sub002/imagering/ring"
)

func TestOpenBlankMedium(t *testing.T) {
	buf, acc, err := Open(Options{Capacity: 1024})
	if err != nil {
		t.Fatalf("Open on a blank medium: %v", err)
	}
	if buf == nil || acc == nil {
		t.Fatalf("Open returned nil buffer or accessor")
	}
	if !buf.IsEmpty() {
		t.Errorf("fresh buffer not empty: %+v", buf.State())
	}
	if got := buf.Capacity(); got != 1024 {
		t.Errorf("Capacity() = %d, want 1024", got)
	}
}

func TestOpenRoundTrip(t *testing.T) {
	buf, _, err := Open(Options{Capacity: 2048, FlashStart: 0x100})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	payload := []byte{1, 2, 3, 4}
	meta := ring.ImageMetadata{Timestamp: 7, PayloadSize: uint32(len(payload)), Producer: ProducerCamera2}
	if err := buf.AddImage(meta); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := buf.AddDataChunk(payload); err != nil {
		t.Fatalf("AddDataChunk: %v", err)
	}
	if err := buf.PushImage(); err != nil {
		t.Fatalf("PushImage: %v", err)
	}

	got, err := buf.GetImage()
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.Timestamp != 7 || got.Producer != ProducerCamera2 {
		t.Errorf("GetImage() = %+v, want timestamp=7 producer=camera2", got)
	}
}

func TestRootSentinelsMatchRingSentinels(t *testing.T) {
	buf, _, err := Open(Options{Capacity: 256})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := buf.GetImage(); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("GetImage on empty buffer = %v, want ErrEmptyBuffer", err)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{Capacity: 512}.WithDefaults()
	if o.Alignment != 1 {
		t.Errorf("Alignment = %d, want 1", o.Alignment)
	}
	if o.Logger == nil {
		t.Errorf("Logger = nil, want a default logger")
	}
}
