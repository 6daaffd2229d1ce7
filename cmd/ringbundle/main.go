// Command ringbundle extracts every image accepted by boot reconstruction
// out of a captured flash image and writes them to a single zstd-
// compressed bundle for ground downlink export. This is a diagnostic
// export path, separate from (and not a substitute for) any in-buffer
// compression, which this subsystem does not perform.
//
// Usage:
//
//	ringbundle --image=<path> --capacity=<n> --out=<bundle.zst>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/csat-sub002/imagering/internal/encoding"
	"github.com/csat-sub002/imagering/ring"
	"github.com/csat-sub002/imagering/storage"
	"github.com/csat-sub002/imagering/vfs"
)

var (
	imagePath  = flag.String("image", "", "Path to the captured flash image (required)")
	capacity   = flag.Uint("capacity", 0, "Ring capacity in bytes (required)")
	flashStart = flag.Uint("flash_start", 0, "Absolute start address of the ring region")
	outPath    = flag.String("out", "", "Output bundle path (required)")
)

func main() {
	flag.Parse()
	if *imagePath == "" || *capacity == 0 || *outPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --image, --capacity and --out are required")
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bundle layout: a sequence of records, each
//
//	uint32 timestamp (little-endian)
//	uint8  producer
//	uint32 payload_size (little-endian)
//	payload_size bytes of payload
//
// the whole sequence is wrapped in one zstd frame.
func run() error {
	acc, err := storage.LoadFileAccessor(vfs.Default(), *imagePath, uint32(*flashStart), uint32(*capacity))
	if err != nil {
		return fmt.Errorf("loading image: %w", err)
	}
	buf := ring.NewBuffer(acc, nil)
	reconErr := buf.InitializeFromFlash()
	if reconErr != nil {
		fmt.Fprintf(os.Stderr, "boot reconstruction stopped early: %v\n", reconErr)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("zstd.NewWriter: %w", err)
	}

	count := 0
	for !buf.IsEmpty() {
		meta, err := buf.GetImage()
		if err != nil {
			_ = enc.Close()
			return fmt.Errorf("GetImage at index %d: %w", count, err)
		}
		payload := make([]byte, meta.PayloadSize)
		if _, err := buf.GetDataChunk(payload); err != nil {
			_ = enc.Close()
			return fmt.Errorf("GetDataChunk at index %d: %w", count, err)
		}
		if err := writeRecord(enc, meta, payload); err != nil {
			_ = enc.Close()
			return err
		}
		if err := buf.PopImage(); err != nil {
			_ = enc.Close()
			return fmt.Errorf("PopImage at index %d: %w", count, err)
		}
		count++
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing zstd stream: %w", err)
	}
	fmt.Printf("bundled %d images into %s\n", count, *outPath)
	return nil
}

func writeRecord(w *zstd.Encoder, meta ring.ImageMetadata, payload []byte) error {
	hdr := make([]byte, 0, 9)
	hdr = encoding.AppendFixed32(hdr, meta.Timestamp)
	hdr = append(hdr, byte(meta.Producer))
	hdr = encoding.AppendFixed32(hdr, meta.PayloadSize)
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
