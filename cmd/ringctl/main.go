// Command ringctl inspects and repairs a captured image ring buffer flash
// dump.
//
// Usage:
//
//	ringctl --image=<path> --capacity=<n> <command> [options]
//
// Commands:
//
//	info     Print ring state (head, tail, count, capacity, flash start)
//	list     List every image accepted by boot reconstruction
//	repair   Re-run boot reconstruction and save the image file back
//	         unchanged; bytes of rejected entries stay on the medium
//	extract  Copy one image's payload out to a file
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/csat-sub002/imagering/ring"
	"github.com/csat-sub002/imagering/storage"
	"github.com/csat-sub002/imagering/vfs"
)

var (
	imagePath  = flag.String("image", "", "Path to the captured flash image (required)")
	capacity   = flag.Uint("capacity", 0, "Ring capacity in bytes (required)")
	flashStart = flag.Uint("flash_start", 0, "Absolute start address of the ring region")
	index      = flag.Int("index", 0, "Image index for the extract command (0 = oldest)")
	out        = flag.String("out", "", "Output path for the extract command")
	help       = flag.Bool("help", false, "Print help")
)

func main() {
	flag.Parse()

	if *help || len(flag.Args()) == 0 {
		printUsage()
		return
	}
	if *imagePath == "" || *capacity == 0 {
		fmt.Fprintln(os.Stderr, "Error: --image and --capacity are required")
		os.Exit(1)
	}

	var err error
	switch flag.Arg(0) {
	case "info":
		err = cmdInfo()
	case "list":
		err = cmdList()
	case "repair":
		err = cmdRepair()
	case "extract":
		err = cmdExtract()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", flag.Arg(0))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ringctl - image ring buffer inspection tool")
	fmt.Println()
	fmt.Println("Usage: ringctl --image=<path> --capacity=<n> <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  info      Print ring state")
	fmt.Println("  list      List every image accepted by boot reconstruction")
	fmt.Println("  repair    Re-run boot reconstruction and save the image back unchanged")
	fmt.Println("  extract   Copy one image's payload out to a file (--index, --out)")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}

func openRing() (*ring.Buffer, *storage.FileAccessor, error) {
	acc, err := storage.LoadFileAccessor(vfs.Default(), *imagePath, uint32(*flashStart), uint32(*capacity))
	if err != nil {
		return nil, nil, fmt.Errorf("loading image: %w", err)
	}
	buf := ring.NewBuffer(acc, nil)
	if err := buf.InitializeFromFlash(); err != nil {
		return buf, acc, fmt.Errorf("boot reconstruction: %w", err)
	}
	return buf, acc, nil
}

func cmdInfo() error {
	buf, _, err := openRing()
	if err != nil && buf == nil {
		return err
	}
	state := buf.State()
	fmt.Printf("head:        %d\n", state.Head)
	fmt.Printf("tail:        %d\n", state.Tail)
	fmt.Printf("count:       %d\n", state.Count)
	fmt.Printf("capacity:    %d\n", state.Capacity)
	fmt.Printf("flash_start: %d\n", state.FlashStart)
	if err != nil {
		fmt.Printf("reconstruction warning: %v\n", err)
	}
	return nil
}

func cmdList() error {
	buf, _, err := openRing()
	if err != nil && buf == nil {
		return err
	}

	i := 0
	for !buf.IsEmpty() {
		meta, gerr := buf.GetImage()
		if gerr != nil {
			return fmt.Errorf("GetImage at index %d: %w", i, gerr)
		}
		fmt.Printf("%d: timestamp=%d producer=%d payload_size=%d\n", i, meta.Timestamp, meta.Producer, meta.PayloadSize)
		if serr := skipPayload(buf, meta.PayloadSize); serr != nil {
			return serr
		}
		if perr := buf.PopImage(); perr != nil {
			return fmt.Errorf("PopImage at index %d: %w", i, perr)
		}
		i++
	}
	return nil
}

func cmdRepair() error {
	buf, acc, err := openRing()
	if buf == nil {
		return err
	}
	if err != nil {
		fmt.Printf("reconstruction stopped early: %v\n", err)
	}
	if serr := acc.Save(); serr != nil {
		return fmt.Errorf("saving repaired image: %w", serr)
	}
	fmt.Printf("repaired: count=%d next write tail=%d\n", buf.Count(), buf.State().Tail)
	return nil
}

func cmdExtract() error {
	if *out == "" {
		return fmt.Errorf("--out is required for extract")
	}
	buf, _, err := openRing()
	if err != nil && buf == nil {
		return err
	}

	for i := 0; i < *index; i++ {
		meta, gerr := buf.GetImage()
		if gerr != nil {
			return fmt.Errorf("GetImage at index %d: %w", i, gerr)
		}
		if serr := skipPayload(buf, meta.PayloadSize); serr != nil {
			return serr
		}
		if perr := buf.PopImage(); perr != nil {
			return fmt.Errorf("PopImage at index %d: %w", i, perr)
		}
	}

	meta, err := buf.GetImage()
	if err != nil {
		return fmt.Errorf("GetImage at index %d: %w", *index, err)
	}
	payload := make([]byte, meta.PayloadSize)
	if _, err := buf.GetDataChunk(payload); err != nil {
		return fmt.Errorf("GetDataChunk: %w", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(payload); err != nil {
		return err
	}
	fmt.Printf("extracted %d bytes (first bytes %s) to %s\n", len(payload), hex.EncodeToString(payload[:min(8, len(payload))]), *out)
	return nil
}

func skipPayload(buf *ring.Buffer, size uint32) error {
	scratch := make([]byte, size)
	_, err := buf.GetDataChunk(scratch)
	return err
}
