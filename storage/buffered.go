package storage

import (
	"fmt"

	"github.com/csat-sub002/imagering/internal/logging"
	"github.com/csat-sub002/imagering/internal/testutil"
)

// BufferedAccessor wraps a base Accessor whose natural access unit is
// blockSize, coalescing unaligned sub-block writes into full-block
// programs and preserving read-after-write coherency within a single
// instance.
//
// Go has no destructors: a dropped BufferedAccessor cannot run cleanup
// code, so a flush failure that would occur "on drop" in the original
// has nowhere to propagate to. BufferedAccessor instead records the
// last such error in lastFlushErr and exposes it via LastFlushError;
// callers are expected to call Flush explicitly before discarding the
// accessor and check its return value.
type BufferedAccessor struct {
	base      Accessor
	blockSize uint32
	logger    logging.Logger

	cache       []byte
	dirty       bool
	valid       bool
	logicalAddr uint32 // 0-based block start within the flash region

	lastFlushErr error
}

// NewBufferedAccessor wraps base with a resident-block cache of
// blockSize bytes.
func NewBufferedAccessor(base Accessor, blockSize uint32, logger logging.Logger) *BufferedAccessor {
	return &BufferedAccessor{
		base:      base,
		blockSize: blockSize,
		logger:    logging.OrDefault(logger),
		cache:     make([]byte, blockSize),
	}
}

func (a *BufferedAccessor) Alignment() uint32 { return 1 }
func (a *BufferedAccessor) FlashMemorySize() uint32 { return a.base.FlashMemorySize() }
func (a *BufferedAccessor) FlashStartAddress() uint32 { return a.base.FlashStartAddress() }
func (a *BufferedAccessor) EraseBlockSize() uint32 { return a.base.EraseBlockSize() }

// LastFlushError returns the error from the most recent implicit flush
// (a cache eviction triggered by Read/Write/Erase touching a different
// block), or nil if none occurred. Flush itself returns its own error
// directly and does not go through this side channel.
func (a *BufferedAccessor) LastFlushError() error { return a.lastFlushErr }

// Flush writes the resident block back to the base accessor if dirty.
// Callers should invoke this explicitly before discarding the accessor,
// since Go cannot run this automatically on scope exit.
func (a *BufferedAccessor) Flush() error {
	if !a.dirty || !a.valid {
		return nil
	}
	abs := a.FlashStartAddress() + a.logicalAddr

	testutil.MaybeKill(testutil.KPBufferedFlush0)
	if err := a.base.Write(abs, a.cache); err != nil {
		a.logger.Errorf("%sflush failed at logical block %d: %v", logging.NSAccessor, a.logicalAddr, err)
		return fmt.Errorf("%w: flush: %v", ErrWriteError, err)
	}
	testutil.MaybeKill(testutil.KPBufferedFlush1)

	a.dirty = false
	return nil
}

// fillCache flushes the current block if dirty, then loads the block
// starting at the given absolute address.
func (a *BufferedAccessor) fillCache(absBlockStart uint32) error {
	flashStart := a.FlashStartAddress()
	flashSize := a.FlashMemorySize()
	if absBlockStart < flashStart || absBlockStart+a.blockSize > flashStart+flashSize {
		return ErrOutOfBounds
	}

	if err := a.Flush(); err != nil {
		a.lastFlushErr = err
		return err
	}

	if err := a.base.Read(absBlockStart, a.cache); err != nil {
		return fmt.Errorf("%w: fill cache: %v", ErrReadError, err)
	}

	a.logicalAddr = absBlockStart - flashStart
	a.valid = true
	return nil
}

// Write implements Accessor.Write, iterating block by block so that
// each call emits at most one program per resident-block eviction.
func (a *BufferedAccessor) Write(addr uint32, buf []byte) error {
	flashStart := a.FlashStartAddress()
	flashSize := a.FlashMemorySize()
	if len(buf) == 0 {
		return nil
	}
	if err := checkBounds(addr, len(buf), flashStart, flashSize); err != nil {
		return err
	}

	logical := addr - flashStart
	data := buf
	for len(data) > 0 {
		blockOffset := logical % a.blockSize
		blockStart := logical - blockOffset
		blockRemaining := a.blockSize - blockOffset
		n := blockRemaining
		if uint32(len(data)) < n {
			n = uint32(len(data))
		}

		if !a.valid || blockStart != a.logicalAddr {
			if err := a.fillCache(flashStart + blockStart); err != nil {
				return err
			}
		}

		copy(a.cache[blockOffset:blockOffset+n], data[:n])
		a.dirty = true

		data = data[n:]
		logical += n
	}
	return nil
}

// Read implements Accessor.Read, iterating block by block.
func (a *BufferedAccessor) Read(addr uint32, buf []byte) error {
	flashStart := a.FlashStartAddress()
	flashSize := a.FlashMemorySize()
	if len(buf) == 0 {
		return nil
	}
	if err := checkBounds(addr, len(buf), flashStart, flashSize); err != nil {
		return err
	}

	logical := addr - flashStart
	out := buf
	for len(out) > 0 {
		blockOffset := logical % a.blockSize
		blockStart := logical - blockOffset
		blockRemaining := a.blockSize - blockOffset
		n := blockRemaining
		if uint32(len(out)) < n {
			n = uint32(len(out))
		}

		if !a.valid || blockStart != a.logicalAddr {
			if err := a.fillCache(flashStart + blockStart); err != nil {
				return err
			}
		}

		copy(out[:n], a.cache[blockOffset:blockOffset+n])

		out = out[n:]
		logical += n
	}
	return nil
}

// Erase flushes any dirty resident block, invalidates the cache, and
// forwards to the base accessor.
func (a *BufferedAccessor) Erase(addr uint32) error {
	if err := a.Flush(); err != nil {
		a.lastFlushErr = err
		return err
	}
	a.valid = false
	return a.base.Erase(addr)
}
