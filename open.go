package imagering

import (
	"github.com/csat-sub002/imagering/ring"
	"github.com/csat-sub002/imagering/storage"
)

// Open constructs a ring buffer over a RAM-class accessor sized and
// aligned per opts, reconstructing it from whatever the medium already
// holds. The returned buffer is always usable: a reconstruction error is
// returned alongside a non-nil buffer rather than instead of one, since
// InitializeFromFlash always leaves the buffer in a consistent (possibly
// empty) state.
//
// This helper targets the RAM-backed accessor, used for simulation and
// ground-side tooling. Flight software wires storage.NANDAccessor (or
// wraps either accessor in storage.BufferedAccessor when Alignment > 1)
// directly, since the concrete transport is board-specific.
func Open(opts Options) (*ring.Buffer, storage.Accessor, error) {
	opts = opts.WithDefaults()

	var acc storage.Accessor = storage.NewRAMAccessor(opts.FlashStart, opts.Capacity)
	if opts.Alignment > 1 {
		acc = storage.NewBufferedAccessor(acc, opts.Alignment, opts.Logger)
	}

	buf := ring.NewBuffer(acc, opts.Logger)
	err := buf.InitializeFromFlash()
	return buf, acc, err
}
