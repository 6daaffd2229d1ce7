package imagering

import "github.com/csat-sub002/imagering/internal/logging"

// Logger is an alias for the logging.Logger interface, so callers can pass
// their own implementation without importing the internal package.
type Logger = logging.Logger

// Options configures a ring buffer. There is no persisted options format
// for this subsystem: a ring buffer is constructed programmatically once,
// at task startup, from values baked into the flight configuration.
type Options struct {
	// Capacity is the total number of bytes reserved for the ring on the
	// underlying medium.
	Capacity uint32

	// FlashStart is the absolute address of the first byte of the
	// reserved region; ring offsets are relative to this.
	FlashStart uint32

	// Alignment is the minimum write granularity of the backing
	// accessor. When it is greater than 1, Open wraps the backing
	// accessor in a storage.BufferedAccessor that uses it as the cache
	// block size. The ring does not pad head or tail to it: the
	// BufferedAccessor reports an alignment of 1.
	Alignment uint32

	// Logger receives diagnostic output. If nil, a default WARN-level
	// logger writing to stderr is used.
	Logger Logger
}

// WithDefaults returns a copy of o with zero-valued fields replaced by
// sane defaults (Alignment of 1, i.e. unaligned RAM-class media).
func (o Options) WithDefaults() Options {
	if o.Alignment == 0 {
		o.Alignment = 1
	}
	o.Logger = logging.OrDefault(o.Logger)
	return o
}
