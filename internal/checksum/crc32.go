// Package checksum implements the CRC-32 variant used to protect every
// on-medium structure: storage headers, image metadata records, and
// payload trailers.
//
// Polynomial 0xEDB88320 (reflected), initial state 0xFFFFFFFF, final XOR
// 0xFFFFFFFF — the classic "CRC-32/ISO-HDLC" parameterization, matching
// hash/crc32's IEEE table. This is the exclusive integrity mechanism for
// the ring buffer's wire format; there is no secondary or cryptographic
// check anywhere in the core.
package checksum

import "hash/crc32"

// ieeeTable is the standard reflected CRC-32 polynomial table
// (0xEDB88320).
var ieeeTable = crc32.MakeTable(crc32.IEEE)

// CRC32 is a cumulative CRC-32 accumulator. The zero value is ready to use
// and starts in the same state as after calling Reset.
//
// Update may be called any number of times; the checksum accumulates
// across all of them, so header, metadata, and payload CRCs can each be
// computed over bytes streamed in from many small ring I/O transfers.
//
// state holds the finalized checksum of the bytes seen so far, not the
// raw shift register: hash/crc32 applies the 0xFFFFFFFF pre- and
// post-conditioning inside Update, so the empty-input checksum is 0 and
// no extra XOR is applied here.
type CRC32 struct {
	state uint32
}

// NewCRC32 returns a CRC32 accumulator in its initial state.
func NewCRC32() *CRC32 {
	return &CRC32{}
}

// Reset returns the accumulator to its initial state, discarding any
// bytes previously seen by Update.
func (c *CRC32) Reset() {
	c.state = 0
}

// Update folds data into the running checksum. Calling Update repeatedly
// is equivalent to calling it once with the concatenation of all the data.
func (c *CRC32) Update(data []byte) {
	c.state = crc32.Update(c.state, ieeeTable, data)
}

// Get returns the checksum of all bytes seen so far. It does not reset
// the accumulator.
func (c *CRC32) Get() uint32 {
	return c.state
}

// Value computes the CRC-32 of data in one call. It is equivalent to
// resetting, updating with data, and reading Get.
func Value(data []byte) uint32 {
	return crc32.Checksum(data, ieeeTable)
}
